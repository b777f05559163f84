package inventory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/repository/csvfile"
)

var fixedNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *csvfile.RecordStore
	log   *csvfile.MovementLog
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := csvfile.NewRecordStore(dir, []string{"神戸", "横浜"}, nil)
	require.NoError(t, err)
	log, err := csvfile.NewMovementLog(filepath.Join(dir, "log.csv"), nil, nil)
	require.NoError(t, err)

	svc := NewService(store, log, models.DefaultCatalog(), time.UTC, nil)
	svc.now = func() time.Time { return fixedNow }
	return fixture{svc: svc, store: store, log: log}
}

func ringRow(base, code, size string) models.BaseRecord {
	return models.BaseRecord{Base: base, Record: models.Record{
		Metal: "K18", Item: "リング", CenterStone: "ダイヤ", Size: size, Code: code,
		ListPrice: "10000", WholesaleCode: "5000", User: "A",
	}}
}

func TestAddStockExampleRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added, err := f.svc.AddStock(ctx, []models.BaseRecord{ringRow("神戸", "R100", "1")})
	require.NoError(t, err)
	require.Len(t, added, 1)

	records, err := f.svc.List(ctx, "神戸")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].No)
	assert.Equal(t, "CT", records[0].Size)
	assert.Equal(t, "2024/06/15", records[0].ReceivedOn)
	assert.Equal(t, "5000", records[0].WholesalePrice)

	entries, err := f.log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.OperationReceipt, entries[0].Operation)
	assert.Equal(t, "神戸", entries[0].Base)
	assert.Empty(t, entries[0].RemovedOn)
	assert.Equal(t, "R100", entries[0].Record.Code)
}

func TestAddStockSortsAndRenumbersEachBase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddStock(ctx, []models.BaseRecord{
		ringRow("神戸", "R300", "3"),
		ringRow("横浜", "Y1", "0.5"),
		{},
		ringRow("神戸", "R100", "1"),
	})
	require.NoError(t, err)

	_, err = f.svc.AddStock(ctx, []models.BaseRecord{ringRow("神戸", "R200", "2")})
	require.NoError(t, err)

	kobe, err := f.svc.List(ctx, "神戸")
	require.NoError(t, err)
	codes := make([]string, len(kobe))
	for i, rec := range kobe {
		assert.Equal(t, i+1, rec.No)
		codes[i] = rec.Code
	}
	assert.Equal(t, []string{"R100", "R200", "R300"}, codes)

	yokohama, err := f.svc.List(ctx, "横浜")
	require.NoError(t, err)
	require.Len(t, yokohama, 1)
	assert.Equal(t, "0.5", yokohama[0].Size)

	entries, err := f.log.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Equal(t, 2, entries[3].Record.No, "logged number is the position after sorting")
}

func TestAddStockRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := ringRow("神戸", "", "1")
	bad.User = ""
	_, err := f.svc.AddStock(ctx, []models.BaseRecord{
		ringRow("神戸", "R1", "1"),
		bad,
		ringRow("札幌", "S1", "1"),
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 2)
	assert.Equal(t, 2, verr.Problems[0].Row)
	assert.Equal(t, []string{"品番", "入力者"}, verr.Problems[0].Fields)
	assert.Equal(t, 3, verr.Problems[1].Row)

	records, err := f.svc.List(ctx, "神戸")
	require.NoError(t, err)
	assert.Empty(t, records)

	entries, err := f.log.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAddStockEmptyAndOversized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddStock(ctx, []models.BaseRecord{{Base: "神戸"}, {}})
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = f.svc.AddStock(ctx, make([]models.BaseRecord, MaxBatchRows+1))
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestCheckoutRemovesSelectionAndLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddStock(ctx, []models.BaseRecord{
		ringRow("神戸", "R1", "1"),
		ringRow("神戸", "R2", "2"),
		ringRow("神戸", "R3", "3"),
	})
	require.NoError(t, err)

	removed, err := f.svc.Checkout(ctx, "神戸", []int{1, 3})
	require.NoError(t, err)
	require.Len(t, removed, 2)
	assert.Equal(t, "R1", removed[0].Code)
	assert.Equal(t, "R3", removed[1].Code)

	records, err := f.svc.List(ctx, "神戸")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "R2", records[0].Code)
	assert.Equal(t, 1, records[0].No)

	entries, err := f.log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for _, entry := range entries[3:] {
		assert.Equal(t, models.OperationCheckout, entry.Operation)
		assert.Equal(t, "2024/06/15", entry.RemovedOn)
		assert.Empty(t, entry.Memo)
	}
}

func TestCheckoutUnknownSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddStock(ctx, []models.BaseRecord{ringRow("神戸", "R1", "1")})
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, "神戸", []int{1, 9})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	records, err := f.svc.List(ctx, "神戸")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = f.svc.Checkout(ctx, "札幌", []int{1})
	assert.ErrorIs(t, err, csvfile.ErrUnknownBase)

	removed, err := f.svc.Checkout(ctx, "神戸", nil)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestUpdateRecordKeepsPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddStock(ctx, []models.BaseRecord{
		ringRow("横浜", "R1", "1"),
		ringRow("横浜", "R2", "2"),
	})
	require.NoError(t, err)

	edit := ringRow("横浜", "R2-B", "2.5").Record
	edit.SideStone = "0.2"
	edit.ReceivedOn = "2024-01-05"
	saved, err := f.svc.UpdateRecord(ctx, "横浜", 2, edit)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.No)
	assert.Equal(t, "2.5CT", saved.Size)
	assert.Equal(t, "0.2ct", saved.SideStone)

	got, err := f.svc.Get(ctx, "横浜", 2)
	require.NoError(t, err)
	assert.Equal(t, "R2-B", got.Code)
	assert.Equal(t, "2024/01/05", got.ReceivedOn)

	_, err = f.svc.UpdateRecord(ctx, "横浜", 7, edit)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = f.svc.UpdateRecord(ctx, "横浜", 1, models.Record{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	entries, err := f.log.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "edits are not movements")
}

func TestListAllAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pendant := ringRow("横浜", "P9", "0.3")
	pendant.Item = "ペンダント"
	pendant.Note = "箱付き"
	_, err := f.svc.AddStock(ctx, []models.BaseRecord{ringRow("神戸", "R1", "1"), pendant})
	require.NoError(t, err)

	all, err := f.svc.ListAll(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "神戸", all[0].Base)

	onlyPendants, err := f.svc.ListAll(ctx, Filter{Item: "ペンダント"})
	require.NoError(t, err)
	require.Len(t, onlyPendants, 1)

	byNote, err := f.svc.ListAll(ctx, Filter{Keyword: "箱"})
	require.NoError(t, err)
	require.Len(t, byNote, 1)
	assert.Equal(t, "P9", byNote[0].Code)

	tags, err := f.svc.Lookup(ctx, []RecordKey{{Base: "横浜", No: 1}, {Base: "神戸", No: 1}})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "P9", tags[0].Code)

	_, err = f.svc.Lookup(ctx, []RecordKey{{Base: "神戸", No: 5}})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
