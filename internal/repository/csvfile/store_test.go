package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
)

func newStore(t *testing.T) *RecordStore {
	t.Helper()
	store, err := NewRecordStore(t.TempDir(), []string{"神戸", "横浜"}, nil)
	require.NoError(t, err)
	return store
}

func TestRecordStoreLoadMissingFile(t *testing.T) {
	store := newStore(t)

	records, err := store.Load(context.Background(), "神戸")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordStoreUnknownBase(t *testing.T) {
	store := newStore(t)

	_, err := store.Load(context.Background(), "札幌")
	assert.ErrorIs(t, err, ErrUnknownBase)
	assert.ErrorIs(t, store.Save(context.Background(), "札幌", nil), ErrUnknownBase)
}

func TestRecordStoreSaveRenumbers(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	in := []models.Record{
		{No: 9, Code: "A"},
		{No: 9, Code: "B"},
		{No: 2, Code: "C"},
	}
	require.NoError(t, store.Save(ctx, "神戸", in))
	assert.Equal(t, 9, in[0].No, "caller slice is left untouched")

	out, err := store.Load(ctx, "神戸")
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, rec := range out {
		assert.Equal(t, i+1, rec.No)
	}
	assert.Equal(t, "C", out[2].Code)

	f, err := os.Open(filepath.Join(store.dir, "神戸.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, models.RecordHeader, rows[0])

	tmps, err := filepath.Glob(filepath.Join(store.dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmps)
}

func TestRecordStoreUpdateAbortsOnError(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "横浜", []models.Record{{Code: "keep"}}))

	boom := errors.New("boom")
	err := store.Update(ctx, "横浜", func(records []models.Record) ([]models.Record, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	out, err := store.Load(ctx, "横浜")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "keep", out[0].Code)
}

func TestRecordStoreConcurrentUpdatesKeepEveryRow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Update(ctx, "神戸", func(records []models.Record) ([]models.Record, error) {
				return append(records, models.Record{Code: fmt.Sprintf("C%02d", i)}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	out, err := store.Load(ctx, "神戸")
	require.NoError(t, err)
	assert.Len(t, out, writers)
}

func TestMovementLogAppendListAndMemo(t *testing.T) {
	dir := t.TempDir()
	mirror := &recordingMirror{}
	log, err := NewMovementLog(filepath.Join(dir, "log.csv"), mirror, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx,
		models.NewLogEntry(models.OperationReceipt, "神戸", models.Record{No: 1, Code: "R1"}, ""),
		models.NewLogEntry(models.OperationCheckout, "横浜", models.Record{No: 4, Code: "R2"}, "2024/06/01"),
	))
	require.NoError(t, log.Append(ctx,
		models.NewLogEntry(models.OperationReceipt, "神戸", models.Record{No: 2, Code: "R3"}, ""),
	))
	assert.Len(t, mirror.entries, 3)

	entries, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{entries[0].Index, entries[1].Index, entries[2].Index})
	assert.Equal(t, models.OperationCheckout, entries[1].Operation)
	assert.Equal(t, "2024/06/01", entries[1].RemovedOn)

	updated, err := log.UpdateMemo(ctx, 1, "顧客返品")
	require.NoError(t, err)
	assert.Equal(t, "R2", updated.Record.Code)

	entries, err = log.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "顧客返品", entries[1].Memo)
	assert.Equal(t, "R3", entries[2].Record.Code, "row order is preserved")

	_, err = log.UpdateMemo(ctx, 3, "x")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	var buf bytes.Buffer
	require.NoError(t, log.Export(ctx, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, models.LogHeader, rows[0])
}

func TestMovementLogMirrorFailureIsNotFatal(t *testing.T) {
	log, err := NewMovementLog(filepath.Join(t.TempDir(), "log.csv"), &recordingMirror{err: errors.New("offline")}, nil)
	require.NoError(t, err)

	err = log.Append(context.Background(), models.NewLogEntry(models.OperationReceipt, "神戸", models.Record{}, ""))
	assert.NoError(t, err)
}

type recordingMirror struct {
	mu      sync.Mutex
	entries []models.LogEntry
	err     error
}

func (m *recordingMirror) AppendEntry(_ context.Context, entry models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}
