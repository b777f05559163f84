package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/repository/csvfile"
)

var (
	// ErrRecordNotFound indicates a sequence number that is not in the base.
	ErrRecordNotFound = errors.New("record not found")

	// ErrEmptyBatch indicates every row of an add-stock form was blank.
	ErrEmptyBatch = errors.New("no rows to add")

	// ErrBatchTooLarge indicates more rows than the form offers.
	ErrBatchTooLarge = fmt.Errorf("batch exceeds %d rows", MaxBatchRows)
)

// RecordKey addresses one record: a base and its current sequence number.
type RecordKey struct {
	Base string
	No   int
}

// Filter narrows the consolidated inventory view. Empty fields match everything.
type Filter struct {
	Base    string
	Item    string
	Keyword string
}

// Service implements receipt, checkout and editing of line items.
type Service struct {
	store   csvfile.RecordRepository
	log     csvfile.LogRepository
	catalog models.Catalog
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the inventory service.
func NewService(store csvfile.RecordRepository, log csvfile.LogRepository, catalog models.Catalog, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:   store,
		log:     log,
		catalog: catalog,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Bases returns the configured bases in display order.
func (s *Service) Bases() []string {
	return s.store.Bases()
}

// Catalog exposes the vocabularies used by forms.
func (s *Service) Catalog() models.Catalog {
	return s.catalog
}

// Today is the current date in the shop's timezone, formatted as stored.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(dateLayout)
}

// List returns one base's records in stored order.
func (s *Service) List(ctx context.Context, base string) ([]models.Record, error) {
	return s.store.Load(ctx, base)
}

// Get returns a single record by sequence number.
func (s *Service) Get(ctx context.Context, base string, no int) (models.Record, error) {
	records, err := s.store.Load(ctx, base)
	if err != nil {
		return models.Record{}, err
	}
	for _, rec := range records {
		if rec.No == no {
			return rec, nil
		}
	}
	return models.Record{}, fmt.Errorf("%w: %s #%d", ErrRecordNotFound, base, no)
}

// ListAll returns every base's records, base by base, narrowed by f.
func (s *Service) ListAll(ctx context.Context, f Filter) ([]models.BaseRecord, error) {
	var out []models.BaseRecord
	for _, base := range s.store.Bases() {
		if f.Base != "" && f.Base != base {
			continue
		}
		records, err := s.store.Load(ctx, base)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if f.matches(rec) {
				out = append(out, models.BaseRecord{Base: base, Record: rec})
			}
		}
	}
	return out, nil
}

func (f Filter) matches(rec models.Record) bool {
	if f.Item != "" && !strings.Contains(rec.Item, f.Item) {
		return false
	}
	if f.Keyword == "" {
		return true
	}
	keyword := strings.ToLower(f.Keyword)
	for _, field := range []string{rec.Code, rec.Metal, rec.CenterStone, rec.SideStone, rec.Note, rec.User} {
		if strings.Contains(strings.ToLower(field), keyword) {
			return true
		}
	}
	return false
}

// Lookup resolves record keys, keeping the order they were given in.
func (s *Service) Lookup(ctx context.Context, keys []RecordKey) ([]models.BaseRecord, error) {
	cache := make(map[string][]models.Record)
	out := make([]models.BaseRecord, 0, len(keys))

	for _, key := range keys {
		records, ok := cache[key.Base]
		if !ok {
			loaded, err := s.store.Load(ctx, key.Base)
			if err != nil {
				return nil, err
			}
			records = loaded
			cache[key.Base] = loaded
		}

		found := false
		for _, rec := range records {
			if rec.No == key.No {
				out = append(out, models.BaseRecord{Base: key.Base, Record: rec})
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s #%d", ErrRecordNotFound, key.Base, key.No)
		}
	}
	return out, nil
}

// AddStock validates and normalizes a form batch, inserts the rows into their
// bases, re-sorts each affected base and logs one receipt per row. A single
// invalid row rejects the whole batch.
func (s *Service) AddStock(ctx context.Context, rows []models.BaseRecord) ([]models.BaseRecord, error) {
	if len(rows) > MaxBatchRows {
		return nil, ErrBatchTooLarge
	}

	known := make(map[string]bool)
	for _, base := range s.store.Bases() {
		known[base] = true
	}

	today := s.now().In(s.loc)
	pending := make(map[string][]models.Record)
	var problems []FieldProblem

	for i, row := range rows {
		if row.Record.IsBlank() {
			continue
		}

		missing := missingFields(row.Record)
		if row.Base == "" {
			missing = append([]string{"拠点"}, missing...)
		} else if !known[row.Base] {
			missing = append([]string{"拠点(" + row.Base + ")"}, missing...)
		}
		if len(missing) > 0 {
			problems = append(problems, FieldProblem{Row: i + 1, Fields: missing})
			continue
		}

		rec := normalizeRecord(row.Record, s.catalog, today)
		rec.No = 0
		rec.OutFlag = ""
		pending[row.Base] = append(pending[row.Base], rec)
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	if len(pending) == 0 {
		return nil, ErrEmptyBatch
	}

	var added []models.BaseRecord
	for _, base := range s.store.Bases() {
		incoming, ok := pending[base]
		if !ok {
			continue
		}

		var inserted []models.Record
		err := s.store.Update(ctx, base, func(current []models.Record) ([]models.Record, error) {
			combined := append(append(make([]models.Record, 0, len(current)+len(incoming)), current...), incoming...)
			order := sortOrder(combined, s.catalog)

			sorted := make([]models.Record, len(combined))
			inserted = inserted[:0]
			for pos, idx := range order {
				sorted[pos] = combined[idx]
				sorted[pos].No = pos + 1
				if idx >= len(current) {
					inserted = append(inserted, sorted[pos])
				}
			}
			return sorted, nil
		})
		if err != nil {
			return added, fmt.Errorf("add stock to %s: %w", base, err)
		}

		entries := make([]models.LogEntry, 0, len(inserted))
		for _, rec := range inserted {
			entries = append(entries, models.NewLogEntry(models.OperationReceipt, base, rec, ""))
			added = append(added, models.BaseRecord{Base: base, Record: rec})
		}
		if err := s.log.Append(ctx, entries...); err != nil {
			s.logger.Error("receipt saved but log append failed",
				zap.String("base", base), zap.Int("records", len(entries)), zap.Error(err))
			return added, fmt.Errorf("log receipts for %s: %w", base, err)
		}

		s.logger.Info("stock received", zap.String("base", base), zap.Int("records", len(inserted)))
	}

	return added, nil
}

// Checkout removes the selected records from a base and logs one removal per
// record, dated today. Unknown sequence numbers abort without changes.
func (s *Service) Checkout(ctx context.Context, base string, nos []int) ([]models.Record, error) {
	if len(nos) == 0 {
		if _, err := s.store.Load(ctx, base); err != nil {
			return nil, err
		}
		return nil, nil
	}

	selected := make(map[int]bool, len(nos))
	for _, no := range nos {
		selected[no] = true
	}

	var removed []models.Record
	err := s.store.Update(ctx, base, func(current []models.Record) ([]models.Record, error) {
		removed = removed[:0]
		kept := make([]models.Record, 0, len(current))
		for _, rec := range current {
			if selected[rec.No] {
				removed = append(removed, rec)
				continue
			}
			kept = append(kept, rec)
		}
		if len(removed) != len(selected) {
			return nil, fmt.Errorf("%w: %d of %d selected records in %s", ErrRecordNotFound, len(selected)-len(removed), len(selected), base)
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}

	removedOn := s.Today()
	entries := make([]models.LogEntry, 0, len(removed))
	for _, rec := range removed {
		entries = append(entries, models.NewLogEntry(models.OperationCheckout, base, rec, removedOn))
	}
	if err := s.log.Append(ctx, entries...); err != nil {
		codes := make([]string, 0, len(removed))
		for _, rec := range removed {
			codes = append(codes, rec.Code)
		}
		s.logger.Error("checkout saved but log append failed",
			zap.String("base", base), zap.Strings("codes", codes), zap.Error(err))
		return removed, fmt.Errorf("log checkout for %s: %w", base, err)
	}

	s.logger.Info("stock checked out", zap.String("base", base), zap.Int("records", len(removed)))
	return removed, nil
}

// UpdateRecord replaces the fields of one line item in place. The record keeps
// its position and out-flag; no log entry is written.
func (s *Service) UpdateRecord(ctx context.Context, base string, no int, rec models.Record) (models.Record, error) {
	if missing := missingFields(rec); len(missing) > 0 {
		return models.Record{}, &ValidationError{Problems: []FieldProblem{{Row: 1, Fields: missing}}}
	}

	rec = normalizeRecord(rec, s.catalog, s.now().In(s.loc))

	var saved models.Record
	err := s.store.Update(ctx, base, func(current []models.Record) ([]models.Record, error) {
		for i := range current {
			if current[i].No != no {
				continue
			}
			rec.No = no
			rec.OutFlag = current[i].OutFlag
			current[i] = rec
			saved = rec
			return current, nil
		}
		return nil, fmt.Errorf("%w: %s #%d", ErrRecordNotFound, base, no)
	})
	if err != nil {
		return models.Record{}, err
	}

	s.logger.Info("record updated", zap.String("base", base), zap.Int("no", no), zap.String("code", saved.Code))
	return saved, nil
}
