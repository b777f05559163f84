package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
)

// ErrUnknownBase indicates the requested base is not part of the configured set.
var ErrUnknownBase = errors.New("unknown base")

// RecordRepository defines the persistence operations for per-base record collections.
type RecordRepository interface {
	Bases() []string
	Load(ctx context.Context, base string) ([]models.Record, error)
	Save(ctx context.Context, base string, records []models.Record) error
	Update(ctx context.Context, base string, fn func([]models.Record) ([]models.Record, error)) error
}

// RecordStore keeps one CSV file per base. Every mutation rewrites the whole
// file through a temp file and rename, holding that base's mutex.
type RecordStore struct {
	dir    string
	bases  []string
	locks  map[string]*sync.Mutex
	logger *zap.Logger
}

// NewRecordStore prepares the data directory and one lock per base.
func NewRecordStore(dir string, bases []string, logger *zap.Logger) (*RecordStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	locks := make(map[string]*sync.Mutex, len(bases))
	for _, base := range bases {
		locks[base] = &sync.Mutex{}
	}

	return &RecordStore{
		dir:    dir,
		bases:  append([]string(nil), bases...),
		locks:  locks,
		logger: logger,
	}, nil
}

// Bases returns the configured bases in display order.
func (s *RecordStore) Bases() []string {
	return append([]string(nil), s.bases...)
}

// Load reads every record of a base. A base without a file yet has no records.
func (s *RecordStore) Load(ctx context.Context, base string) ([]models.Record, error) {
	mu, err := s.lockFor(base)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	return s.read(base)
}

// Save overwrites the base's collection, renumbering records 1..N.
func (s *RecordStore) Save(ctx context.Context, base string, records []models.Record) error {
	mu, err := s.lockFor(base)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	return s.write(base, records)
}

// Update runs a read-modify-write cycle on one base under its lock. When fn
// returns an error nothing is written.
func (s *RecordStore) Update(ctx context.Context, base string, fn func([]models.Record) ([]models.Record, error)) error {
	mu, err := s.lockFor(base)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	current, err := s.read(base)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	return s.write(base, next)
}

func (s *RecordStore) lockFor(base string) (*sync.Mutex, error) {
	mu, ok := s.locks[base]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBase, base)
	}
	return mu, nil
}

func (s *RecordStore) path(base string) string {
	return filepath.Join(s.dir, base+".csv")
}

func (s *RecordStore) read(base string) ([]models.Record, error) {
	rows, err := readRows(s.path(base))
	if err != nil {
		return nil, fmt.Errorf("read records of %s: %w", base, err)
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.RecordFromRow(row))
	}
	return records, nil
}

func (s *RecordStore) write(base string, records []models.Record) error {
	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		rec.No = i + 1
		rows = append(rows, rec.Row())
	}

	if err := writeAtomic(s.path(base), models.RecordHeader, rows); err != nil {
		return fmt.Errorf("write records of %s: %w", base, err)
	}

	s.logger.Debug("record file saved", zap.String("base", base), zap.Int("records", len(rows)))
	return nil
}

// readRows returns the data rows of a CSV file, dropping the header line.
func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}

// writeAtomic writes header and rows next to path and renames the result over it.
func writeAtomic(path string, header []string, rows [][]string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(header); err != nil {
		return err
	}
	if err = w.WriteAll(rows); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
