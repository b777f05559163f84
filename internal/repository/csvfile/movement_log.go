package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
)

// ErrEntryNotFound indicates a log index outside the current log.
var ErrEntryNotFound = errors.New("log entry not found")

// Mirror receives a copy of every appended log entry.
type Mirror interface {
	AppendEntry(ctx context.Context, entry models.LogEntry) error
}

// LogRepository defines the operations supported by the movement log.
type LogRepository interface {
	Append(ctx context.Context, entries ...models.LogEntry) error
	List(ctx context.Context) ([]models.LogEntry, error)
	UpdateMemo(ctx context.Context, index int, memo string) (models.LogEntry, error)
	Export(ctx context.Context, w io.Writer) error
}

// MovementLog is the append-only log file. Appends and the memo rewrite share
// one mutex, so an index read by a caller keeps pointing at the same row.
type MovementLog struct {
	path   string
	mu     sync.Mutex
	mirror Mirror
	logger *zap.Logger
}

// NewMovementLog opens (lazily) the log at path. mirror may be nil.
func NewMovementLog(path string, mirror Mirror, logger *zap.Logger) (*MovementLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &MovementLog{path: path, mirror: mirror, logger: logger}, nil
}

// Append adds entries to the end of the log, writing the header first when the
// file is new.
func (l *MovementLog) Append(ctx context.Context, entries ...models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(models.LogHeader); err != nil {
			return fmt.Errorf("write log header: %w", err)
		}
	}
	for _, entry := range entries {
		if err := w.Write(entry.Row()); err != nil {
			return fmt.Errorf("append log entry: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush log: %w", err)
	}

	l.logger.Debug("log entries appended", zap.Int("count", len(entries)))

	if l.mirror != nil {
		for _, entry := range entries {
			if err := l.mirror.AppendEntry(ctx, entry); err != nil {
				l.logger.Warn("log mirror append failed", zap.Error(err),
					zap.String("base", entry.Base), zap.String("code", entry.Record.Code))
			}
		}
	}

	return nil
}

// List returns every entry in file order.
func (l *MovementLog) List(ctx context.Context) ([]models.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.read()
}

// UpdateMemo rewrites the memo column of one entry, rewriting the whole file.
func (l *MovementLog) UpdateMemo(ctx context.Context, index int, memo string) (models.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.LogEntry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return models.LogEntry{}, err
	}
	if index < 0 || index >= len(entries) {
		return models.LogEntry{}, fmt.Errorf("%w: %d", ErrEntryNotFound, index)
	}

	entries[index].Memo = memo

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, entry.Row())
	}
	if err := writeAtomic(l.path, models.LogHeader, rows); err != nil {
		return models.LogEntry{}, fmt.Errorf("rewrite log: %w", err)
	}

	l.logger.Info("log memo updated", zap.Int("index", index))
	return entries[index], nil
}

// Export streams the log, header included, as CSV.
func (l *MovementLog) Export(ctx context.Context, w io.Writer) error {
	entries, err := l.List(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(models.LogHeader); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := cw.Write(entry.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (l *MovementLog) read() ([]models.LogEntry, error) {
	rows, err := readRows(l.path)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	entries := make([]models.LogEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, models.LogEntryFromRow(row, i))
	}
	return entries, nil
}
