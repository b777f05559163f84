package movements

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/repository/csvfile"
	"github.com/mamadbah2/jewelstock/internal/service/inventory"
)

// Filter narrows the movement log. Dates are inclusive and compared against
// the receipt date for 入庫 entries and the removal date for 出庫 entries.
type Filter struct {
	Operation models.Operation
	Base      string
	From      string
	To        string
	Keyword   string
}

// Service exposes read access to the movement log and the memo edit.
type Service struct {
	log    csvfile.LogRepository
	logger *zap.Logger
}

// NewService wires the movement log service.
func NewService(log csvfile.LogRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{log: log, logger: logger}
}

// List returns the entries matching f in log order.
func (s *Service) List(ctx context.Context, f Filter) ([]models.LogEntry, error) {
	entries, err := s.log.List(ctx)
	if err != nil {
		return nil, err
	}

	f.From = inventory.NormalizeDateFilter(f.From)
	f.To = inventory.NormalizeDateFilter(f.To)

	out := make([]models.LogEntry, 0, len(entries))
	for _, entry := range entries {
		if f.matches(entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// UpdateMemo replaces the memo of the entry at index.
func (s *Service) UpdateMemo(ctx context.Context, index int, memo string) (models.LogEntry, error) {
	return s.log.UpdateMemo(ctx, index, strings.TrimSpace(memo))
}

// Export writes the whole log as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	return s.log.Export(ctx, w)
}

func (f Filter) matches(e models.LogEntry) bool {
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if f.Base != "" && e.Base != f.Base {
		return false
	}

	if f.From != "" || f.To != "" {
		date := e.Record.ReceivedOn
		if e.Operation == models.OperationCheckout {
			date = e.RemovedOn
		}
		if f.From != "" && date < f.From {
			return false
		}
		if f.To != "" && date > f.To {
			return false
		}
	}

	if f.Keyword != "" {
		keyword := strings.ToLower(f.Keyword)
		hit := false
		for _, field := range []string{e.Record.Code, e.Record.Item, e.Record.Note, e.Memo, e.Record.User} {
			if strings.Contains(strings.ToLower(field), keyword) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
