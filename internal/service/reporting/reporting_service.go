package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/repository/csvfile"
)

const dateLayout = "2006/01/02"

// SnapshotStore persists daily snapshots. A nil store disables persistence.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot models.InventorySnapshot) error
	LatestSnapshot(ctx context.Context) (*models.InventorySnapshot, error)
}

// BaseSummary is one base's summary, in base display order.
type BaseSummary struct {
	Base    string
	Summary models.Summary
}

// Service builds inventory summaries and the daily report.
type Service struct {
	store     csvfile.RecordRepository
	snapshots SnapshotStore
	catalog   models.Catalog
	loc       *time.Location
	logger    *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(store csvfile.RecordRepository, snapshots SnapshotStore, catalog models.Catalog, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, snapshots: snapshots, catalog: catalog, loc: loc, logger: logger}
}

// SummarizeBases summarizes every base and the whole company.
func (s *Service) SummarizeBases(ctx context.Context) ([]BaseSummary, models.Summary, error) {
	var (
		perBase []BaseSummary
		all     []models.Record
	)
	for _, base := range s.store.Bases() {
		records, err := s.store.Load(ctx, base)
		if err != nil {
			return nil, models.Summary{}, fmt.Errorf("load %s: %w", base, err)
		}
		perBase = append(perBase, BaseSummary{Base: base, Summary: Summarize(records, s.catalog)})
		all = append(all, records...)
	}
	return perBase, Summarize(all, s.catalog), nil
}

// BuildSnapshot captures the current inventory for the day containing now.
func (s *Service) BuildSnapshot(ctx context.Context, now time.Time) (models.InventorySnapshot, error) {
	perBase, total, err := s.SummarizeBases(ctx)
	if err != nil {
		return models.InventorySnapshot{}, err
	}

	local := now.In(s.loc)
	snapshot := models.InventorySnapshot{
		Date:      time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
		Total:     total.Total.Totals(),
		CreatedAt: now.UTC(),
	}
	for _, bs := range perBase {
		entry := models.BaseSnapshot{Base: bs.Base, Total: bs.Summary.Total.Totals()}
		for _, b := range bs.Summary.Buckets {
			entry.Buckets = append(entry.Buckets, b.Totals())
		}
		snapshot.Bases = append(snapshot.Bases, entry)
	}
	return snapshot, nil
}

// GenerateDailyReport stores today's snapshot (when a store is configured) and
// renders the text report, including the change since the previous snapshot.
func (s *Service) GenerateDailyReport(ctx context.Context, now time.Time) (string, error) {
	snapshot, err := s.BuildSnapshot(ctx, now)
	if err != nil {
		return "", err
	}

	var previous *models.InventorySnapshot
	if s.snapshots != nil {
		previous, err = s.snapshots.LatestSnapshot(ctx)
		if err != nil {
			s.logger.Warn("previous snapshot lookup failed", zap.Error(err))
			previous = nil
		}
		if previous != nil && previous.Date.Equal(snapshot.Date) {
			previous = nil
		}
		if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			return "", fmt.Errorf("save snapshot: %w", err)
		}
	}

	return FormatReport(snapshot, previous), nil
}

// FormatReport renders a snapshot as the plain-text daily report.
func FormatReport(snapshot models.InventorySnapshot, previous *models.InventorySnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "在庫日報 %s\n", snapshot.Date.Format(dateLayout))

	for _, base := range snapshot.Bases {
		fmt.Fprintf(&b, "%s: %d点 上代 %s / 下代 %s\n", base.Base, base.Total.Count,
			yen(base.Total.ListTotal), yen(base.Total.WholesaleTotal))
	}

	fmt.Fprintf(&b, "合計: %d点 上代 %s / 下代 %s", snapshot.Total.Count,
		yen(snapshot.Total.ListTotal), yen(snapshot.Total.WholesaleTotal))
	if previous != nil {
		fmt.Fprintf(&b, " (前回比 %+d点)", snapshot.Total.Count-previous.Total.Count)
	}
	b.WriteString("\n")

	counts := make(map[string]int)
	var order []string
	for _, base := range snapshot.Bases {
		for _, bucket := range base.Buckets {
			if _, seen := counts[bucket.Name]; !seen {
				order = append(order, bucket.Name)
			}
			counts[bucket.Name] += bucket.Count
		}
	}
	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, fmt.Sprintf("%s %d点", BucketLabel(name), counts[name]))
	}
	b.WriteString(strings.Join(parts, " / "))

	return b.String()
}

func yen(amount int64) string {
	return money.New(amount, money.JPY).Display()
}
