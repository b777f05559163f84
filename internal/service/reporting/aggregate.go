package reporting

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
)

var bucketLabels = map[string]string{
	models.BucketRing:    "リング",
	models.BucketPendant: "ペンダント",
	models.BucketChain:   "チェーン",
	models.BucketOther:   "その他",
}

// BucketLabel is the display name of a summary bucket.
func BucketLabel(name string) string {
	if label, ok := bucketLabels[name]; ok {
		return label
	}
	return name
}

// FormatYen renders an amount as yen with thousands separators.
func FormatYen(amount decimal.Decimal) string {
	return money.New(amount.Round(0).IntPart(), money.JPY).Display()
}

// Summarize buckets inventory records by item type and totals both prices.
func Summarize(records []models.Record, catalog models.Catalog) models.Summary {
	return summarize(records, catalog)
}

// SummarizeEntries buckets the record snapshots carried by log entries.
func SummarizeEntries(entries []models.LogEntry, catalog models.Catalog) models.Summary {
	records := make([]models.Record, len(entries))
	for i, entry := range entries {
		records[i] = entry.Record
	}
	return summarize(records, catalog)
}

// SummarizeBaseRecords is Summarize for the consolidated view.
func SummarizeBaseRecords(records []models.BaseRecord, catalog models.Catalog) models.Summary {
	plain := make([]models.Record, len(records))
	for i, rec := range records {
		plain[i] = rec.Record
	}
	return summarize(plain, catalog)
}

func summarize(records []models.Record, catalog models.Catalog) models.Summary {
	names := catalog.BucketNames()
	index := make(map[string]int, len(names))
	buckets := make([]models.BucketSummary, len(names))
	for i, name := range names {
		index[name] = i
		buckets[i] = models.BucketSummary{Name: name, ListTotal: decimal.Zero, WholesaleTotal: decimal.Zero}
	}
	total := models.BucketSummary{Name: "total", ListTotal: decimal.Zero, WholesaleTotal: decimal.Zero}

	for _, rec := range records {
		list := rec.ListAmount()
		wholesale := rec.WholesaleAmount()

		b := &buckets[index[catalog.Classify(rec.Item)]]
		b.Count++
		b.ListTotal = b.ListTotal.Add(list)
		b.WholesaleTotal = b.WholesaleTotal.Add(wholesale)

		total.Count++
		total.ListTotal = total.ListTotal.Add(list)
		total.WholesaleTotal = total.WholesaleTotal.Add(wholesale)
	}

	for i := range buckets {
		buckets[i].ListDisplay = FormatYen(buckets[i].ListTotal)
		buckets[i].WholesaleDisplay = FormatYen(buckets[i].WholesaleTotal)
	}
	total.ListDisplay = FormatYen(total.ListTotal)
	total.WholesaleDisplay = FormatYen(total.WholesaleTotal)

	return models.Summary{Buckets: buckets, Total: total}
}
