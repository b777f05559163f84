package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BucketSummary accumulates one category of a summary.
type BucketSummary struct {
	Name             string
	Count            int
	ListTotal        decimal.Decimal
	WholesaleTotal   decimal.Decimal
	ListDisplay      string
	WholesaleDisplay string
}

// Summary is the category breakdown shown under inventory and log listings.
type Summary struct {
	Buckets []BucketSummary
	Total   BucketSummary
}

// Bucket returns the named bucket, or a zero value when absent.
func (s Summary) Bucket(name string) BucketSummary {
	for _, b := range s.Buckets {
		if b.Name == name {
			return b
		}
	}
	return BucketSummary{Name: name}
}

// BucketTotals is the persisted form of a BucketSummary. Yen carries no
// fraction, so totals are whole numbers.
type BucketTotals struct {
	Name           string `bson:"name" json:"name"`
	Count          int    `bson:"count" json:"count"`
	ListTotal      int64  `bson:"list_total" json:"list_total"`
	WholesaleTotal int64  `bson:"wholesale_total" json:"wholesale_total"`
}

// BaseSnapshot is one base's summary inside a daily snapshot.
type BaseSnapshot struct {
	Base    string         `bson:"base" json:"base"`
	Buckets []BucketTotals `bson:"buckets" json:"buckets"`
	Total   BucketTotals   `bson:"total" json:"total"`
}

// InventorySnapshot represents the end-of-day inventory stored in MongoDB.
type InventorySnapshot struct {
	Date      time.Time      `bson:"date" json:"date"`
	Bases     []BaseSnapshot `bson:"bases" json:"bases"`
	Total     BucketTotals   `bson:"total" json:"total"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

// Totals converts a bucket into its persisted form.
func (b BucketSummary) Totals() BucketTotals {
	return BucketTotals{
		Name:           b.Name,
		Count:          b.Count,
		ListTotal:      b.ListTotal.IntPart(),
		WholesaleTotal: b.WholesaleTotal.IntPart(),
	}
}
