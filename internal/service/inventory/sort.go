package inventory

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
)

type sortKey struct {
	item      int
	metal     int
	stone     int
	size      decimal.Decimal
	code      string
	wholesale decimal.Decimal
}

func keyOf(rec models.Record, catalog models.Catalog) sortKey {
	return sortKey{
		item:      catalog.ItemRank(rec.Item),
		metal:     catalog.MetalRank(rec.Metal),
		stone:     catalog.StoneRank(rec.CenterStone),
		size:      parseSize(rec.Size),
		code:      rec.Code,
		wholesale: rec.WholesaleAmount(),
	}
}

func (a sortKey) less(b sortKey) bool {
	switch {
	case a.item != b.item:
		return a.item < b.item
	case a.metal != b.metal:
		return a.metal < b.metal
	case a.stone != b.stone:
		return a.stone < b.stone
	case !a.size.Equal(b.size):
		return a.size.LessThan(b.size)
	case a.code != b.code:
		return a.code < b.code
	default:
		return a.wholesale.LessThan(b.wholesale)
	}
}

// parseSize reads "1.5ct", "1.5 CT", "CT" (one carat) or a plain number.
// Ring sizes such as "11" parse as numbers; anything else is zero.
func parseSize(raw string) decimal.Decimal {
	s := fold(raw)
	if s == "ct" {
		return decimal.NewFromInt(1)
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "ct"))
	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// sortOrder returns the permutation that stably sorts records.
func sortOrder(records []models.Record, catalog models.Catalog) []int {
	keys := make([]sortKey, len(records))
	order := make([]int, len(records))
	for i, rec := range records {
		keys[i] = keyOf(rec, catalog)
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return keys[order[i]].less(keys[order[j]])
	})
	return order
}

// SortRecords returns a sorted, renumbered copy of records.
func SortRecords(records []models.Record, catalog models.Catalog) []models.Record {
	order := sortOrder(records, catalog)
	out := make([]models.Record, len(records))
	for i, idx := range order {
		out[i] = records[idx]
		out[i].No = i + 1
	}
	return out
}
