package inventory

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
)

// MaxBatchRows is the number of rows offered by the add-stock form.
const MaxBatchRows = 20

const (
	inputDateLayout = "2006-01-02"
	dateLayout      = "2006/01/02"
)

var (
	bareNumber       = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	sideStonePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(ct|carat|カラット)?$`)
	chainPattern     = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(cm|センチ)?$`)
)

// FieldProblem lists the required fields missing from one form row.
type FieldProblem struct {
	Row    int
	Fields []string
}

// ValidationError rejects a whole batch. Row numbers are 1-based form rows.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("row %d: %s", p.Row, strings.Join(p.Fields, ", ")))
	}
	return "missing required fields: " + strings.Join(parts, "; ")
}

// missingFields names the required columns left empty in rec. base is checked
// separately because it is not part of the record.
func missingFields(rec models.Record) []string {
	required := []struct {
		label string
		value string
	}{
		{"地金", rec.Metal},
		{"アイテム", rec.Item},
		{"中石", rec.CenterStone},
		{"サイズ", rec.Size},
		{"品番", rec.Code},
		{"上代", rec.ListPrice},
		{"下代", rec.WholesaleCode},
		{"入力者", rec.User},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.label)
		}
	}
	return missing
}

// normalizeRecord canonicalises units, the diamond size label, the receipt
// date and the numeric wholesale price of an accepted row.
func normalizeRecord(rec models.Record, catalog models.Catalog, today time.Time) models.Record {
	rec.Metal = strings.TrimSpace(rec.Metal)
	rec.Item = strings.TrimSpace(rec.Item)
	rec.CenterStone = strings.TrimSpace(rec.CenterStone)
	rec.Code = strings.TrimSpace(rec.Code)
	rec.User = strings.TrimSpace(rec.User)

	rec.SideStone = normalizeUnit(rec.SideStone, sideStonePattern, "ct")
	rec.ChainLength = normalizeUnit(rec.ChainLength, chainPattern, "cm")
	rec.Size = normalizeSize(rec.CenterStone, rec.Size, catalog)
	rec.ReceivedOn = normalizeDate(rec.ReceivedOn, today)

	if strings.TrimSpace(rec.WholesalePrice) == "" {
		if amount := models.ParseAmount(rec.WholesaleCode); !amount.IsZero() {
			rec.WholesalePrice = amount.String()
		}
	}
	return rec
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(s)))
}

// normalizeUnit rewrites "0.3", "0.3CT" or "０．３ｃｔ" to "0.3"+unit. Values
// that are not a number with an optional known unit are returned unchanged.
func normalizeUnit(raw string, pattern *regexp.Regexp, unit string) string {
	m := pattern.FindStringSubmatch(fold(raw))
	if m == nil {
		return raw
	}
	return m[1] + unit
}

// normalizeSize labels bare diamond sizes of one carat or more: "1" becomes
// "CT" and "1.5" becomes "1.5CT".
func normalizeSize(stone, size string, catalog models.Catalog) string {
	if !catalog.IsDiamond(stone) {
		return size
	}
	folded := fold(size)
	if !bareNumber.MatchString(folded) {
		return size
	}
	value, err := decimal.NewFromString(folded)
	if err != nil || value.LessThan(decimal.NewFromInt(1)) {
		return size
	}
	if value.Equal(decimal.NewFromInt(1)) {
		return "CT"
	}
	return value.String() + "CT"
}

// normalizeDate accepts the date picker's YYYY-MM-DD and stores YYYY/MM/DD.
// Blank means today; other input only has its dashes swapped.
func normalizeDate(raw string, today time.Time) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return today.Format(dateLayout)
	}
	if t, err := time.Parse(inputDateLayout, trimmed); err == nil {
		return t.Format(dateLayout)
	}
	return strings.ReplaceAll(trimmed, "-", "/")
}

// NormalizeDateFilter turns a filter bound into the stored date form.
func NormalizeDateFilter(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if t, err := time.Parse(inputDateLayout, trimmed); err == nil {
		return t.Format(dateLayout)
	}
	return strings.ReplaceAll(trimmed, "-", "/")
}
