package models

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

var amountReplacer = strings.NewReplacer(",", "", "¥", "", "円", "", " ", "")

// ParseAmount reads a price cell such as "10,000", "¥10,000" or "１００００".
// Anything unparseable counts as zero.
func ParseAmount(raw string) decimal.Decimal {
	cleaned := amountReplacer.Replace(width.Fold.String(strings.TrimSpace(raw)))
	if cleaned == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// ListAmount is the parsed list price (上代).
func (r Record) ListAmount() decimal.Decimal {
	return ParseAmount(r.ListPrice)
}

// WholesaleAmount is the parsed numeric wholesale price, falling back to the
// wholesale code when the numeric column was never filled.
func (r Record) WholesaleAmount() decimal.Decimal {
	if strings.TrimSpace(r.WholesalePrice) != "" {
		return ParseAmount(r.WholesalePrice)
	}
	return ParseAmount(r.WholesaleCode)
}
