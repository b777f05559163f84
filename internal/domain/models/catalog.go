package models

import "strings"

// Bucket names used by inventory summaries.
const (
	BucketRing    = "ring"
	BucketPendant = "pendant"
	BucketChain   = "chain"
	BucketOther   = "other"
)

// BucketRule maps an item-type substring to a summary bucket.
type BucketRule struct {
	Name     string
	Keywords []string
}

// Catalog holds the fixed vocabularies that drive sorting, size labelling
// and summary buckets. It is built once at startup and never mutated.
type Catalog struct {
	ItemTypes     []string
	Metals        []string
	CenterStones  []string
	DiamondTokens []string
	Buckets       []BucketRule
}

// DefaultCatalog returns the shop's standard vocabularies.
func DefaultCatalog() Catalog {
	return Catalog{
		ItemTypes: []string{
			"リング", "ペンダント", "ネックレス", "チェーン", "ピアス", "イヤリング", "ブレスレット", "ブローチ",
		},
		Metals: []string{
			"Pt950", "Pt900", "Pt850", "K18", "K18WG", "K18PG", "K18YG", "K14", "K10", "SV",
		},
		CenterStones: []string{
			"ダイヤ", "ルビー", "サファイア", "エメラルド", "パール", "オパール", "アメジスト", "トルマリン", "なし",
		},
		DiamondTokens: []string{"ダイヤ", "diamond"},
		Buckets: []BucketRule{
			{Name: BucketRing, Keywords: []string{"リング", "ring"}},
			{Name: BucketPendant, Keywords: []string{"ペンダント", "pendant"}},
			{Name: BucketChain, Keywords: []string{"チェーン", "chain"}},
		},
	}
}

// BucketNames returns every bucket in display order, "other" last.
func (c Catalog) BucketNames() []string {
	names := make([]string, 0, len(c.Buckets)+1)
	for _, rule := range c.Buckets {
		names = append(names, rule.Name)
	}
	return append(names, BucketOther)
}

// Classify picks the first bucket whose keyword appears in item.
func (c Catalog) Classify(item string) string {
	lowered := strings.ToLower(item)
	for _, rule := range c.Buckets {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				return rule.Name
			}
		}
	}
	return BucketOther
}

// ItemRank, MetalRank and StoneRank return the position of v in the matching
// preference list; unknown values rank after every known one.
func (c Catalog) ItemRank(v string) int  { return rank(c.ItemTypes, v) }
func (c Catalog) MetalRank(v string) int { return rank(c.Metals, v) }
func (c Catalog) StoneRank(v string) int { return rank(c.CenterStones, v) }

// IsDiamond reports whether a center-stone value names a diamond.
func (c Catalog) IsDiamond(stone string) bool {
	lowered := strings.ToLower(strings.TrimSpace(stone))
	if lowered == "" {
		return false
	}
	for _, token := range c.DiamondTokens {
		if strings.Contains(lowered, strings.ToLower(token)) {
			return true
		}
	}
	return false
}

func rank(list []string, v string) int {
	v = strings.TrimSpace(v)
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return len(list)
}
