package models

import (
	"strconv"
	"strings"
)

// RecordHeader is the first line of every per-base record file.
var RecordHeader = []string{
	"No.", "出庫", "地金", "アイテム", "中石", "サイズ", "品番",
	"上代", "下代", "脇石", "チェーン長", "摘要", "入力者", "入庫日", "下代（数値）",
}

// Record is one line item held by a base. No is reassigned 1..N whenever the
// base's collection is saved, so (base, No) only identifies a record until the
// next write.
type Record struct {
	No             int
	OutFlag        string
	Metal          string
	Item           string
	CenterStone    string
	Size           string
	Code           string
	ListPrice      string
	WholesaleCode  string
	SideStone      string
	ChainLength    string
	Note           string
	User           string
	ReceivedOn     string
	WholesalePrice string
}

// Row renders the record in file column order.
func (r Record) Row() []string {
	return []string{
		strconv.Itoa(r.No), r.OutFlag, r.Metal, r.Item, r.CenterStone, r.Size, r.Code,
		r.ListPrice, r.WholesaleCode, r.SideStone, r.ChainLength, r.Note, r.User,
		r.ReceivedOn, r.WholesalePrice,
	}
}

// RecordFromRow maps a file row back into a Record. Short rows are padded and
// a malformed sequence number becomes 0.
func RecordFromRow(row []string) Record {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	no, _ := strconv.Atoi(strings.TrimSpace(cell(0)))

	return Record{
		No:             no,
		OutFlag:        cell(1),
		Metal:          cell(2),
		Item:           cell(3),
		CenterStone:    cell(4),
		Size:           cell(5),
		Code:           cell(6),
		ListPrice:      cell(7),
		WholesaleCode:  cell(8),
		SideStone:      cell(9),
		ChainLength:    cell(10),
		Note:           cell(11),
		User:           cell(12),
		ReceivedOn:     cell(13),
		WholesalePrice: cell(14),
	}
}

// IsBlank reports whether every user-entered field is empty, which is how an
// unused row of the add-stock form arrives.
func (r Record) IsBlank() bool {
	for _, v := range []string{
		r.Metal, r.Item, r.CenterStone, r.Size, r.Code, r.ListPrice, r.WholesaleCode,
		r.SideStone, r.ChainLength, r.Note, r.User, r.ReceivedOn, r.WholesalePrice,
	} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// BaseRecord pairs a record with the base that owns it, used by the
// consolidated view and price tags.
type BaseRecord struct {
	Base string
	Record
}
