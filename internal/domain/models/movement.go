package models

import (
	"strconv"
	"strings"
)

// Operation enumerates movement kinds written to the log.
type Operation string

const (
	OperationReceipt  Operation = "入庫"
	OperationCheckout Operation = "出庫"
)

// Valid reports whether op is a known movement kind.
func (op Operation) Valid() bool {
	return op == OperationReceipt || op == OperationCheckout
}

// LogHeader is the first line of the movement log file.
var LogHeader = []string{
	"区分", "拠点", "No.", "地金", "アイテム", "中石", "サイズ", "品番", "上代", "下代",
	"脇石", "チェーン長", "摘要", "入力者", "入庫日", "出庫日", "メモ", "下代（数値）",
}

// LogEntry is a snapshot of a record at the moment it entered or left a base.
// Index is the entry's 0-based position in the log and is not persisted; rows
// are only ever appended so it stays valid for the life of the file.
type LogEntry struct {
	Index     int
	Operation Operation
	Base      string
	Record    Record
	RemovedOn string
	Memo      string
}

// NewLogEntry snapshots rec for the given movement.
func NewLogEntry(op Operation, base string, rec Record, removedOn string) LogEntry {
	rec.OutFlag = ""
	return LogEntry{Operation: op, Base: base, Record: rec, RemovedOn: removedOn}
}

// Row renders the entry in log column order.
func (e LogEntry) Row() []string {
	r := e.Record
	return []string{
		string(e.Operation), e.Base, strconv.Itoa(r.No), r.Metal, r.Item, r.CenterStone, r.Size,
		r.Code, r.ListPrice, r.WholesaleCode, r.SideStone, r.ChainLength, r.Note, r.User,
		r.ReceivedOn, e.RemovedOn, e.Memo, r.WholesalePrice,
	}
}

// LogEntryFromRow parses a log row found at the given position.
func LogEntryFromRow(row []string, index int) LogEntry {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	no, _ := strconv.Atoi(strings.TrimSpace(cell(2)))

	return LogEntry{
		Index:     index,
		Operation: Operation(cell(0)),
		Base:      cell(1),
		Record: Record{
			No:             no,
			Metal:          cell(3),
			Item:           cell(4),
			CenterStone:    cell(5),
			Size:           cell(6),
			Code:           cell(7),
			ListPrice:      cell(8),
			WholesaleCode:  cell(9),
			SideStone:      cell(10),
			ChainLength:    cell(11),
			Note:           cell(12),
			User:           cell(13),
			ReceivedOn:     cell(14),
			WholesalePrice: cell(17),
		},
		RemovedOn: cell(15),
		Memo:      cell(16),
	}
}
