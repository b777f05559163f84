package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/service/inventory"
	"github.com/mamadbah2/jewelstock/internal/service/reporting"
)

// recordColumns heads the record tables; the out-flag and numeric wholesale
// columns are not shown.
var recordColumns = []string{
	"No.", "地金", "アイテム", "中石", "サイズ", "品番", "上代", "下代",
	"脇石", "チェーン長", "摘要", "入力者", "入庫日",
}

// InventoryHandler serves the per-base, consolidated and receipt pages.
type InventoryHandler struct {
	svc    InventoryService
	logger *zap.Logger
}

// NewInventoryHandler constructs the inventory page handler.
func NewInventoryHandler(svc InventoryService, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

// Home lists the bases.
func (h *InventoryHandler) Home(c *gin.Context) {
	render(c, http.StatusOK, "index.html", gin.H{"Title": "拠点一覧", "Bases": h.svc.Bases()})
}

// Base shows one base's inventory with its bucket summary.
func (h *InventoryHandler) Base(c *gin.Context) {
	base := c.Param("base")
	records, err := h.svc.List(c.Request.Context(), base)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	var notice string
	if n, err := strconv.Atoi(c.Query("out")); err == nil && n > 0 {
		notice = fmt.Sprintf("%d点を出庫しました", n)
	}

	render(c, http.StatusOK, "inventory.html", gin.H{
		"Title":   base + " 在庫",
		"Base":    base,
		"Headers": recordColumns,
		"Rows":    records,
		"Summary": reporting.Summarize(records, h.svc.Catalog()),
		"Notice":  notice,
	})
}

// BaseAction handles the selection form of a base page: checkout or price tags.
func (h *InventoryHandler) BaseAction(c *gin.Context) {
	base := c.Param("base")
	nos, err := parseNumbers(c.PostFormArray("select"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	if c.PostForm("action") == "tags" {
		keys := make([]inventory.RecordKey, len(nos))
		for i, no := range nos {
			keys[i] = inventory.RecordKey{Base: base, No: no}
		}
		h.renderTags(c, keys)
		return
	}

	removed, err := h.svc.Checkout(c.Request.Context(), base, nos)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/inventory/%s?out=%d", url.PathEscape(base), len(removed)))
}

// EditForm shows one record for editing.
func (h *InventoryHandler) EditForm(c *gin.Context) {
	base := c.Param("base")
	no, err := strconv.Atoi(c.Param("no"))
	if err != nil {
		fail(c, h.logger, fmt.Errorf("%w: record number %q", errBadRequest, c.Param("no")))
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), base, no)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	render(c, http.StatusOK, "edit.html", gin.H{"Title": fmt.Sprintf("%s #%d 編集", base, no), "Base": base, "Record": rec})
}

// Edit saves an edited record in place.
func (h *InventoryHandler) Edit(c *gin.Context) {
	base := c.Param("base")
	no, err := strconv.Atoi(c.Param("no"))
	if err != nil {
		fail(c, h.logger, fmt.Errorf("%w: record number %q", errBadRequest, c.Param("no")))
		return
	}

	rec := recordFromForm(func(key string) string { return c.PostForm(key) })
	if _, err := h.svc.UpdateRecord(c.Request.Context(), base, no, rec); err != nil {
		var verr *inventory.ValidationError
		if errors.As(err, &verr) {
			rec.No = no
			render(c, http.StatusBadRequest, "edit.html", gin.H{
				"Title":    fmt.Sprintf("%s #%d 編集", base, no),
				"Base":     base,
				"Record":   rec,
				"Problems": verr.Problems,
			})
			return
		}
		fail(c, h.logger, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/inventory/"+url.PathEscape(base))
}

// All shows every base's inventory, optionally filtered.
func (h *InventoryHandler) All(c *gin.Context) {
	filter := inventory.Filter{
		Base:    c.Query("base"),
		Item:    strings.TrimSpace(c.Query("item")),
		Keyword: strings.TrimSpace(c.Query("q")),
	}

	records, err := h.svc.ListAll(c.Request.Context(), filter)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	render(c, http.StatusOK, "inventory_all.html", gin.H{
		"Title":   "全拠点在庫",
		"Bases":   h.svc.Bases(),
		"Filter":  filter,
		"Headers": recordColumns,
		"Rows":    records,
		"Summary": reporting.SummarizeBaseRecords(records, h.svc.Catalog()),
	})
}

// AddForm shows the blank receipt form.
func (h *InventoryHandler) AddForm(c *gin.Context) {
	rows := make([]models.BaseRecord, inventory.MaxBatchRows)
	base := c.Query("base")
	for i := range rows {
		rows[i].Base = base
	}
	h.renderAddForm(c, http.StatusOK, rows, nil, "")
}

// Add receives a batch of new line items.
func (h *InventoryHandler) Add(c *gin.Context) {
	rows := rowsFromForm(c)

	added, err := h.svc.AddStock(c.Request.Context(), rows)
	var verr *inventory.ValidationError
	switch {
	case errors.As(err, &verr):
		h.renderAddForm(c, http.StatusBadRequest, rows, verr.Problems, "")
		return
	case errors.Is(err, inventory.ErrEmptyBatch):
		h.renderAddForm(c, http.StatusBadRequest, rows, nil, "入庫する商品を入力してください")
		return
	case err != nil:
		fail(c, h.logger, err)
		return
	}

	target := "/inventory_all"
	if base := singleBase(added); base != "" {
		target = "/inventory/" + url.PathEscape(base)
	}
	c.Redirect(http.StatusSeeOther, target)
}

// Tags renders printable price tags for records chosen on the consolidated page.
func (h *InventoryHandler) Tags(c *gin.Context) {
	var keys []inventory.RecordKey
	for _, raw := range c.PostFormArray("select") {
		base, num, ok := strings.Cut(raw, ":")
		no, err := strconv.Atoi(num)
		if !ok || err != nil {
			fail(c, h.logger, fmt.Errorf("%w: selection %q", errBadRequest, raw))
			return
		}
		keys = append(keys, inventory.RecordKey{Base: base, No: no})
	}
	h.renderTags(c, keys)
}

func (h *InventoryHandler) renderTags(c *gin.Context, keys []inventory.RecordKey) {
	tags, err := h.svc.Lookup(c.Request.Context(), keys)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	render(c, http.StatusOK, "tags.html", gin.H{"Title": "値札", "Tags": tags})
}

func (h *InventoryHandler) renderAddForm(c *gin.Context, status int, rows []models.BaseRecord, problems []inventory.FieldProblem, message string) {
	for len(rows) < inventory.MaxBatchRows {
		rows = append(rows, models.BaseRecord{})
	}
	render(c, status, "add_stock.html", gin.H{
		"Title":    "入庫",
		"Bases":    h.svc.Bases(),
		"Catalog":  h.svc.Catalog(),
		"Rows":     rows,
		"Problems": problems,
		"Message":  message,
	})
}

// recordFromForm reads the record fields of one form row.
func recordFromForm(get func(key string) string) models.Record {
	return models.Record{
		Metal:          get("metal"),
		Item:           get("item"),
		CenterStone:    get("center_stone"),
		Size:           get("size"),
		Code:           get("code"),
		ListPrice:      get("list_price"),
		WholesaleCode:  get("wholesale_code"),
		SideStone:      get("side_stone"),
		ChainLength:    get("chain_length"),
		Note:           get("note"),
		User:           get("user"),
		ReceivedOn:     get("received_on"),
		WholesalePrice: get("wholesale_price"),
	}
}

// rowsFromForm splits the parallel field arrays of the receipt form into rows.
func rowsFromForm(c *gin.Context) []models.BaseRecord {
	fields := []string{"base", "metal", "item", "center_stone", "size", "code", "list_price", "wholesale_code",
		"side_stone", "chain_length", "note", "user", "received_on", "wholesale_price"}

	values := make(map[string][]string, len(fields))
	count := 0
	for _, field := range fields {
		values[field] = c.PostFormArray(field)
		count = max(count, len(values[field]))
	}

	rows := make([]models.BaseRecord, count)
	for i := range rows {
		get := func(key string) string {
			if i < len(values[key]) {
				return strings.TrimSpace(values[key][i])
			}
			return ""
		}
		rows[i] = models.BaseRecord{Base: get("base"), Record: recordFromForm(get)}
	}
	return rows
}

func parseNumbers(raw []string) ([]int, error) {
	nos := make([]int, 0, len(raw))
	for _, v := range raw {
		no, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: record number %q", errBadRequest, v)
		}
		nos = append(nos, no)
	}
	return nos, nil
}

func singleBase(rows []models.BaseRecord) string {
	if len(rows) == 0 {
		return ""
	}
	base := rows[0].Base
	for _, row := range rows[1:] {
		if row.Base != base {
			return ""
		}
	}
	return base
}
