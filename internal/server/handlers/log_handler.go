package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/service/movements"
	"github.com/mamadbah2/jewelstock/internal/service/reporting"
)

// LogHandler serves the movement log pages.
type LogHandler struct {
	svc     MovementService
	catalog models.Catalog
	bases   []string
	logger  *zap.Logger
}

// NewLogHandler constructs the movement log handler.
func NewLogHandler(svc MovementService, catalog models.Catalog, bases []string, logger *zap.Logger) *LogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHandler{svc: svc, catalog: catalog, bases: bases, logger: logger}
}

// List shows the filtered log with a summary of the shown entries.
func (h *LogHandler) List(c *gin.Context) {
	filter := movements.Filter{
		Operation: models.Operation(c.Query("op")),
		Base:      c.Query("base"),
		From:      c.Query("from"),
		To:        c.Query("to"),
		Keyword:   strings.TrimSpace(c.Query("q")),
	}
	if filter.Operation != "" && !filter.Operation.Valid() {
		filter.Operation = ""
	}

	entries, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	render(c, http.StatusOK, "log.html", gin.H{
		"Title":      "入出庫ログ",
		"Operations": []models.Operation{models.OperationReceipt, models.OperationCheckout},
		"Bases":      h.bases,
		"Filter":     filter,
		"From":       filter.From,
		"To":         filter.To,
		"Query":      c.Request.URL.RawQuery,
		"Headers":    models.LogHeader,
		"Rows":       entries,
		"Summary":    reporting.SummarizeEntries(entries, h.catalog),
	})
}

// UpdateMemo saves the memo of one entry and returns to the filtered list.
func (h *LogHandler) UpdateMemo(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		fail(c, h.logger, fmt.Errorf("%w: log index %q", errBadRequest, c.Param("index")))
		return
	}

	if _, err := h.svc.UpdateMemo(c.Request.Context(), index, c.PostForm("memo")); err != nil {
		fail(c, h.logger, err)
		return
	}

	target := "/log"
	if q, err := url.ParseQuery(c.PostForm("return_query")); err == nil && len(q) > 0 {
		target += "?" + q.Encode()
	}
	c.Redirect(http.StatusSeeOther, target)
}

// Export downloads the whole log as CSV.
func (h *LogHandler) Export(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="movement_log.csv"`)
	c.Status(http.StatusOK)

	if err := h.svc.Export(c.Request.Context(), c.Writer); err != nil {
		h.logger.Error("log export failed", zap.Error(err))
	}
}
