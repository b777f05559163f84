package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/repository/csvfile"
	"github.com/mamadbah2/jewelstock/internal/service/inventory"
	"github.com/mamadbah2/jewelstock/internal/service/movements"
	"github.com/mamadbah2/jewelstock/internal/service/session"
)

// InventoryService is the inventory behaviour the pages depend on.
type InventoryService interface {
	Bases() []string
	Catalog() models.Catalog
	Today() string
	List(ctx context.Context, base string) ([]models.Record, error)
	Get(ctx context.Context, base string, no int) (models.Record, error)
	ListAll(ctx context.Context, f inventory.Filter) ([]models.BaseRecord, error)
	Lookup(ctx context.Context, keys []inventory.RecordKey) ([]models.BaseRecord, error)
	AddStock(ctx context.Context, rows []models.BaseRecord) ([]models.BaseRecord, error)
	Checkout(ctx context.Context, base string, nos []int) ([]models.Record, error)
	UpdateRecord(ctx context.Context, base string, no int, rec models.Record) (models.Record, error)
}

// MovementService is the movement log behaviour the pages depend on.
type MovementService interface {
	List(ctx context.Context, f movements.Filter) ([]models.LogEntry, error)
	UpdateMemo(ctx context.Context, index int, memo string) (models.LogEntry, error)
	Export(ctx context.Context, w io.Writer) error
}

// SessionManager issues and checks login sessions.
type SessionManager interface {
	Login(password string) (string, error)
	Validate(token string) (*session.Claims, error)
	TTL() time.Duration
}

const authenticatedKey = "authenticated"

// render adds the fields shared by every page before executing name.
func render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Authenticated"] = c.GetBool(authenticatedKey)
	c.HTML(status, name, data)
}

// fail maps service errors onto an HTTP status and renders the error page.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	message := "処理中にエラーが発生しました"

	switch {
	case errors.Is(err, csvfile.ErrUnknownBase):
		status, message = http.StatusNotFound, "拠点が見つかりません"
	case errors.Is(err, inventory.ErrRecordNotFound), errors.Is(err, csvfile.ErrEntryNotFound):
		status, message = http.StatusNotFound, "指定された商品が見つかりません。画面を更新してください"
	case errors.Is(err, inventory.ErrBatchTooLarge), errors.Is(err, errBadRequest):
		status, message = http.StatusBadRequest, "入力内容が正しくありません"
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.String("path", c.Request.URL.Path), zap.Int("status", status), zap.Error(err))
	}

	render(c, status, "error.html", gin.H{"Title": "エラー", "Message": message})
}

var errBadRequest = errors.New("bad request")
