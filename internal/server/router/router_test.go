package router

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/jewelstock/internal/config"
	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/repository/csvfile"
	"github.com/mamadbah2/jewelstock/internal/server/handlers"
	"github.com/mamadbah2/jewelstock/internal/server/views"
	"github.com/mamadbah2/jewelstock/internal/service/inventory"
	"github.com/mamadbah2/jewelstock/internal/service/movements"
	"github.com/mamadbah2/jewelstock/internal/service/session"
)

type app struct {
	engine http.Handler
	log    *csvfile.MovementLog
	cookie *http.Cookie
}

func newApp(t *testing.T, loginPerMinute int) *app {
	t.Helper()
	dir := t.TempDir()
	bases := []string{"神戸", "横浜"}

	store, err := csvfile.NewRecordStore(dir, bases, nil)
	require.NoError(t, err)
	movementLog, err := csvfile.NewMovementLog(filepath.Join(dir, "log.csv"), nil, nil)
	require.NoError(t, err)

	catalog := models.DefaultCatalog()
	sessions, err := session.NewManager(config.AuthConfig{Password: "hoseki", SessionSecret: "k", SessionTTL: time.Hour}, nil)
	require.NoError(t, err)
	tmpl, err := views.Parse()
	require.NoError(t, err)

	engine := New(Handlers{
		Auth:      handlers.NewAuthHandler(sessions, nil),
		Inventory: handlers.NewInventoryHandler(inventory.NewService(store, movementLog, catalog, time.UTC, nil), nil),
		Log:       handlers.NewLogHandler(movements.NewService(movementLog, nil), catalog, bases, nil),
	}, tmpl, Options{LoginPerMinute: loginPerMinute}, nil)

	return &app{engine: engine, log: movementLog}
}

func (a *app) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func (a *app) login(t *testing.T) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/login", url.Values{"password": {"hoseki"}, "next": {"/"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == handlers.SessionCookie {
			a.cookie = c
		}
	}
	require.NotNil(t, a.cookie)
}

func TestHealthzIsPublic(t *testing.T) {
	a := newApp(t, 10)
	rec := a.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPagesRequireSession(t *testing.T) {
	a := newApp(t, 10)

	rec := a.do(t, http.MethodGet, "/inventory_all", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Finventory_all", rec.Header().Get("Location"))

	rec = a.do(t, http.MethodPost, "/add_stock", url.Values{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/login", url.Values{"password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	a.login(t)
	rec = a.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "横浜")
}

func TestLoginIsRateLimited(t *testing.T) {
	a := newApp(t, 2)
	for i := 0; i < 2; i++ {
		rec := a.do(t, http.MethodPost, "/login", url.Values{"password": {"wrong"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := a.do(t, http.MethodPost, "/login", url.Values{"password": {"hoseki"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func receiptForm(rows ...map[string]string) url.Values {
	form := url.Values{}
	fields := []string{"base", "metal", "item", "center_stone", "size", "code", "list_price", "wholesale_code",
		"side_stone", "chain_length", "note", "user", "received_on", "wholesale_price"}
	for _, row := range rows {
		for _, f := range fields {
			form.Add(f, row[f])
		}
	}
	return form
}

func ringRow(base, code string) map[string]string {
	return map[string]string{
		"base": base, "metal": "PT900", "item": "リング", "center_stone": "ダイヤ", "size": "0.5",
		"code": code, "list_price": "120000", "wholesale_code": "60000", "user": "山田",
	}
}

func TestReceiveCheckoutAndLog(t *testing.T) {
	a := newApp(t, 10)
	a.login(t)

	rec := a.do(t, http.MethodPost, "/add_stock", receiptForm(ringRow("神戸", "R-1"), ringRow("神戸", "R-2"), map[string]string{"base": "神戸"}))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/inventory/"+url.PathEscape("神戸"), rec.Header().Get("Location"))

	rec = a.do(t, http.MethodGet, "/inventory/"+url.PathEscape("神戸"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "R-1")
	assert.Contains(t, rec.Body.String(), "R-2")

	rec = a.do(t, http.MethodPost, "/inventory/"+url.PathEscape("神戸"), url.Values{"select": {"1"}, "action": {"checkout"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "out=1")

	entries, err := a.log.List(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.OperationCheckout, entries[2].Operation)

	rec = a.do(t, http.MethodGet, "/log?op="+url.QueryEscape("出庫"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/log/2/memo", url.Values{"memo": {"顧客取置"}, "return_query": {"op=出庫"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/log?op="+url.QueryEscape("出庫"), rec.Header().Get("Location"))

	rec = a.do(t, http.MethodGet, "/log.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "区分,拠点,No."))
	assert.Contains(t, rec.Body.String(), "顧客取置")
}

func TestReceiptValidationEchoesInput(t *testing.T) {
	a := newApp(t, 10)
	a.login(t)

	row := ringRow("神戸", "R-9")
	row["user"] = ""
	rec := a.do(t, http.MethodPost, "/add_stock", receiptForm(row))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "入力者")
	assert.Contains(t, rec.Body.String(), "R-9")

	rec = a.do(t, http.MethodPost, "/add_stock", receiptForm(map[string]string{"base": "神戸"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTagsAndErrors(t *testing.T) {
	a := newApp(t, 10)
	a.login(t)

	rec := a.do(t, http.MethodPost, "/add_stock", receiptForm(ringRow("横浜", "R-5")))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = a.do(t, http.MethodPost, "/tags", url.Values{"select": {"横浜:1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "R-5")
	assert.Contains(t, rec.Body.String(), "¥120,000")

	rec = a.do(t, http.MethodGet, "/inventory/"+url.PathEscape("札幌"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/inventory/"+url.PathEscape("横浜"), url.Values{"select": {"7"}, "action": {"checkout"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/inventory/"+url.PathEscape("横浜")+"/edit/x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditKeepsPosition(t *testing.T) {
	a := newApp(t, 10)
	a.login(t)

	rec := a.do(t, http.MethodPost, "/add_stock", receiptForm(ringRow("神戸", "R-1")))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	edited := url.Values{}
	for k, v := range ringRow("神戸", "R-1B") {
		edited.Set(k, v)
	}
	rec = a.do(t, http.MethodPost, "/inventory/"+url.PathEscape("神戸")+"/edit/1", edited)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = a.do(t, http.MethodGet, "/inventory/"+url.PathEscape("神戸")+"/edit/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "R-1B")

	entries, err := a.log.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
