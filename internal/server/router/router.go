package router

import (
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/server/handlers"
)

// Handlers groups the page handlers mounted by New.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Inventory *handlers.InventoryHandler
	Log       *handlers.LogHandler
}

// Options tune the middleware stack.
type Options struct {
	// LoginPerMinute caps login attempts per client IP.
	LoginPerMinute int
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, views *template.Template, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.SetHTMLTemplate(views)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/login", h.Auth.LoginForm)
	r.POST("/login", newLoginLimiter(opts.LoginPerMinute, logger).Middleware(), h.Auth.Login)
	r.POST("/logout", h.Auth.Logout)

	app := r.Group("/", h.Auth.RequireSession())
	app.GET("/", h.Inventory.Home)
	app.GET("/inventory/:base", h.Inventory.Base)
	app.POST("/inventory/:base", h.Inventory.BaseAction)
	app.GET("/inventory/:base/edit/:no", h.Inventory.EditForm)
	app.POST("/inventory/:base/edit/:no", h.Inventory.Edit)
	app.GET("/inventory_all", h.Inventory.All)
	app.GET("/add_stock", h.Inventory.AddForm)
	app.POST("/add_stock", h.Inventory.Add)
	app.POST("/tags", h.Inventory.Tags)
	app.GET("/log", h.Log.List)
	app.POST("/log/:index/memo", h.Log.UpdateMemo)
	app.GET("/log.csv", h.Log.Export)

	logger.Info("router initialized")

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
