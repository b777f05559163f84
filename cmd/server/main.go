package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/config"
	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/repository/csvfile"
	"github.com/mamadbah2/jewelstock/internal/repository/mongodb"
	"github.com/mamadbah2/jewelstock/internal/repository/sheets"
	"github.com/mamadbah2/jewelstock/internal/scheduler"
	"github.com/mamadbah2/jewelstock/internal/server/handlers"
	"github.com/mamadbah2/jewelstock/internal/server/router"
	"github.com/mamadbah2/jewelstock/internal/server/views"
	inventorysvc "github.com/mamadbah2/jewelstock/internal/service/inventory"
	movementsvc "github.com/mamadbah2/jewelstock/internal/service/movements"
	reportingsvc "github.com/mamadbah2/jewelstock/internal/service/reporting"
	"github.com/mamadbah2/jewelstock/internal/service/session"
	"github.com/mamadbah2/jewelstock/pkg/clients/notify"
	"github.com/mamadbah2/jewelstock/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	catalog := models.DefaultCatalog()
	loc := cfg.Location()

	store, err := csvfile.NewRecordStore(cfg.Inventory.DataDir, cfg.Inventory.Bases, baseLogger.Named("repo.records"))
	if err != nil {
		baseLogger.Fatal("failed to init record store", zap.Error(err))
	}

	var mirror csvfile.Mirror
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		mirror = sheets.NewLogMirror(sheetsRepo, cfg.Sheets.LogRange)
		baseLogger.Info("movement log mirrored to google sheets")
	}

	movementLog, err := csvfile.NewMovementLog(filepath.Join(cfg.Inventory.DataDir, "log.csv"), mirror, baseLogger.Named("repo.log"))
	if err != nil {
		baseLogger.Fatal("failed to init movement log", zap.Error(err))
	}

	var snapshots reportingsvc.SnapshotStore
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		snapshots = mongoRepo
	} else {
		baseLogger.Warn("mongodb uri missing, daily snapshots are not stored")
	}

	inventorySvc := inventorysvc.NewService(store, movementLog, catalog, loc, baseLogger.Named("svc.inventory"))
	movementSvc := movementsvc.NewService(movementLog, baseLogger.Named("svc.movements"))
	reportingSvc := reportingsvc.NewService(store, snapshots, catalog, loc, baseLogger.Named("svc.reporting"))

	sessions, err := session.NewManager(cfg.Auth, baseLogger.Named("svc.session"))
	if err != nil {
		baseLogger.Fatal("failed to init session manager", zap.Error(err))
	}

	var notifier scheduler.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewClient(cfg.Notify)
	} else {
		baseLogger.Warn("notify webhook missing, daily reports are only logged")
	}

	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, reportingSvc, notifier, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	tmpl, err := views.Parse()
	if err != nil {
		baseLogger.Fatal("failed to parse templates", zap.Error(err))
	}

	engine := router.New(router.Handlers{
		Auth:      handlers.NewAuthHandler(sessions, baseLogger.Named("handlers.auth")),
		Inventory: handlers.NewInventoryHandler(inventorySvc, baseLogger.Named("handlers.inventory")),
		Log:       handlers.NewLogHandler(movementSvc, catalog, cfg.Inventory.Bases, baseLogger.Named("handlers.log")),
	}, tmpl, router.Options{LoginPerMinute: cfg.Auth.LoginPerMinute}, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.Strings("bases", cfg.Inventory.Bases))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
