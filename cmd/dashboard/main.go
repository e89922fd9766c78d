package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/superstore-bi/dashboard/internal/app"
	"github.com/superstore-bi/dashboard/internal/dashboard"
	dashboardhttp "github.com/superstore-bi/dashboard/internal/dashboard/http"
	"github.com/superstore-bi/dashboard/internal/dashboard/ui"
	"github.com/superstore-bi/dashboard/internal/format"
	"github.com/superstore-bi/dashboard/internal/kpi/client"
	"github.com/superstore-bi/dashboard/internal/observability"
	"github.com/superstore-bi/dashboard/internal/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	kpiClient, err := client.New(cfg.KPIAPIURL, client.WithObserver(metrics))
	if err != nil {
		logger.Error("build kpi client", slog.Any("error", err))
		os.Exit(1)
	}

	formatter, err := format.New(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Error("build formatter", slog.Any("error", err))
		os.Exit(1)
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	sessions := dashboard.NewSessions(func() *dashboard.Orchestrator {
		return dashboard.NewOrchestrator(kpiClient, dashboard.Options{
			TopLimit: cfg.KPITopLimit,
			Logger:   logger,
			Recorder: metrics,
		})
	}, dashboard.SessionOptions{
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
		Logger:      logger,
		Gauge:       metrics,
	})
	defer sessions.Close()

	dashboardHandler := dashboardhttp.NewHandler(
		logger,
		sessions,
		kpiClient,
		templates,
		ui.NewBuilder(formatter, ui.SVGCharts{}, cfg.KPITopLimit),
		dashboardhttp.Options{
			AppEnv:          cfg.AppEnv,
			SecureCookies:   cfg.IsProduction(),
			ExportPerMinute: cfg.ExportPerMinute,
			WaitTimeout:     cfg.WaitTimeout,
		},
	)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		DashboardHandler: dashboardHandler,
	})

	if app.DryRun() {
		logger.Info("dry run, configuration and templates are valid", slog.String("kpi_api", cfg.KPIAPIURL))
		return
	}

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("kpi_api", cfg.KPIAPIURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
