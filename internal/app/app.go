// Package app wires configuration, the ledger backend, the conversation
// engine and the transports into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldops/spendbot/core/buildinfo"
	"github.com/fieldops/spendbot/core/config"
	"github.com/fieldops/spendbot/core/database"
	"github.com/fieldops/spendbot/core/logger"
	"github.com/fieldops/spendbot/internal/channel"
	"github.com/fieldops/spendbot/internal/channel/telegram"
	twiliochan "github.com/fieldops/spendbot/internal/channel/twilio"
	"github.com/fieldops/spendbot/internal/engine"
	"github.com/fieldops/spendbot/internal/ledger"
	ledgerpg "github.com/fieldops/spendbot/internal/ledger/postgres"
	"github.com/fieldops/spendbot/internal/ledger/sheets"
	"github.com/fieldops/spendbot/internal/session"
	"log/slog"
)

// App owns the service's long-lived components.
type App struct {
	cfg      *config.Config
	echo     *echo.Echo
	db       *sqlx.DB
	store    ledger.Store
	sessions session.Manager
	engine   *engine.Engine
	tgBot    *telegram.Bot
}

// New bootstraps the app: ledger backend, engine, webhook routes and the
// optional Telegram transport. The logger must already be initialized.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		cfg:      cfg,
		echo:     echo.New(),
		sessions: session.NewMemoryManager(),
	}
	a.echo.HideBanner = true
	a.echo.HidePort = true
	a.echo.Use(echomw.Recover())

	if err := a.buildStore(ctx); err != nil {
		return nil, err
	}
	a.engine = engine.New(a.store, a.sessions)

	limiter := channel.NewLimiter(time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond)

	var messenger twiliochan.Messenger
	if cfg.Twilio.ReplyMode == config.ReplyModeREST {
		messenger = twiliochan.NewRestMessenger(cfg.Twilio)
	}
	twiliochan.NewWebhook(cfg.Twilio, a.engine, limiter, messenger).Register(a.echo)

	a.echo.GET("/status", a.statusHandler)
	a.echo.Any("/metrics", echo.WrapHandler(promhttp.Handler()))

	if cfg.Telegram.Token != "" {
		bot, err := telegram.New(cfg.Telegram, a.engine, limiter)
		if err != nil {
			return nil, err
		}
		a.tgBot = bot
	}

	return a, nil
}

// buildStore selects the ledger backend from configuration. The postgres
// backend connects and migrates up front so a broken database fails startup
// instead of the first expense.
func (a *App) buildStore(ctx context.Context) error {
	switch a.cfg.Ledger.Backend {
	case config.BackendSheets:
		store, err := sheets.New(ctx, sheets.Config{
			CredentialsFile: a.cfg.Ledger.Sheets.CredentialsFile,
			SpreadsheetID:   a.cfg.Ledger.Sheets.SpreadsheetID,
			Range:           a.cfg.Ledger.Sheets.Range,
		})
		if err != nil {
			return fmt.Errorf("app: sheets backend init failed: %w", err)
		}
		a.store = store
	case config.BackendPostgres:
		if err := database.RunMigrations(a.cfg.Ledger.Database); err != nil {
			return fmt.Errorf("app: migrations failed: %w", err)
		}
		db, err := database.Connect(a.cfg.Ledger.Database)
		if err != nil {
			return fmt.Errorf("app: database initialization failed: %w", err)
		}
		a.db = db
		a.store = ledgerpg.New(db)
	case config.BackendMemory:
		a.store = ledger.NewMemoryStore()
	default:
		return fmt.Errorf("app: unknown ledger backend %q", a.cfg.Ledger.Backend)
	}

	logger.Info(logger.Background(), "app", "ledger.ready",
		slog.String("backend", a.cfg.Ledger.Backend),
	)
	return nil
}

// Run starts the sweeper, the optional Telegram bot and the HTTP server,
// then blocks until ctx is cancelled and the server has shut down.
func (a *App) Run(ctx context.Context) error {
	if ttl := time.Duration(a.cfg.Session.IdleTTLMinutes) * time.Minute; ttl > 0 {
		interval := time.Duration(a.cfg.Session.SweepIntervalSeconds) * time.Second
		session.StartSweeper(ctx, a.sessions, interval, ttl)
	}

	if a.tgBot != nil {
		go a.tgBot.Start(ctx)
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Listen, a.cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info(logger.Background(), "http", "server.listen",
			slog.String("listen", addr),
		)
		if err := a.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return a.Shutdown(10 * time.Second)
}

// Shutdown stops the HTTP server and closes the database connection.
func (a *App) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info(logger.Background(), "app", "shutdown")
	err := a.echo.Shutdown(ctx)
	if a.db != nil {
		if cerr := a.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (a *App) statusHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"built":   buildinfo.Date,
		"backend": a.cfg.Ledger.Backend,
	})
}
