package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/handlers"
	"github.com/IamSpotted/ITSF-Agent/app/identity"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/IamSpotted/ITSF-Agent/app/services"
	"github.com/IamSpotted/ITSF-Agent/app/storage"
	"github.com/IamSpotted/ITSF-Agent/app/utils"
	"github.com/IamSpotted/ITSF-Agent/storage/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// Version is the agent version reported in the check-in state, set at build
// time with -ldflags "-X github.com/IamSpotted/ITSF-Agent/app.Version=..."
var Version = "dev"

const (
	cleanupInterval = 24 * time.Hour
	shutdownTimeout = 5 * time.Second
)

// App represents the application
type App struct {
	Config    *ConfigSource
	Log       logger.Logger
	Events    *logger.RingSink
	Registry  *prometheus.Registry
	Store     *postgres.Store
	State     *storage.CheckInStore
	Journal   *storage.JournalStore
	Collector *identity.Collector
	Trigger   *services.FileTrigger
	Sync      *services.SyncService
	Scheduler *services.Scheduler
	Status    *handlers.StatusHandler
	Server    *StatusServer

	log zerolog.Logger
}

// Bootstrap initializes and runs the device agent until interrupted
func Bootstrap() error {
	src, err := NewConfigSource(ConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := New(src)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.watchReload(ctx)

	return app.Run(ctx)
}

// New wires every component from the active configuration
func New(src *ConfigSource) (*App, error) {
	cfg := src.Current()

	events := logger.NewRingSink(logger.DefaultRingSize)
	log, err := logger.New(cfg.Logging, events)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &App{
		Config:   src,
		Log:      log,
		Events:   events,
		Registry: prometheus.NewRegistry(),
		log:      log.WithComponent("agent"),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.log.Info().
		Str("version", Version).
		Str("config", src.Path()).
		Str("remote", utils.MaskDSN(cfg.Remote.DSN)).
		Msg("device agent starting")

	a.State, err = storage.NewCheckInStore(cfg.StateDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state storage: %w", err)
	}

	var (
		recorder services.AttemptRecorder
		history  handlers.HistorySource
	)
	if journal, err := storage.NewJournalStore(cfg.JournalPath); err != nil {
		a.log.Warn().Err(err).Str("path", cfg.JournalPath).Msg("sync journal unavailable, continuing without history")
	} else {
		a.Journal = journal
		recorder, history = journal, journal
	}

	if cfg.Remote.DSN == "" {
		a.log.Warn().Msg("remote store is not configured, every sync attempt will fail until remote.dsn is set")
	}
	a.Store = postgres.NewStore(cfg.PostgresOptions(), log)
	a.Collector = identity.NewCollector(cfg.Site, log)
	a.Trigger = services.NewFileTrigger(cfg.TriggerPath, log)

	policy, err := cfg.DiffPolicy()
	if err != nil {
		return nil, err
	}

	metrics := services.NewSyncMetrics(a.Registry)
	a.Sync = services.NewSyncService(
		a.Collector,
		a.Store,
		a.State,
		services.NewDiffEngine(policy),
		recorder,
		metrics,
		cfg.SyncOptions(Version),
		log,
	)
	if ci := a.State.Load(); ci != nil {
		metrics.SetLastCheckIn(ci.LastCheckIn)
	}
	a.Scheduler = services.NewScheduler(a.Sync, a.Trigger, metrics, cfg.PollCeiling, log)

	tz, err := utils.NewTimeZone(cfg.DisplayTimezone)
	if err != nil {
		a.log.Warn().Err(err).Msg("falling back to local time zone")
	}
	a.Status = handlers.NewStatusHandler(a.Sync, events, history, a.Trigger, a.Scheduler, tz, log)
	a.Status.SetRemote(utils.MaskDSN(cfg.Remote.DSN))

	if cfg.Status.ListenAddr != "" {
		jwtService := services.NewJWTService(cfg.Status.JWTSecret, cfg.Status.TokenTTL)
		if jwtService.Enabled() {
			a.log.Info().Str("jwt_secret", utils.MaskSecret(cfg.Status.JWTSecret)).Msg("operator endpoints enabled")
		} else {
			a.log.Warn().Msg("status.jwt_secret is empty, operator endpoints are disabled")
		}
		router := NewRouter(RouterDeps{
			Health:         handlers.NewHealthHandler(a.ready),
			Status:         a.Status,
			JWT:            jwtService,
			Gatherer:       a.Registry,
			AllowedOrigins: cfg.Status.AllowedOrigins,
			Log:            log,
		})
		a.Server = NewStatusServer(cfg.Status.ListenAddr, router, log)
	}

	src.Subscribe(a.applyConfig)
	return a, nil
}

// Run starts the scheduler, the status server and the journal cleanup job,
// and blocks until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Scheduler.Run(ctx)
	}()

	if a.Journal != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.startCleanupJob(ctx)
		}()
	}

	if a.Server != nil {
		go func() {
			// the sync engine keeps running without its status surface
			if err := a.Server.Start(); err != nil {
				a.log.Error().Err(err).Msg("status API stopped")
			}
		}()
	}

	<-ctx.Done()
	a.log.Info().Msg("shutting down...")

	if a.Server != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.Server.Shutdown(sctx); err != nil {
			a.log.Warn().Err(err).Msg("status server shutdown error")
		}
		cancel()
	}

	wg.Wait()
	return nil
}

// Close releases the remote pool and the journal
func (a *App) Close() {
	a.Store.Close()
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close sync journal")
		}
	}
}

func (a *App) ready() error {
	if a.Config.Current().Remote.DSN == "" {
		return errors.New("remote store is not configured")
	}
	return nil
}

// applyConfig pushes a reloaded configuration into the running components
func (a *App) applyConfig(cfg *Config) {
	// a nil engine keeps the current one
	var diff *services.DiffEngine
	if policy, err := cfg.DiffPolicy(); err != nil {
		a.log.Error().Err(err).Msg("ignoring reloaded diff configuration")
	} else {
		diff = services.NewDiffEngine(policy)
	}

	if level, err := logger.LevelOf(cfg.Logging); err != nil {
		a.log.Warn().Err(err).Msg("ignoring reloaded log level")
	} else {
		a.Log.SetLevel(level)
	}

	a.Store.Reconfigure(cfg.PostgresOptions())
	a.Collector.SetSite(cfg.Site)
	a.Sync.Reconfigure(cfg.SyncOptions(Version), diff)
	a.Scheduler.SetPollCeiling(cfg.PollCeiling)
	a.Status.SetRemote(utils.MaskDSN(cfg.Remote.DSN))

	tz, err := utils.NewTimeZone(cfg.DisplayTimezone)
	if err != nil {
		a.log.Warn().Err(err).Msg("falling back to local time zone")
	}
	a.Status.SetTimeZone(tz)

	a.log.Info().
		Str("remote", utils.MaskDSN(cfg.Remote.DSN)).
		Int("diff_fields", len(a.Sync.DiffPolicy().Fields)).
		Msg("configuration reloaded")
	a.Scheduler.Wake()
}

// watchReload reloads the configuration on SIGHUP
func (a *App) watchReload(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.Config.Reload(); err != nil {
				a.log.Error().Err(err).Msg("configuration reload failed, keeping current settings")
			}
		}
	}
}

// startCleanupJob prunes journaled attempts past their retention
func (a *App) startCleanupJob(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		a.cleanupJournal(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) cleanupJournal(ctx context.Context) {
	retention := a.Config.Current().JournalRetention()
	if retention <= 0 {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	removed, err := a.Journal.CleanupAttempts(cctx, retention)
	if err != nil {
		a.log.Warn().Err(err).Msg("journal cleanup failed")
		return
	}
	if removed > 0 {
		a.log.Info().Int64("removed", removed).Msg("pruned old sync attempts")
	}
}
