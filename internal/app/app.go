// Package app wires the registry, dispatcher, Telegram adapter and HTTP
// server together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"subcast/internal/config"
	"subcast/internal/dispatch"
	"subcast/internal/logging"
	"subcast/internal/server"
	"subcast/internal/storage"
	"subcast/internal/transport/telegram"
)

type App struct {
	cfgm *config.Manager
	log  zerolog.Logger

	registry   *storage.Registry
	adapter    *telegram.Adapter
	dispatcher *dispatch.Dispatcher
	server     *server.Server
	cron       *cron.Cron

	stopWatch context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath, logging.New("info", true))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Console)
	cfgm.SetLogger(log.With().Str("comp", "config").Logger())

	// Parse every duration before the registry opens, so a bad value
	// cannot leave an opened database behind.
	busyTimeout, err := config.Duration("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	pollTimeout, err := config.Duration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	sendTimeout, err := config.Duration("telegram.send_timeout", cfg.Telegram.SendTimeout, 15*time.Second)
	if err != nil {
		return nil, err
	}
	readTimeout, err := config.Duration("server.read_timeout", cfg.Server.ReadTimeout, 0)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := config.Duration("server.write_timeout", cfg.Server.WriteTimeout, 0)
	if err != nil {
		return nil, err
	}

	registry, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With().Str("comp", "storage").Logger())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		SendTimeout: sendTimeout,
	}, registry, log.With().Str("comp", "telegram").Logger())
	if err != nil {
		_ = registry.Close()
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	dispatcher := dispatch.New(dispatch.Config{
		Workers:    cfg.Dispatch.Workers,
		RatePerSec: cfg.Dispatch.RatePerSec,
	}, adapter, log.With().Str("comp", "dispatch").Logger())

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		AuthToken:    cfg.Server.AuthToken,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}, registry, dispatcher, log.With().Str("comp", "http").Logger())

	a := &App{
		cfgm:       cfgm,
		log:        log.With().Str("comp", "app").Logger(),
		registry:   registry,
		adapter:    adapter,
		dispatcher: dispatcher,
		server:     srv,
	}

	if spec := cfg.Storage.MaintainSpec; spec != "" {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(spec, a.maintain); err != nil {
			_ = registry.Close()
			return nil, fmt.Errorf("storage.maintain_spec: %w", err)
		}
	}
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	a.adapter.Start(ctx)
	a.server.Start()
	if a.cron != nil {
		a.cron.Start()
	}

	watchCtx, cancel := context.WithCancel(ctx)
	a.stopWatch = cancel
	go func() {
		if err := a.cfgm.Watch(watchCtx); err != nil {
			a.log.Warn().Err(err).Msg("config watch stopped")
		}
	}()
	go a.applyUpdates(watchCtx)

	a.log.Info().Msg("started")
	return nil
}

// applyUpdates consumes config reloads. Log level and dispatcher bounds
// apply live; the rest of the config takes effect on restart.
func (a *App) applyUpdates(ctx context.Context) {
	updates := a.cfgm.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			a.applyConfig(cfg)
		}
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	logging.SetLevel(cfg.Logging.Level)
	a.dispatcher.Apply(dispatch.Config{
		Workers:    cfg.Dispatch.Workers,
		RatePerSec: cfg.Dispatch.RatePerSec,
	})
	a.log.Info().
		Str("level", cfg.Logging.Level).
		Int("workers", cfg.Dispatch.Workers).
		Int("rate_per_sec", cfg.Dispatch.RatePerSec).
		Msg("reloaded settings applied")
}

func (a *App) maintain() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.registry.Maintain(ctx); err != nil {
		a.log.Warn().Err(err).Msg("storage maintenance failed")
		return
	}
	a.log.Debug().Msg("storage maintenance done")
}

func (a *App) Stop(ctx context.Context) error {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.cron != nil {
		cronCtx := a.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-ctx.Done():
		}
	}
	if err := a.server.Stop(ctx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown error")
	}
	a.adapter.Stop(ctx)
	if err := a.registry.Close(); err != nil {
		a.log.Warn().Err(err).Msg("storage close error")
	}
	a.log.Info().Msg("stopped")
	return nil
}
