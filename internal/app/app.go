// Package app wires configuration, logging, the schedule registry, the
// audio player and the engine together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"chimed/internal/audio"
	"chimed/internal/config"
	"chimed/internal/engine"
	"chimed/internal/eventbus"
	"chimed/internal/runtime/supervisor"
	"chimed/internal/schedule"
	"chimed/pkg/autostart"
	"chimed/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	reg    *schedule.Registry
	player *audio.Player
	eng    *engine.Engine
	auto   *autostart.Manager
}

func New(cfgPath string, logLevel string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, created, err := cfgm.LoadOrCreate()
	if err != nil {
		return nil, err
	}

	logCfg := mapLogConfig(cfg)
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	logSvc, log := logx.New(logCfg)
	log = log.With(logx.String("comp", "app"))
	if created {
		log.Info("wrote default config", logx.String("path", cfgm.Path()))
	}

	bus := eventbus.New()

	player := audio.NewPlayer(mapPlayerConfig(cfg), audio.NewSpeakerOutput(), log.With(logx.String("comp", "player")))

	reg := schedule.NewRegistry()
	report := reg.Load(mapSchedules(cfg))
	logLoadReport(log, report)

	auto := autostart.New()

	eng := engine.New(engine.Config{
		ShutdownGrace: cfg.Behavior.ShutdownGrace(),
	}, engine.Deps{
		Registry:  reg,
		Player:    player,
		Autostart: auto,
		Bus:       bus,
		Log:       log.With(logx.String("comp", "engine")),
	})

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		reg:     reg,
		player:  player,
		eng:     eng,
		auto:    auto,
	}, nil
}

// Engine exposes the command surface (reload, add, remove, enable,
// autostart toggle) for callers such as a tray frontend or tests.
func (a *App) Engine() *engine.Engine { return a.eng }

// Done is closed when the app run context is canceled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return cfg.Validate()
	})

	// Warm the asset cache so the first fire doesn't pay the decode cost.
	for _, s := range a.reg.Snapshot() {
		if !s.Enabled {
			continue
		}
		if err := a.player.Preload(s.File); err != nil {
			a.log.Warn("preload failed", logx.String("id", s.ID), logx.String("file", s.File), logx.Err(err))
		}
	}

	a.sup.Go("engine.run", func(c context.Context) error {
		return a.eng.Run(c)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("started")
	return nil
}

// applyConfig pushes a hot-reloaded config into logging, the player and
// the engine. A reload that fails per-entry validation still applies the
// entries that passed; the rejects are logged by the engine.
func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(mapLogConfig(cfg))
	a.player.Apply(mapPlayerConfig(cfg))

	scheds := mapSchedules(cfg)
	report, err := a.eng.Reload(ctx, scheds)
	if err != nil {
		a.log.Warn("schedule reload not applied", logx.Err(err))
		return
	}

	keep := make(map[string]struct{}, len(scheds))
	for _, s := range a.reg.Snapshot() {
		keep[s.File] = struct{}{}
		if s.Enabled {
			if err := a.player.Preload(s.File); err != nil {
				a.log.Warn("preload failed", logx.String("id", s.ID), logx.String("file", s.File), logx.Err(err))
			}
		}
	}
	a.player.Retain(keep)

	a.log.Info("config reloaded",
		logx.Int("schedules", report.Accepted),
		logx.Int("rejected", len(report.Rejected)))
}

func (a *App) Stop(timeout time.Duration) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Drain in-flight playback within the configured grace window, then
	// unwind background loops.
	if err := a.eng.Shutdown(stopCtx); err != nil {
		a.log.Warn("engine shutdown", logx.Err(err))
	}
	a.sup.Cancel()
	if err := a.sup.Stop(timeout); err != nil {
		a.log.Warn("background loops still running", logx.Err(err))
	}

	a.auto.Close()
	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:     cfg.Logging.Level,
		Console:   cfg.Logging.Console,
		Directory: config.ResolvePath(cfg.Logging.Directory),
		Rotate:    cfg.Logging.Rotate,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
}

func mapPlayerConfig(cfg *config.Config) audio.Config {
	return audio.Config{
		GlobalVolume: cfg.Audio.GlobalVolume,
		RetryOnFail:  cfg.Behavior.RetryOnFail,
		RetryDelay:   cfg.Behavior.RetryDelay(),
	}
}

func mapSchedules(cfg *config.Config) []schedule.Schedule {
	out := make([]schedule.Schedule, 0, len(cfg.Schedules))
	for _, sc := range cfg.Schedules {
		out = append(out, schedule.Schedule{
			ID:      sc.ID,
			Kind:    schedule.Kind(sc.Type),
			Cron:    sc.Cron,
			File:    config.ResolvePath(sc.File),
			Enabled: sc.Enabled,
		})
	}
	return out
}

func logLoadReport(log logx.Logger, report schedule.LoadReport) {
	for _, rej := range report.Rejected {
		log.Warn("schedule rejected", logx.String("id", rej.ID), logx.Err(rej.Err))
	}
	log.Info(fmt.Sprintf("loaded %d schedule(s)", report.Accepted),
		logx.Int("rejected", len(report.Rejected)))
}
