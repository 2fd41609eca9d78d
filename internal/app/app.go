// Package app wires the daemon together: config manager, display pipeline,
// plugin registry, refresh task, and the supporting services.
package app

import (
	"context"
	"time"

	"inkd/internal/config"
	"inkd/internal/display"
	"inkd/internal/maintenance"
	"inkd/internal/notify"
	"inkd/internal/playlist"
	"inkd/internal/plugin"
	"inkd/internal/plugin/builtin/blank"
	"inkd/internal/plugin/builtin/clock"
	"inkd/internal/plugin/builtin/imagefolder"
	"inkd/internal/refresh"
	"inkd/internal/runtime/supervisor"
	"inkd/internal/storage"
	"inkd/internal/sysstats"
	logx "inkd/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store storage.Store
	disp  *display.Manager
	reg   *plugin.Registry
	pl    *playlist.Manager
	task  *refresh.Task
	maint *maintenance.Service
	notif *notify.Service
	stats *sysstats.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg.Logging))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	// Refresh history (optional).
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg.Storage); err != nil {
		logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("refresh history enabled", logx.String("driver", sc.Driver))
	}

	disp, err := display.New(cfg, log.With(logx.String("comp", "display")))
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	reg := plugin.NewRegistry()
	reg.Register("clock", clock.New)
	reg.Register("imagefolder", imagefolder.New)
	reg.Register("blank", blank.New)
	if err := reg.Build(cfg.Plugins); err != nil {
		disp.Close()
		logSvc.Close()
		return nil, err
	}

	pl := playlist.New(cfg.Playlist.Items, cfgm.PlaylistCursor())
	task := refresh.NewTask(cfgm, disp,
		refresh.NewPlaylistAction(pl, reg, cfgm),
		log.With(logx.String("comp", "refresh")))

	if store != nil {
		task.AddObserver(historyObserver{store: store, log: log.With(logx.String("comp", "storage"))})
	}

	notif, err := notify.New(cfg.Notify, log.With(logx.String("comp", "notify")))
	if err != nil {
		// Alerts are best-effort; a bad token must not keep the panel dark.
		log.Warn("notify disabled", logx.Err(err))
	} else if notif != nil {
		task.AddObserver(notif)
	}

	stats, err := sysstats.New(cfg.SysStats, log.With(logx.String("comp", "sysstats")))
	if err != nil {
		log.Warn("sysstats disabled", logx.Err(err))
	}

	return &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		store: store,
		disp:  disp,
		reg:   reg,
		pl:    pl,
		task:  task,
		maint: maintenance.New(task, log.With(logx.String("comp", "maintenance"))),
		notif: notif,
		stats: stats,
	}, nil
}

// Task exposes the refresh worker for on-demand renders (startup splash,
// signal handlers).
func (a *App) Task() *refresh.Task { return a.task }

// Done is closed when the supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	cfg := a.cfgm.Get()
	if err := a.maint.Apply(cfg.FullClearCron, cfg.Location()); err != nil {
		return err
	}

	a.task.Start()

	// Watch the config file; the watcher self-heals internally, the restart
	// loop covers anything that still escapes it.
	a.sup.GoRestart("config.watch", a.cfgm.Watch)

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
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
				a.applyConfig(newCfg)
			}
		}
	})

	if a.stats != nil {
		a.sup.Go0("sysstats", a.stats.Run)
	}

	if cfg.Startup {
		a.sup.Go0("startup.render", func(c context.Context) {
			rctx, cancel := context.WithTimeout(c, 2*time.Minute)
			defer cancel()
			if err := a.task.ManualUpdate(rctx, nil); err != nil {
				a.log.Error("startup render failed", logx.Err(err))
			}
		})
	}

	a.log.Info("inkd started",
		logx.String("display", cfg.Display.Type),
		logx.Duration("cycle_interval", cfg.CycleInterval()))
	return nil
}

// applyConfig fans a committed config out to the live services. Invalid
// configs never reach this point; the manager rejects them before publish.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(mapLogConfig(cfg.Logging))
	a.disp.Apply(cfg)

	if err := a.reg.Build(cfg.Plugins); err != nil {
		a.log.Warn("plugin rebuild failed; keeping previous set", logx.Err(err))
	} else {
		a.pl.Apply(cfg.Playlist.Items)
	}

	if err := a.maint.Apply(cfg.FullClearCron, cfg.Location()); err != nil {
		a.log.Warn("invalid full_clear_cron; clear schedule unchanged", logx.Err(err))
	}

	// Wake the worker so the new interval and playlist take effect now
	// rather than at the next timer expiry.
	a.task.SignalConfigChange()
	a.log.Info("config applied")
}

func (a *App) Stop(ctx context.Context) {
	a.maint.Stop()
	a.task.Stop()

	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			a.log.Warn("shutdown incomplete", logx.Err(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing storage failed", logx.Err(err))
		}
	}
	if err := a.disp.Close(); err != nil {
		a.log.Warn("closing display failed", logx.Err(err))
	}
	a.log.Info("inkd stopped")
	a.logs.Close()
}

func mapLogConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}

func mapStorageConfig(sc *config.StorageConfig) (storage.Config, bool, error) {
	if sc == nil || sc.Driver == "" || sc.Driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 0)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{
		Driver:      sc.Driver,
		Path:        sc.Path,
		BusyTimeout: busy,
	}, true, nil
}

// historyObserver appends one row per completed cycle.
type historyObserver struct {
	store storage.Store
	log   logx.Logger
}

func (o historyObserver) CycleDone(stats refresh.CycleStats) {
	rec := storage.RefreshRecord{
		At:          stats.At,
		Trigger:     stats.Trigger,
		Fingerprint: stats.Fingerprint,
		Painted:     stats.Painted,
		TookMS:      stats.Took.Milliseconds(),
	}
	if v, ok := stats.Action["action"].(string); ok {
		rec.Action = v
	}
	if v, ok := stats.Action["plugin"].(string); ok {
		rec.Plugin = v
	}
	if stats.Err != nil {
		rec.Error = stats.Err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.AppendRefresh(ctx, rec); err != nil {
		o.log.Warn("recording refresh failed", logx.Err(err))
	}
}
