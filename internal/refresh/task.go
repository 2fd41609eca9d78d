package refresh

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime/debug"
	"sync"
	"time"

	"inkd/internal/config"
	"inkd/internal/imaging"
	"inkd/internal/plugin"
	logx "inkd/pkg/logx"
)

// ConfigSource is what the task needs from the config manager: the live
// config, the device clock, and the refresh ledger.
type ConfigSource interface {
	Get() *config.Config
	Now() time.Time
	RefreshInfo() *config.RefreshInfo
	SetRefreshInfo(*config.RefreshInfo)
	WriteState() error
}

// Pipeline paints a raw frame to the device after normalization.
type Pipeline interface {
	Render(ctx context.Context, frame image.Image) error
}

// Trigger identifies what started a cycle.
const (
	TriggerPeriodic = "periodic"
	TriggerManual   = "manual"
)

// CycleStats summarizes one completed cycle for observers (history
// storage, failure alerts).
type CycleStats struct {
	At          time.Time
	Trigger     string
	Action      map[string]any
	Fingerprint string
	Painted     bool
	Took        time.Duration
	Err         error
}

// CycleObserver is notified after every cycle that resolved an action.
// Called from the worker goroutine; keep it fast.
type CycleObserver interface {
	CycleDone(stats CycleStats)
}

// Task is the refresh scheduler: one background worker that arbitrates
// between the periodic timer and manual requests, runs at most one render
// at a time, skips repaints of unchanged content, and hands cycle results
// back to whoever asked for them.
//
// Lifecycle: NotStarted -> (Start) running -> (Stop) stopped, terminal.
type Task struct {
	log       logx.Logger
	cfg       ConfigSource
	pipe      Pipeline
	defAction Action
	observers []CycleObserver

	mu      sync.Mutex
	running bool
	stopped bool
	pending *manualRequest
	wake    chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
}

// manualRequest is the single-slot mailbox for manual updates. A second
// request arriving before pickup overwrites the action (last writer wins)
// and merges its waiter into the slot; every waiter is released by the
// cycle that consumes the slot.
type manualRequest struct {
	action  Action // nil means "use the default action"
	waiters []chan error
}

func NewTask(cfg ConfigSource, pipe Pipeline, defAction Action, log logx.Logger) *Task {
	return &Task{
		log:       log,
		cfg:       cfg,
		pipe:      pipe,
		defAction: defAction,
	}
}

// AddObserver registers a cycle observer. Not safe after Start.
func (t *Task) AddObserver(o CycleObserver) {
	if o != nil {
		t.observers = append(t.observers, o)
	}
}

// Start spawns the worker. Idempotent; a no-op once stopped.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.stopped {
		return
	}
	t.log.Info("starting refresh task")
	t.running = true
	t.wake = make(chan struct{}, 1)
	t.stopCh = make(chan struct{})
	t.done = make(chan struct{})
	go t.run()
}

// Stop signals the worker and waits for it to exit. It never interrupts an
// in-progress render; it only prevents the next cycle from starting. Safe
// to call before Start and safe to call twice.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.running {
		// Either never started or a Stop already won; wait for the worker
		// if one is still draining.
		done := t.done
		t.stopped = true
		t.mu.Unlock()
		if done != nil {
			<-done
		}
		return
	}
	t.log.Info("stopping refresh task")
	t.running = false
	t.stopped = true
	close(t.stopCh)
	done := t.done
	t.mu.Unlock()
	<-done
}

// ManualUpdate registers action as the pending manual request, wakes the
// worker, and blocks until that cycle completes, returning the cycle's
// error. A nil action means "run the default action now".
//
// When the task is not running this logs a warning and returns
// immediately; it must never leave a caller blocked against a dead worker.
func (t *Task) ManualUpdate(ctx context.Context, action Action) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		t.log.Warn("refresh task is not running, unable to do a manual update")
		return nil
	}
	ch := make(chan error, 1)
	if t.pending == nil {
		t.pending = &manualRequest{}
	}
	t.pending.action = action
	t.pending.waiters = append(t.pending.waiters, ch)
	t.signalLocked()
	stopCh := t.stopCh
	t.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-stopCh:
		// The worker drains pending waiters on exit; prefer its verdict if
		// it already arrived.
		select {
		case err := <-ch:
			return err
		default:
			return nil
		}
	}
}

// SignalConfigChange wakes the worker without forcing a render, so an
// interval change takes effect now instead of after the stale timeout.
func (t *Task) SignalConfigChange() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.signalLocked()
}

func (t *Task) signalLocked() {
	select {
	case t.wake <- struct{}{}:
	default:
		// already signaled
	}
}

func (t *Task) run() {
	defer close(t.done)
	for {
		// Re-read the interval every pass so a config change picked up via
		// SignalConfigChange takes effect immediately.
		interval := t.cfg.Get().CycleInterval()
		timer := time.NewTimer(interval)

		woken := false
		select {
		case <-t.stopCh:
			timer.Stop()
			t.drainPending()
			return
		case <-timer.C:
		case <-t.wake:
			timer.Stop()
			woken = true
		}

		// Stop wins over any other wake reason, and it is observed before
		// any render work starts, never mid-render.
		select {
		case <-t.stopCh:
			t.drainPending()
			return
		default:
		}

		t.cycle(woken)
	}
}

// cycle runs one Running phase. woken distinguishes an early wake from the
// periodic timeout: an early wake with no pending request is a config
// change and renders nothing.
func (t *Task) cycle(woken bool) {
	t.mu.Lock()
	req := t.pending
	t.pending = nil
	t.mu.Unlock()

	trigger := TriggerPeriodic
	var action Action
	switch {
	case req != nil:
		t.log.Info("manual update requested")
		trigger = TriggerManual
		action = req.action
		if action == nil {
			action = t.defAction
		}
	case !woken:
		action = t.defAction
	}

	var err error
	var stats CycleStats
	if action != nil {
		stats, err = t.execute(action, trigger)
	}

	if req != nil {
		for _, ch := range req.waiters {
			ch <- err
		}
	}

	switch {
	case err == nil:
	case isNoContent(err):
		t.log.Debug("nothing to render", logx.String("trigger", trigger))
	default:
		t.log.Error("refresh cycle failed", logx.Err(err), logx.String("trigger", trigger))
	}

	if action != nil && !isNoContent(err) {
		for _, o := range t.observers {
			o.CycleDone(stats)
		}
	}
}

// execute runs one action to completion: render, fingerprint, compare to
// the ledger, conditionally paint, replace and persist the ledger. Any
// failure (or panic) is captured and returned; the ledger is only replaced
// after a successful paint or a clean skip.
func (t *Task) execute(action Action, trigger string) (stats CycleStats, err error) {
	now := t.cfg.Now()
	started := time.Now()
	stats = CycleStats{At: now, Trigger: trigger}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh action panic: %v", r)
			t.log.Error("panic during refresh", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
		stats.Took = time.Since(started)
		stats.Err = err
	}()

	cfg := t.cfg.Get()
	w, h := cfg.Resolution()
	rc := plugin.RenderContext{Width: w, Height: h, Location: cfg.Location()}

	frame, err := action.Execute(rc, now)
	if err != nil {
		return stats, err
	}

	hash := imaging.Fingerprint(frame)
	meta := map[string]any{}
	for k, v := range action.Describe() {
		meta[k] = v
	}
	meta["refresh_time"] = now.Format(time.RFC3339)
	meta["image_hash"] = hash
	stats.Action = meta
	stats.Fingerprint = hash

	latest := t.cfg.RefreshInfo()
	unchanged := latest != nil && latest.ImageHash == hash
	force := false
	if fp, ok := action.(forcePainter); ok {
		force = fp.ForcePaint()
	}

	if unchanged && !force {
		t.log.Info("image already displayed, skipping refresh", logx.Any("refresh_info", meta))
	} else {
		t.log.Info("updating display", logx.Any("refresh_info", meta))
		if err := t.pipe.Render(context.Background(), frame); err != nil {
			return stats, err
		}
		stats.Painted = true
	}

	// The ledger's timestamp and metadata advance even on a skipped paint:
	// "don't repaint identical content, but do record that a refresh check
	// ran".
	t.cfg.SetRefreshInfo(&config.RefreshInfo{
		RefreshTime: now,
		ImageHash:   hash,
		Metadata:    meta,
	})
	if err := t.cfg.WriteState(); err != nil {
		// The in-memory ledger is authoritative for skip decisions; a
		// persist failure degrades restart behavior but not this cycle.
		t.log.Warn("persisting refresh info failed", logx.Err(err))
	}
	return stats, nil
}

// drainPending releases any manual callers registered after the last
// cycle. Mirrors a stop racing a manual request: the request is dropped,
// the caller is unblocked without an error.
func (t *Task) drainPending() {
	t.mu.Lock()
	req := t.pending
	t.pending = nil
	t.mu.Unlock()
	if req == nil {
		return
	}
	t.log.Warn("refresh task stopping; dropping pending manual update")
	for _, ch := range req.waiters {
		ch <- nil
	}
}

func isNoContent(err error) bool {
	return errors.Is(err, ErrNoContent)
}
