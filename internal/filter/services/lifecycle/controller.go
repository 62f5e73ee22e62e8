// Package lifecycle orchestrates the filter's activation state
// machine: startup delay, rule loading, hook installation, the
// periodic reload loop, and guaranteed restoration on every exit path.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	logpkg "github.com/haukened/sinkhole/internal/filter/common/log"
	"github.com/haukened/sinkhole/internal/filter/common/metrics"
)

// Options wires the controller's collaborators and timing.
type Options struct {
	Loader RuleLoader
	Rules  RulePublisher
	Hooks  HookInstaller
	Logger logpkg.Logger

	// Probe resolves through the installed resolution path for the
	// self-test. Required only when SelfTest is enabled.
	Probe ProbeFunc

	// StartupDelay postpones activation so the host environment can
	// finish its own initialization.
	StartupDelay time.Duration

	// ReloadInterval is the period between rule-set refreshes.
	ReloadInterval time.Duration

	// SelfTest enables the one-shot blocked-resolution probe after
	// activation.
	SelfTest bool

	// WatchPaths, when non-empty, additionally reloads whenever one of
	// these files changes on disk.
	WatchPaths []string
}

// Controller drives the filter through its lifecycle. A single
// Controller owns the published RuleSet and the hook installation
// state; only one may be active per Sites instance.
type Controller struct {
	opts  Options
	state atomic.Int32
}

// New validates the wiring and returns an idle Controller.
func New(opts Options) (*Controller, error) {
	if opts.Loader == nil {
		return nil, errors.New("lifecycle: Loader is required")
	}
	if opts.Rules == nil {
		return nil, errors.New("lifecycle: Rules is required")
	}
	if opts.Hooks == nil {
		return nil, errors.New("lifecycle: Hooks is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("lifecycle: Logger is required")
	}
	if opts.ReloadInterval <= 0 {
		return nil, errors.New("lifecycle: ReloadInterval must be positive")
	}
	return &Controller{opts: opts}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Run executes the lifecycle until ctx is cancelled or an
// unrecoverable error occurs. Hooks installed during the run are
// removed on every exit path, including panics, so the process can
// never be left half-patched.
func (c *Controller) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.opts.Logger.Error(map[string]any{"panic": r}, "unexpected runtime failure in monitoring loop")
			err = fmt.Errorf("unexpected runtime failure: %v", r)
		}
	}()

	if !c.waitStartupDelay(ctx) {
		return nil // shutdown before activation; nothing to restore
	}

	c.setState(StateLoading)
	rs := c.opts.Loader.Load()
	c.opts.Rules.Swap(rs)
	metrics.SetRuleCounts(rs.BlockedCount(), rs.AllowedCount())

	if err := c.opts.Hooks.Install(); err != nil {
		// Install rolls partial swaps back itself; Remove is a no-op
		// here but keeps the restoration contract unconditional.
		c.opts.Hooks.Remove()
		c.setState(StateIdle)
		return fmt.Errorf("hook installation failed: %w", err)
	}

	defer func() {
		c.setState(StateStopping)
		c.opts.Hooks.Remove()
		c.setState(StateIdle)
		c.opts.Logger.Info(nil, "filter deactivated")
	}()

	c.setState(StateActive)
	c.opts.Logger.Info(map[string]any{
		"blocked": rs.BlockedCount(),
		"allowed": rs.AllowedCount(),
	}, "filter activated")

	if c.opts.SelfTest {
		c.selfTest(ctx)
	}

	return c.monitor(ctx)
}

// waitStartupDelay sleeps the configured delay, returning false if
// shutdown arrives first.
func (c *Controller) waitStartupDelay(ctx context.Context) bool {
	if c.opts.StartupDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(c.opts.StartupDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// monitor runs the periodic reload loop until shutdown. The wait is
// bounded: cancellation interrupts it immediately rather than waiting
// out the interval.
func (c *Controller) monitor(ctx context.Context) error {
	// nil channels block forever in select, so watching is simply
	// absent when not configured
	var watchEvents chan fsnotify.Event
	var watchErrors chan error
	watched := make(map[string]struct{}, len(c.opts.WatchPaths))

	if len(c.opts.WatchPaths) > 0 {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			c.opts.Logger.Warn(map[string]any{"error": err.Error()}, "file watching unavailable; relying on the reload interval")
		} else {
			defer watcher.Close()
			dirs := make(map[string]struct{})
			for _, p := range c.opts.WatchPaths {
				p = filepath.Clean(p)
				watched[p] = struct{}{}
				dirs[filepath.Dir(p)] = struct{}{}
			}
			// watch the directories, not the files: list updates are
			// usually atomic renames, which drop a file-level watch
			for d := range dirs {
				if err := watcher.Add(d); err != nil {
					c.opts.Logger.Warn(map[string]any{"dir": d, "error": err.Error()}, "cannot watch rule directory")
				}
			}
			watchEvents = watcher.Events
			watchErrors = watcher.Errors
		}
	}

	ticker := time.NewTicker(c.opts.ReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.reload("interval")
		case ev := <-watchEvents:
			if _, ok := watched[filepath.Clean(ev.Name)]; !ok {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			c.reload("file change")
		case err := <-watchErrors:
			c.opts.Logger.Warn(map[string]any{"error": err.Error()}, "rule file watcher error")
		}
	}
}

// reload rebuilds the RuleSet and atomically publishes it. Hook
// evaluations already holding the old snapshot complete against it.
func (c *Controller) reload(reason string) {
	c.setState(StateReloading)
	rs := c.opts.Loader.Load()
	c.opts.Rules.Swap(rs)
	metrics.ObserveReload()
	metrics.SetRuleCounts(rs.BlockedCount(), rs.AllowedCount())
	c.setState(StateActive)
	c.opts.Logger.Info(map[string]any{
		"reason":  reason,
		"blocked": rs.BlockedCount(),
		"allowed": rs.AllowedCount(),
	}, "rule set reloaded")
}
