// File: layer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Layer is the singleton context owning the selected backend. It is created
// cheaply by New and initialized lazily by the first call that needs the
// backend. Initialization runs under two locks, process-wide first and then
// in-process, and either completes fully or leaves the Layer uninitialized so
// the next caller retries.

package threadlayer

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/momentics/threadlayer/adapters"
	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/backend"
	"github.com/momentics/threadlayer/internal/concurrency"
)

type state int32

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// Layer owns one selected and launched backend.
type Layer struct {
	cfg      Config
	log      *slog.Logger
	selector *backend.Selector
	host     api.HostLock
	control  *adapters.ControlAdapter

	outer    concurrency.Locker
	proc     *concurrency.ProcessLock // nil when outer is a no-op
	procOnce sync.Once
	inner    sync.Mutex

	state atomic.Int32

	flightMu sync.Mutex // orders dispatch entry against the closed transition
	inflight int

	// be is written under inner before state becomes ready and never again.
	be       api.Backend
	launched int
}

// Option customizes a Layer.
type Option func(*Layer)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Layer) {
		if logger != nil {
			l.log = logger
		}
	}
}

// WithRegistry selects backends from reg instead of the process default
// registry.
func WithRegistry(reg *backend.Registry) Option {
	return func(l *Layer) { l.selector.Registry = reg }
}

// WithPlatform overrides the platform facts used by the safety tables.
func WithPlatform(p backend.Platform) Option {
	return func(l *Layer) { l.selector.Platform = p }
}

// WithHostLock sets the host execution token released around every
// parallel section.
func WithHostLock(h api.HostLock) Option {
	return func(l *Layer) {
		if h != nil {
			l.host = h
		}
	}
}

// New validates cfg and returns an uninitialized Layer.
func New(cfg Config, opts ...Option) (*Layer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Layer{
		cfg:      cfg,
		log:      slog.Default(),
		selector: backend.NewSelector(nil),
		host:     api.NopHostLock{},
		outer:    concurrency.NopLocker{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.selector.Logger = l.log

	if cfg.LockPath != "" {
		proc, err := concurrency.NewProcessLock(cfg.LockPath)
		if err != nil {
			l.log.Warn("process lock unavailable, initialization is only guarded in-process",
				slog.String("path", cfg.LockPath), slog.Any("error", err))
		} else {
			l.proc = proc
			l.outer = proc
		}
	}

	l.control = adapters.NewControlAdapter()
	l.control.SeedConfig(map[string]any{
		keyNumThreads: cfg.NumThreads,
		keyChunkSize:  cfg.ChunkSize,
		keyLayer:      cfg.Layer,
		keyPinThreads: cfg.PinThreads,
	})
	l.control.OnReload(l.reload)
	l.registerProbes()
	return l, nil
}

// Config returns the configuration the Layer was created with.
func (l *Layer) Config() Config { return l.cfg }

// Ready reports whether initialization has completed.
func (l *Layer) Ready() bool { return state(l.state.Load()) == stateReady }

// EnsureReady initializes the Layer if needed. It is idempotent and safe for
// concurrent use; exactly one caller performs the initialization.
func (l *Layer) EnsureReady() error {
	switch state(l.state.Load()) {
	case stateReady:
		return nil
	case stateClosed:
		return closedError()
	}

	if err := l.outer.Lock(); err != nil {
		return api.NewError(api.ErrCodeInit, "acquire initialization lock").Wrap(err)
	}
	defer l.unlockOuter()
	l.inner.Lock()
	defer l.inner.Unlock()

	switch state(l.state.Load()) {
	case stateReady:
		return nil
	case stateClosed:
		return closedError()
	}

	l.state.Store(int32(stateInitializing))
	b, err := l.launch()
	if err != nil {
		l.state.Store(int32(stateUninitialized))
		l.log.Warn("threading layer initialization failed", slog.Any("error", err))
		return err
	}
	l.be = b
	l.launched = l.cfg.NumThreads
	l.state.Store(int32(stateReady))
	l.log.Info("threading layer ready",
		slog.String("layer", b.Name()),
		slog.Int("threads", l.cfg.NumThreads),
		slog.Int("chunk_size", b.ChunkSize()))
	return nil
}

func (l *Layer) launch() (api.Backend, error) {
	mode, err := backend.ParseMode(l.cfg.Layer)
	if err != nil {
		return nil, err
	}
	b, err := l.selector.Select(mode, backend.LoadOptions{Logger: l.log, PinThreads: l.cfg.PinThreads})
	if err != nil {
		return nil, err
	}

	n := l.cfg.NumThreads
	if err := b.Launch(n); err != nil {
		_ = b.Close()
		return nil, api.Errorf(api.ErrCodeInit, "launch %s threading layer", b.Name()).Wrap(err)
	}
	if err := b.SetThreadCount(n); err != nil {
		_ = b.Close()
		return nil, api.Errorf(api.ErrCodeInit, "configure %s threading layer", b.Name()).Wrap(err)
	}
	if err := b.SetChunkSize(l.cfg.ChunkSize); err != nil {
		_ = b.Close()
		return nil, api.Errorf(api.ErrCodeInit, "configure %s threading layer", b.Name()).Wrap(err)
	}
	return b, nil
}

func (l *Layer) unlockOuter() {
	if err := l.outer.Unlock(); err != nil {
		l.log.Warn("release initialization lock", slog.Any("error", err))
	}
}

// Shutdown stops the backend's workers and moves the Layer to a terminal
// closed state. Later calls return ErrCodeClosed errors. Shutdown is
// idempotent. Dispatches already running finish first; the last of them
// stops the workers, so Shutdown may return before they are stopped.
func (l *Layer) Shutdown() error {
	if state(l.state.Load()) == stateClosed {
		return nil
	}
	err := l.shutdown()
	l.procOnce.Do(func() {
		if l.proc == nil {
			return
		}
		if cerr := l.proc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

func (l *Layer) shutdown() error {
	if err := l.outer.Lock(); err != nil {
		return api.NewError(api.ErrCodeInit, "acquire initialization lock").Wrap(err)
	}
	defer l.unlockOuter()
	l.inner.Lock()
	defer l.inner.Unlock()

	l.flightMu.Lock()
	prev := state(l.state.Swap(int32(stateClosed)))
	busy := l.inflight > 0
	l.flightMu.Unlock()
	if prev != stateReady {
		return nil
	}
	if busy {
		l.log.Debug("threading layer closes after in-flight dispatches", slog.String("layer", l.be.Name()))
		return nil
	}
	return l.closeBackend()
}

// enter registers a dispatch. It fails once the Layer is closed.
func (l *Layer) enter() bool {
	l.flightMu.Lock()
	defer l.flightMu.Unlock()
	if state(l.state.Load()) != stateReady {
		return false
	}
	l.inflight++
	return true
}

// leave ends a dispatch. The last dispatch to leave a closed Layer stops
// the backend.
func (l *Layer) leave() {
	l.flightMu.Lock()
	l.inflight--
	last := l.inflight == 0 && state(l.state.Load()) == stateClosed
	l.flightMu.Unlock()
	if last {
		if err := l.closeBackend(); err != nil {
			l.log.Warn("threading layer shutdown", slog.Any("error", err))
		}
	}
}

func (l *Layer) closeBackend() error {
	if err := l.be.Close(); err != nil {
		return api.Errorf(api.ErrCodeInternal, "close %s threading layer", l.be.Name()).Wrap(err)
	}
	l.log.Info("threading layer shut down", slog.String("layer", l.be.Name()))
	return nil
}

// Name returns the name of the selected threading layer. It fails before
// initialization instead of triggering it.
func (l *Layer) Name() (string, error) {
	switch state(l.state.Load()) {
	case stateReady:
		return l.be.Name(), nil
	case stateClosed:
		return "", closedError()
	}
	return "", api.NewError(api.ErrCodeNotInitialized, "Threading layer is not initialized.")
}

// Control exposes runtime configuration, metrics and debug probes.
func (l *Layer) Control() api.Control { return l.control }

// ready returns the backend, initializing the Layer first if needed.
func (l *Layer) ready() (api.Backend, error) {
	if err := l.EnsureReady(); err != nil {
		return nil, err
	}
	return l.be, nil
}

func closedError() error {
	return api.NewError(api.ErrCodeClosed, "threading layer is shut down")
}
