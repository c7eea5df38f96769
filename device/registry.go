package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "bakery/internal/errors"
)

// Source feeds adapter hotplug events until ctx is done.
type Source interface {
	Run(ctx context.Context, post func(Event)) error
}

// Enumerator lists adapters already present at activation.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]Attached, error)
}

// Handler is called on the dispatcher goroutine after every state change.
type Handler func(Event)

type Options struct {
	Source        Source
	Enumerator    Enumerator
	Prober        Prober
	ProbeInterval time.Duration
	QueueSize     int
	Logger        *slog.Logger
}

type entry struct {
	Device
	gen uint64
	// coldplug is set until the kernel's own add for the path arrives.
	coldplug bool
}

// Registry tracks attached adapters and media presence. All mutations are
// applied by a single dispatcher goroutine in the order they were posted.
type Registry struct {
	opts   Options
	logger *slog.Logger
	events chan Event
	fatal  chan error

	mu      sync.RWMutex
	devices []entry
	nextGen uint64
	retired map[uint64]string

	handlersMu sync.Mutex
	handlers   []Handler

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	failOnce  sync.Once
}

func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Prober == nil {
		opts.Prober = PartitionTableProber{}
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Registry{
		opts:    opts,
		logger:  opts.Logger,
		events:  make(chan Event, opts.QueueSize),
		fatal:   make(chan error, 1),
		retired: make(map[uint64]string),
	}
}

// Subscribe registers h for every applied change.
func (r *Registry) Subscribe(h Handler) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	r.handlers = append(r.handlers, h)
}

// Fatal delivers the first topology inconsistency. The registry has stopped
// processing events by the time it is received.
func (r *Registry) Fatal() <-chan error {
	return r.fatal
}

// Activate starts the dispatcher, the hotplug source, the startup enumeration
// and the presence prober.
func (r *Registry) Activate(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.cancel != nil {
		return errors.New("device registry already active")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	post := func(ev Event) { r.post(ctx, ev) }

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.dispatch(ctx)
	}()

	// The enumeration may see an adapter before or after the listener posts
	// its add. apply merges the two attaches for the same path.
	if r.opts.Source != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.opts.Source.Run(ctx, post); err != nil && ctx.Err() == nil {
				r.fail(fmt.Errorf("hotplug listener: %w", err))
			}
		}()
	}

	if r.opts.Enumerator != nil {
		attached, err := r.opts.Enumerator.Enumerate(ctx)
		if err != nil {
			r.logger.Warn("Startup device enumeration failed", slog.String("error", err.Error()))
		}
		for _, ev := range attached {
			ev.Coldplug = true
			post(ev)
		}
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.probeLoop(ctx)
	}()

	r.logger.Info("Device registry active", slog.Duration("probe_interval", r.opts.ProbeInterval))
	return nil
}

// Deactivate stops all workers and waits for them to exit.
func (r *Registry) Deactivate() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.cancel = nil
}

// Post queues an event for the dispatcher. It blocks while the queue is full.
func (r *Registry) Post(ctx context.Context, ev Event) {
	r.post(ctx, ev)
}

func (r *Registry) post(ctx context.Context, ev Event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}

func (r *Registry) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.events:
			changed, err := r.apply(ev)
			if err != nil {
				r.fail(err)
				return
			}
			if changed {
				r.notify(ev)
			}
		}
	}
}

func (r *Registry) fail(err error) {
	r.failOnce.Do(func() {
		appErr := apperrors.NewDeviceError("device registry", err)
		apperrors.LogError(r.logger, appErr)
		r.fatal <- appErr
		if r.cancel != nil {
			r.cancel()
		}
	})
}

func (r *Registry) notify(ev Event) {
	r.handlersMu.Lock()
	handlers := append([]Handler(nil), r.handlers...)
	r.handlersMu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// apply mutates the device list. It reports whether anything changed.
func (r *Registry) apply(ev Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(ev.DevicePath())

	switch e := ev.(type) {
	case Attached:
		if idx >= 0 {
			if e.Coldplug {
				return false, nil
			}
			if r.devices[idx].coldplug {
				r.devices[idx].coldplug = false
				r.logger.Debug("Hotplug attach matched startup enumeration", slog.String("device", e.Path))
				return false, nil
			}
			return false, fmt.Errorf("attach %s: %w", e.Path, ErrDuplicateDevice)
		}
		r.nextGen++
		r.devices = append(r.devices, entry{
			Device:   Device{Path: e.Path, Model: e.Model},
			gen:      r.nextGen,
			coldplug: e.Coldplug,
		})
		r.logger.Info("Device attached", slog.String("device", e.Path), slog.String("model", e.Model))
		return true, nil

	case Detached:
		if idx < 0 {
			return false, fmt.Errorf("detach %s: %w", e.Path, ErrUnknownDevice)
		}
		r.retired[r.devices[idx].gen] = e.Path
		r.devices = append(r.devices[:idx], r.devices[idx+1:]...)
		r.logger.Info("Device detached", slog.String("device", e.Path))
		return true, nil

	case PresenceChanged:
		if r.staleLocked(e, idx) {
			r.logger.Debug("Dropping stale presence report",
				slog.String("device", e.Path),
				slog.Uint64("generation", e.Generation))
			return false, nil
		}
		if idx < 0 {
			return false, fmt.Errorf("presence %s: %w", e.Path, ErrUnknownDevice)
		}
		if r.devices[idx].Present == e.Present {
			return false, nil
		}
		r.devices[idx].Present = e.Present
		r.logger.Info("Media presence changed",
			slog.String("device", e.Path),
			slog.Bool("present", e.Present))
		return true, nil
	}

	return false, fmt.Errorf("unhandled event %T", ev)
}

// staleLocked reports whether a presence report belongs to an attachment of
// the same path that has since been detached.
func (r *Registry) staleLocked(e PresenceChanged, idx int) bool {
	if e.Generation == 0 {
		return false
	}
	if idx >= 0 && r.devices[idx].gen == e.Generation {
		return false
	}
	path, ok := r.retired[e.Generation]
	return ok && path == e.Path
}

func (r *Registry) indexLocked(path string) int {
	for i, d := range r.devices {
		if d.Path == path {
			return i
		}
	}
	return -1
}

func (r *Registry) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(r.opts.ProbeInterval)
	defer ticker.Stop()

	r.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.probeAll(ctx)
		}
	}
}

func (r *Registry) probeAll(ctx context.Context) {
	r.mu.RLock()
	targets := append([]entry(nil), r.devices...)
	r.mu.RUnlock()

	for _, t := range targets {
		if ctx.Err() != nil {
			return
		}
		present := r.opts.Prober.Probe(ctx, t.Path)
		if present != t.Present {
			r.post(ctx, PresenceChanged{Path: t.Path, Present: present, Generation: t.gen})
		}
	}
}

// DeviceCount returns the number of attached adapters.
func (r *Registry) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// DeviceAt returns the i-th adapter in attach order.
func (r *Registry) DeviceAt(i int) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.devices) {
		return Device{}, false
	}
	return r.devices[i].Device, true
}

// IsPresent reports whether the i-th adapter holds media. Out of range is false.
func (r *Registry) IsPresent(i int) bool {
	d, ok := r.DeviceAt(i)
	return ok && d.Present
}

// FirstPresent returns the first adapter holding media.
func (r *Registry) FirstPresent() (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.Present {
			return d.Device, true
		}
	}
	return Device{}, false
}

// Lookup returns the adapter at path.
func (r *Registry) Lookup(path string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexLocked(path); idx >= 0 {
		return r.devices[idx].Device, true
	}
	return Device{}, false
}

// Snapshot returns a copy of all adapters in attach order.
func (r *Registry) Snapshot() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, len(r.devices))
	for i, d := range r.devices {
		out[i] = d.Device
	}
	return out
}
