package resolver

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDebounceWindow is the quiet period before a validation call runs.
const DefaultDebounceWindow = 500 * time.Millisecond

// Generation stamps requests issued for one field. Only the latest stamp is
// current; completions carrying an older stamp must be discarded.
type Generation struct {
	seq atomic.Uint64
}

// Next issues a new stamp, superseding every earlier one.
func (g *Generation) Next() uint64 {
	return g.seq.Add(1)
}

// Current reports whether seq is the latest stamp issued.
func (g *Generation) Current(seq uint64) bool {
	return g.seq.Load() == seq
}

// Timer is the handle returned by a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn after d. The system scheduler uses time.AfterFunc; tests
// inject a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemScheduler schedules on the wall clock.
var SystemScheduler Scheduler = systemScheduler{}

// Debouncer runs only the last function triggered within the window.
type Debouncer struct {
	mu        sync.Mutex
	window    time.Duration
	scheduler Scheduler
	timer     Timer
	pending   func()
	token     uint64
}

// NewDebouncer returns a debouncer. A non-positive window uses
// DefaultDebounceWindow and a nil scheduler uses SystemScheduler.
func NewDebouncer(window time.Duration, scheduler Scheduler) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if scheduler == nil {
		scheduler = SystemScheduler
	}
	return &Debouncer{window: window, scheduler: scheduler}
}

// Trigger schedules fn, cancelling any function still waiting.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.token++
	token := d.token
	d.pending = fn
	d.timer = d.scheduler.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.token != token || d.pending == nil {
			d.mu.Unlock()
			return
		}
		run := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()
		run()
	})
}

// Flush runs the waiting function now, on the caller's goroutine. It reports
// whether anything was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	run := d.pending
	if run == nil {
		d.mu.Unlock()
		return false
	}
	d.pending = nil
	d.token++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	run()
	return true
}

// Stop drops the waiting function without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	d.token++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a function is waiting.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
