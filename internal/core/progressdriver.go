package core

import (
	"time"
)

// Renderer draws a tracker snapshot. Render must not retain or mutate the
// snapshot's step slice beyond the call.
type Renderer interface {
	Render(snap TrackerSnapshot) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(TrackerSnapshot) error

func (f RendererFunc) Render(snap TrackerSnapshot) error { return f(snap) }

// ProgressDriver renders a StepTracker at a fixed interval. It is cooperative:
// nothing happens between calls, so the owning goroutine calls Refresh (or
// Wait) whenever it has a moment. The driver only reads tracker state.
type ProgressDriver struct {
	tracker  *StepTracker
	renderer Renderer
	interval time.Duration
	now      func() time.Time
	sleep    func(time.Duration)

	running    bool
	lastRender time.Time
	renders    int
	err        error
}

// NewProgressDriver creates a driver. now and sleep default to time.Now and
// time.Sleep; interval defaults to 100ms.
func NewProgressDriver(tracker *StepTracker, renderer Renderer, interval time.Duration, now func() time.Time, sleep func(time.Duration)) *ProgressDriver {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if now == nil {
		now = time.Now
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &ProgressDriver{
		tracker:  tracker,
		renderer: renderer,
		interval: interval,
		now:      now,
		sleep:    sleep,
	}
}

// Start renders the current state and begins scheduling refreshes. Calling
// Start on a running driver is a no-op.
func (d *ProgressDriver) Start() {
	if d.running {
		return
	}
	d.running = true
	d.render()
}

// Running reports whether refreshes are still scheduled.
func (d *ProgressDriver) Running() bool { return d.running }

// Renders returns how many frames were drawn.
func (d *ProgressDriver) Renders() int { return d.renders }

// Err returns the first renderer error, if any. Rendering errors never
// interrupt the tracked work.
func (d *ProgressDriver) Err() error { return d.err }

// Refresh renders if the interval has elapsed since the last frame. When the
// tracker reports every step terminal the driver stops itself, which draws
// the final frame. It reports whether the driver is still running.
func (d *ProgressDriver) Refresh() bool {
	if !d.running {
		return false
	}
	if d.tracker.Done() {
		d.Stop()
		return false
	}
	if d.now().Sub(d.lastRender) >= d.interval {
		d.render()
	}
	return true
}

// Stop draws one final frame from the current tracker state and cancels all
// further refreshes. Stopping a stopped driver does nothing.
func (d *ProgressDriver) Stop() {
	if !d.running {
		return
	}
	d.running = false
	d.render()
}

// Wait sleeps for total, waking at each refresh interval to redraw. It is the
// sleep function handed to the ErrorHandler so backoff delays keep the
// display live on the same goroutine.
func (d *ProgressDriver) Wait(total time.Duration) {
	for total > 0 {
		slice := d.interval
		if slice > total {
			slice = total
		}
		d.sleep(slice)
		total -= slice
		d.Refresh()
	}
}

func (d *ProgressDriver) render() {
	d.lastRender = d.now()
	d.renders++
	if err := d.renderer.Render(d.tracker.Snapshot()); err != nil && d.err == nil {
		d.err = err
	}
}
