package watch

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid change events: the callback fires once with the
// path of the most recent event after a full quiet interval has passed
// without further triggers.
type Debouncer struct {
	quiet time.Duration
	fire  func(path string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
}

// NewDebouncer returns a debouncer firing fire after quiet of inactivity.
func NewDebouncer(quiet time.Duration, fire func(path string)) *Debouncer {
	return &Debouncer{quiet: quiet, fire: fire}
}

// Trigger records an event and restarts the quiet interval. The path of the
// last trigger before the interval elapses is the one reported.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = path

	if d.timer == nil {
		d.timer = time.AfterFunc(d.quiet, d.emit)

		return
	}

	d.timer.Reset(d.quiet)
}

func (d *Debouncer) emit() {
	d.mu.Lock()
	path := d.pending
	d.mu.Unlock()

	d.fire(path)
}

// Stop cancels a pending callback. A later Trigger arms the debouncer again.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}
