package syntax

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
)

// DefaultDelay is the quiet period before a check runs
const DefaultDelay = 300 * time.Millisecond

// Debouncer runs Check once input has been quiet for the delay. Only the
// latest input is ever reported.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	seq     uint64
	stopped bool
	report  func(content string, errs []domain.SyntaxError)
}

// NewDebouncer creates a debouncer calling report from its own goroutine
func NewDebouncer(delay time.Duration, report func(content string, errs []domain.SyntaxError)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, report: report}
}

// Trigger schedules a check of content, cancelling any pending one
func (d *Debouncer) Trigger(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		errs := Check(content)

		d.mu.Lock()
		current := seq == d.seq && !d.stopped
		d.mu.Unlock()

		if current {
			d.report(content, errs)
		}
	})
}

// Stop cancels any pending check; later triggers are ignored
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
