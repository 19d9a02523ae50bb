package smpa

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// ProgressFunc receives progress updates during archive operations.
//
//   - name: the file the update concerns, or "" for aggregate byte counts
//   - n: >= 0 means n bytes processed since the previous update; < 0 means
//     a 0-100 completion percentage, negated
//
// Return false to request cancellation: the running operation cleans up its
// in-flight partial output and fails with ErrCancelled.
//
// Callbacks are invoked at most once per the operation's progress interval
// (DefaultProgressInterval unless overridden), except for a single
// immediate call at the start of pack and erase operations.
type ProgressFunc func(name string, n int) bool

// DefaultProgressInterval is the minimum delay between two progress
// callback invocations, roughly 25 reports per second.
const DefaultProgressInterval = 40 * time.Millisecond

// monitor owns one operation's progress state: the callback, the throttle,
// and the bytes accumulated since the last aggregate report.
type monitor struct {
	ctx     context.Context
	fn      ProgressFunc
	lim     *rate.Limiter
	pending uint64
}

// newMonitor creates a monitor for one operation. A nil fn falls back to
// the process-wide default callback at each invocation. interval <= 0
// disables throttling so every update reports.
func newMonitor(ctx context.Context, fn ProgressFunc, interval time.Duration) *monitor {
	m := &monitor{ctx: ctx, fn: fn}
	if interval > 0 {
		m.lim = rate.NewLimiter(rate.Every(interval), 1)
	}
	return m
}

func (m *monitor) callback() ProgressFunc {
	if m.fn != nil {
		return m.fn
	}
	return getDefaultProgress()
}

// cancelled checks the operation's context; a done context cancels exactly
// like a callback returning false, minus the callback.
func (m *monitor) cancelled() error {
	if m.ctx != nil {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		default:
		}
	}
	return nil
}

// add accrues bytes for the next aggregate report.
func (m *monitor) add(n uint64) {
	m.pending += n
}

// report invokes the callback immediately, bypassing the throttle. Used for
// the operation-start call that allows early cancellation.
func (m *monitor) report(name string, n int) error {
	if err := m.cancelled(); err != nil {
		return err
	}

	if fn := m.callback(); fn != nil && !fn(name, n) {
		return ErrCancelled
	}
	return nil
}

// tick reports the accumulated byte count with no name, at most once per
// interval, then resets the accumulator. Counts above MaxInt32 are capped.
func (m *monitor) tick() error {
	if err := m.cancelled(); err != nil {
		return err
	}

	fn := m.callback()
	if fn == nil {
		return nil
	}
	if m.lim != nil && !m.lim.Allow() {
		return nil
	}

	n := m.pending
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	m.pending = 0

	if !fn("", int(n)) {
		return ErrCancelled
	}
	return nil
}

// percent reports name together with a negated done/total percentage,
// capped at 100, at most once per interval.
func (m *monitor) percent(name string, done, total uint64) error {
	if err := m.cancelled(); err != nil {
		return err
	}

	fn := m.callback()
	if fn == nil {
		return nil
	}
	if m.lim != nil && !m.lim.Allow() {
		return nil
	}

	p := calcPercent(done, total)
	if p > 100 {
		p = 100
	}

	if !fn(name, -int(p)) {
		return ErrCancelled
	}
	return nil
}

// calcPercent computes a rounded 0-100 percentage. A zero total yields 0.
func calcPercent(n, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	return (n*100 + total/2) / total
}
