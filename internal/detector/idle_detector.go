// Package detector implements idle detection over a continuous stream of
// activity signals. A periodic check promotes the state to idle once no
// activity has been seen for the configured threshold; any activity signal
// demotes it immediately.
package detector

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// IdleDetector classifies activity into active/idle intervals. Exactly one
// idle interval is open at a time, and every idle-start is matched by
// exactly one idle-end, even when the detector is stopped while idle.
//
// Transition callbacks are always invoked with no internal lock held, so a
// handler may safely call back into the detector (an idle-end handler that
// records activity, for example).
type IdleDetector struct {
	mu            sync.Mutex
	threshold     time.Duration
	checkInterval time.Duration
	lastActivity  time.Time
	idleStart     time.Time
	idle          bool
	running       bool
	onIdleStart   func(threshold time.Duration)
	onIdleEnd     func(total time.Duration)
	logger        *zap.Logger
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// New creates a detector with the given idle threshold and poll cadence.
// A non-positive threshold falls back to the 5 minute default; a
// non-positive cadence falls back to 1 second.
func New(threshold, checkInterval time.Duration, logger *zap.Logger) *IdleDetector {
	if threshold <= 0 {
		threshold = 5 * time.Minute
	}
	if checkInterval <= 0 {
		checkInterval = time.Second
	}
	return &IdleDetector{
		threshold:     threshold,
		checkInterval: checkInterval,
		logger:        logger,
	}
}

// Start begins periodic idle checks. It is idempotent: calling Start while
// already running is a no-op. Starting resets the activity clock to now and
// clears any idle state.
func (d *IdleDetector) Start(onIdleStart func(time.Duration), onIdleEnd func(time.Duration)) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.idle = false
	d.lastActivity = time.Now()
	d.onIdleStart = onIdleStart
	d.onIdleEnd = onIdleEnd
	d.stopChan = make(chan struct{})
	interval := d.checkInterval
	d.mu.Unlock()

	d.wg.Add(1)
	go d.checkLoop(interval)

	d.logger.Info("Idle detector started",
		zap.Duration("threshold", d.Threshold()),
		zap.Duration("check_interval", interval),
	)
}

// Stop halts the periodic checks. If the user is currently idle, exactly one
// synthetic idle-end carrying the duration accrued so far is emitted before
// Stop returns, so no interval is left dangling. Stop is idempotent.
func (d *IdleDetector) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopChan)

	wasIdle := d.idle
	var total time.Duration
	if wasIdle {
		total = time.Since(d.idleStart)
		d.idle = false
	}
	onIdleEnd := d.onIdleEnd
	d.mu.Unlock()

	d.wg.Wait()

	if wasIdle {
		d.logger.Info("Idle detector stopped while idle, closing interval",
			zap.Duration("idle_duration", total),
		)
		if onIdleEnd != nil {
			onIdleEnd(total)
		}
	}

	d.logger.Info("Idle detector stopped")
}

// RecordActivity updates the last-activity clock. Callable from any producer
// context. If the user is currently idle, the interval closes immediately
// rather than waiting for the next poll, and idle-end fires with the exact
// duration from the interval's start.
func (d *IdleDetector) RecordActivity() {
	now := time.Now()

	d.mu.Lock()
	wasIdle := d.idle
	var total time.Duration
	if wasIdle {
		total = now.Sub(d.idleStart)
		d.idle = false
	}
	d.lastActivity = now
	onIdleEnd := d.onIdleEnd
	d.mu.Unlock()

	if wasIdle {
		d.logger.Info("Activity detected, ending idle state",
			zap.Duration("idle_duration", total),
		)
		if onIdleEnd != nil {
			onIdleEnd(total)
		}
	}
}

// SetThreshold updates the idle threshold for future checks. Non-positive
// values are rejected and the prior threshold is retained. Changing the
// threshold does not retroactively open or close the current interval.
func (d *IdleDetector) SetThreshold(threshold time.Duration) {
	if threshold <= 0 {
		d.logger.Warn("Ignoring invalid idle threshold",
			zap.Duration("threshold", threshold),
		)
		return
	}

	d.mu.Lock()
	d.threshold = threshold
	d.mu.Unlock()

	d.logger.Info("Idle threshold updated", zap.Duration("threshold", threshold))
}

// Threshold returns the current idle threshold.
func (d *IdleDetector) Threshold() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threshold
}

// IsRunning reports whether periodic checks are active.
func (d *IdleDetector) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// IsIdle reports whether the user is currently idle.
func (d *IdleDetector) IsIdle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle
}

// LastActivityTime returns the instant of the most recent activity signal.
func (d *IdleDetector) LastActivityTime() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastActivity
}

// IdleDuration returns how long the current idle interval has been open, or
// zero when not idle.
func (d *IdleDetector) IdleDuration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.idle {
		return 0
	}
	return time.Since(d.idleStart)
}

// TriggerCheck runs one idle check immediately, outside the poll cadence.
func (d *IdleDetector) TriggerCheck() {
	d.checkIdleState()
}

func (d *IdleDetector) checkLoop(interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.checkIdleState()
		case <-d.stopChan:
			return
		}
	}
}

// checkIdleState promotes to idle once the threshold is crossed. The idle
// interval starts at lastActivity + threshold, not at the poll instant, so
// the reported duration is exact regardless of the poll cadence. While
// already idle there is no repeated emission.
func (d *IdleDetector) checkIdleState() {
	d.mu.Lock()
	if !d.running || d.idle {
		d.mu.Unlock()
		return
	}

	threshold := d.threshold
	elapsed := time.Since(d.lastActivity)
	if elapsed < threshold {
		d.mu.Unlock()
		return
	}

	d.idle = true
	d.idleStart = d.lastActivity.Add(threshold)
	onIdleStart := d.onIdleStart
	d.mu.Unlock()

	d.logger.Info("User entered idle state",
		zap.Duration("threshold", threshold),
	)
	if onIdleStart != nil {
		onIdleStart(threshold)
	}
}
