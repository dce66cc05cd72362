// Package agent wires the tracking components together: raw input capture
// feeds the activity log and the idle clock, idle transitions become SYSTEM
// records and annotation prompts, and shutdown tears everything down in
// order.
package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/bramburn/timetracker/internal/annotation"
	"github.com/bramburn/timetracker/internal/detector"
	"github.com/bramburn/timetracker/internal/logstore"
	"github.com/bramburn/timetracker/internal/models"
	"github.com/bramburn/timetracker/internal/platform"
	"github.com/bramburn/timetracker/internal/screenshot"
	"github.com/bramburn/timetracker/internal/tracker"
	"github.com/bramburn/timetracker/internal/uploader"

	"go.uber.org/zap"
)

// Agent owns the component lifecycle for one tracking run.
type Agent struct {
	platform    platform.Platform
	store       *logstore.Store
	detector    *detector.IdleDetector
	tracker     *tracker.WindowTracker
	uploader    *uploader.Coordinator
	flow        *annotation.Flow
	screenshots *screenshot.Service // nil when capture is disabled
	logger      *zap.Logger

	onStateChange func(idle bool)

	mu        sync.Mutex
	started   bool
	stopping  bool
	capturing bool
}

// New assembles an agent. The screenshot service may be nil.
func New(
	p platform.Platform,
	store *logstore.Store,
	det *detector.IdleDetector,
	wt *tracker.WindowTracker,
	up *uploader.Coordinator,
	flow *annotation.Flow,
	screenshots *screenshot.Service,
	logger *zap.Logger,
) *Agent {
	return &Agent{
		platform:    p,
		store:       store,
		detector:    det,
		tracker:     wt,
		uploader:    up,
		flow:        flow,
		screenshots: screenshots,
		logger:      logger,
	}
}

// OnStateChange registers a listener for active/idle transitions. Must be
// called before Start.
func (a *Agent) OnStateChange(fn func(idle bool)) {
	a.onStateChange = fn
}

// Start brings all components up. Failure to register input hooks is not
// fatal: the agent keeps running on window tracking and timers alone, with
// one warning.
func (a *Agent) Start() error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("agent already started")
	}
	a.started = true
	a.mu.Unlock()

	a.store.Append(models.ActivityRecord{
		Timestamp: time.Now(),
		EventType: models.EventSystem,
		Details:   "Activity tracking started",
	})

	a.uploader.Start()
	a.detector.Start(a.onIdleStarted, a.onIdleEnded)

	if err := a.platform.StartInputCapture(a.onInputEvent); err != nil {
		a.logger.Warn("Input capture unavailable, running in degraded mode",
			zap.Error(err),
		)
	} else {
		a.mu.Lock()
		a.capturing = true
		a.mu.Unlock()
	}

	a.tracker.Start()

	if a.screenshots != nil {
		if err := a.screenshots.Start(); err != nil {
			a.logger.Warn("Screenshot service failed to start", zap.Error(err))
		}
	}

	a.logger.Info("Agent started")
	return nil
}

// Stop tears components down in order: producers first so no new records
// appear, then the detector so an open idle interval closes, then a final
// log flush. Stop is synchronous and idempotent.
func (a *Agent) Stop() {
	a.mu.Lock()
	if !a.started || a.stopping {
		a.mu.Unlock()
		return
	}
	a.stopping = true
	capturing := a.capturing
	a.mu.Unlock()

	a.logger.Info("Agent stopping")

	if a.screenshots != nil {
		a.screenshots.Stop()
	}
	a.tracker.Stop()

	if capturing {
		if err := a.platform.StopInputCapture(); err != nil {
			a.logger.Warn("Failed to stop input capture", zap.Error(err))
		}
	}

	// Emits a synthetic idle-end if the user was idle, so the interval is
	// recorded before the final stop marker.
	a.detector.Stop()

	a.store.Append(models.ActivityRecord{
		Timestamp: time.Now(),
		EventType: models.EventSystem,
		Details:   "Activity tracking stopped",
	})

	a.uploader.UploadLogsNow()
	a.uploader.Stop()

	a.logger.Info("Agent stopped")
}

// onInputEvent runs on the hook callback path. It must stay cheap: append
// one record and bump the idle clock.
func (a *Agent) onInputEvent(ev platform.InputEvent) {
	a.mu.Lock()
	stopping := a.stopping
	a.mu.Unlock()
	if stopping {
		return
	}

	a.store.Append(models.ActivityRecord{
		Timestamp: ev.Timestamp,
		EventType: ev.Type,
		Details:   ev.Details,
	})
	a.detector.RecordActivity()
}

func (a *Agent) onIdleStarted(elapsed time.Duration) {
	a.store.Append(models.ActivityRecord{
		Timestamp: time.Now(),
		EventType: models.EventSystem,
		Details:   fmt.Sprintf("User became idle after %ds of inactivity", int(elapsed.Seconds())),
	})
	a.notifyState(true)
}

func (a *Agent) onIdleEnded(total time.Duration) {
	end := time.Now()
	a.store.Append(models.ActivityRecord{
		Timestamp: end,
		EventType: models.EventSystem,
		Details:   fmt.Sprintf("User active again after %ds idle", int(total.Seconds())),
	})
	a.notifyState(false)

	a.mu.Lock()
	stopping := a.stopping
	a.mu.Unlock()
	if stopping {
		return
	}

	// The flow blocks while the prompt is open; keep it off the detector's
	// callback path.
	go a.flow.HandleIdleEnd(end.Add(-total), end, total)
}

func (a *Agent) notifyState(idle bool) {
	if a.onStateChange != nil {
		a.onStateChange(idle)
	}
}

// IsIdle reports the detector's current state.
func (a *Agent) IsIdle() bool {
	return a.detector.IsIdle()
}
