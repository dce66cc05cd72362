// Package tracker samples the OS foreground window at a fixed cadence and
// records a change only when the process or title differs from the previous
// sample.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/bramburn/timetracker/internal/logstore"
	"github.com/bramburn/timetracker/internal/models"
	"github.com/bramburn/timetracker/internal/platform"

	"go.uber.org/zap"
)

// Sentinel state reported when no foreground window exists (desktop focus).
const (
	desktopProcess = "Desktop"
	desktopTitle   = "Desktop/No Active Window"
)

// WindowTracker polls the foreground window and appends an ACTIVE_APP record
// to the log store on every change. Sampling is edge-triggered: unchanged
// polls produce nothing.
type WindowTracker struct {
	platform     platform.Platform
	store        *logstore.Store
	pollInterval time.Duration
	logger       *zap.Logger

	mu          sync.RWMutex
	lastProcess string
	lastTitle   string
	seen        bool

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a window tracker writing into the given store.
func New(p platform.Platform, store *logstore.Store, pollInterval time.Duration, logger *zap.Logger) *WindowTracker {
	return &WindowTracker{
		platform:     p,
		store:        store,
		pollInterval: pollInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start begins polling.
func (wt *WindowTracker) Start() {
	wt.wg.Add(1)
	go wt.pollLoop()

	wt.logger.Info("Window tracker started",
		zap.Duration("poll_interval", wt.pollInterval),
	)
}

// Stop halts polling and waits for the poll goroutine to exit.
func (wt *WindowTracker) Stop() {
	wt.stopOnce.Do(func() {
		close(wt.stopChan)
	})
	wt.wg.Wait()
	wt.logger.Info("Window tracker stopped")
}

// Current returns the last sampled process and title.
func (wt *WindowTracker) Current() (process, title string) {
	wt.mu.RLock()
	defer wt.mu.RUnlock()
	return wt.lastProcess, wt.lastTitle
}

func (wt *WindowTracker) pollLoop() {
	defer wt.wg.Done()

	ticker := time.NewTicker(wt.pollInterval)
	defer ticker.Stop()

	// Initial sample so the log opens with the current foreground state.
	wt.sample()

	for {
		select {
		case <-ticker.C:
			wt.sample()
		case <-wt.stopChan:
			return
		}
	}
}

// sample reads the foreground window and records it if it changed. A missing
// foreground window maps to the desktop sentinel and is compared the same
// way as a real window.
func (wt *WindowTracker) sample() {
	select {
	case <-wt.stopChan:
		return
	default:
	}

	process, title := desktopProcess, desktopTitle
	window, err := wt.platform.GetActiveWindow()
	if err == nil && window != nil {
		process = window.Application
		title = window.Title
	}

	wt.mu.Lock()
	changed := !wt.seen || process != wt.lastProcess || title != wt.lastTitle
	if changed {
		wt.lastProcess = process
		wt.lastTitle = title
		wt.seen = true
	}
	wt.mu.Unlock()

	if !changed {
		return
	}

	wt.logger.Debug("Active application changed",
		zap.String("process", process),
		zap.String("title", title),
	)

	wt.store.Append(models.ActivityRecord{
		Timestamp: time.Now(),
		EventType: models.EventActiveApp,
		Details:   fmt.Sprintf("PROCESS: %s - TITLE: %s", process, title),
	})
}
