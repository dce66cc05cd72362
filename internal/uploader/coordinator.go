// Package uploader moves collected telemetry from local stores to the
// backend. Activity logs ride a recurring cycle with at-most-one upload in
// flight; screenshots and idle annotations are one-shot uploads with their
// own failure policies.
package uploader

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bramburn/timetracker/internal/logstore"
	"github.com/bramburn/timetracker/internal/models"
	"github.com/bramburn/timetracker/internal/queue"

	"go.uber.org/zap"
)

// Transport is the slice of the API client the coordinator needs.
type Transport interface {
	UploadActivityLogs(entries []models.LogEntry) error
	UploadScreenshot(path, userID, sessionID string) error
	UploadIdleAnnotation(req models.IdleAnnotationRequest) error
}

// Coordinator owns the recurring activity-log upload cycle plus ad hoc
// screenshot and annotation uploads.
//
// Log delivery is at-least-once: on failure the store is left untouched and
// the whole batch is resubmitted next cycle. On success exactly the
// snapshotted records are truncated, so records appended during the network
// round-trip survive. Overlapping cycle triggers while an upload is
// outstanding are dropped, not queued.
type Coordinator struct {
	store       *logstore.Store
	transport   Transport
	screenshots *queue.ScreenshotQueue // nil disables the retry queue
	userID      string
	sessionID   string
	interval    time.Duration
	retrySweep  time.Duration
	maxRetries  int
	logger      *zap.Logger

	inFlight atomic.Bool

	onLogsUploaded       func(success bool)
	onScreenshotUploaded func(success bool, path string)
	onAnnotationUploaded func(success bool)

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Options bundles the coordinator's tunables.
type Options struct {
	Interval             time.Duration
	ScreenshotRetrySweep time.Duration
	ScreenshotMaxRetries int
}

// New creates a coordinator. The screenshot queue may be nil, in which case
// failed screenshots are simply left on disk.
func New(store *logstore.Store, transport Transport, screenshots *queue.ScreenshotQueue, userID, sessionID string, opts Options, logger *zap.Logger) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.ScreenshotRetrySweep <= 0 {
		opts.ScreenshotRetrySweep = time.Minute
	}
	if opts.ScreenshotMaxRetries <= 0 {
		opts.ScreenshotMaxRetries = 10
	}
	return &Coordinator{
		store:       store,
		transport:   transport,
		screenshots: screenshots,
		userID:      userID,
		sessionID:   sessionID,
		interval:    opts.Interval,
		retrySweep:  opts.ScreenshotRetrySweep,
		maxRetries:  opts.ScreenshotMaxRetries,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// OnLogsUploaded registers a completion callback for recurring log cycles.
// Must be called before Start.
func (c *Coordinator) OnLogsUploaded(fn func(success bool)) {
	c.onLogsUploaded = fn
}

// OnScreenshotUploaded registers a completion callback for screenshot
// uploads. Must be called before Start.
func (c *Coordinator) OnScreenshotUploaded(fn func(success bool, path string)) {
	c.onScreenshotUploaded = fn
}

// OnAnnotationUploaded registers a completion callback for annotation
// uploads. Must be called before Start.
func (c *Coordinator) OnAnnotationUploaded(fn func(success bool)) {
	c.onAnnotationUploaded = fn
}

// Start launches the recurring upload cycle and, when a queue is configured,
// the screenshot retry sweep.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go c.cycleLoop()

	if c.screenshots != nil {
		c.wg.Add(1)
		go c.retryLoop()
	}

	c.logger.Info("Upload coordinator started",
		zap.Duration("interval", c.interval),
	)
}

// Stop halts the loops and waits for in-flight work to finish.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
	c.logger.Info("Upload coordinator stopped")
}

func (c *Coordinator) cycleLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.UploadLogsNow()
		case <-c.stopChan:
			return
		}
	}
}

// UploadLogsNow runs one log upload cycle. If a cycle is already in flight
// the trigger is dropped and false is returned. An empty store performs no
// network call and reports true.
func (c *Coordinator) UploadLogsNow() bool {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.logger.Debug("Log upload already in flight, dropping trigger")
		return false
	}
	defer c.inFlight.Store(false)

	snap, err := c.store.TakeSnapshot()
	if err != nil {
		c.logger.Error("Failed to read activity log", zap.Error(err))
		return true
	}
	if len(snap.Records) == 0 {
		c.logger.Debug("No activity logs to upload")
		return true
	}

	entries := make([]models.LogEntry, 0, len(snap.Records))
	for _, record := range snap.Records {
		entries = append(entries, models.LogEntry{
			Timestamp: logstore.FormatTimestamp(record.Timestamp),
			EventType: string(record.EventType),
			Details:   record.Details,
			UserID:    c.userID,
			SessionID: c.sessionID,
		})
	}

	if err := c.transport.UploadActivityLogs(entries); err != nil {
		// Leave the store untouched; the batch is resubmitted wholesale on
		// the next cycle.
		c.logger.Warn("Activity log upload failed, batch retained",
			zap.Error(err),
			zap.Int("entry_count", len(entries)),
		)
		c.notifyLogs(false)
		return true
	}

	if err := c.store.Truncate(snap); err != nil {
		c.logger.Error("Failed to truncate uploaded batch", zap.Error(err))
	}
	c.notifyLogs(true)
	return true
}

// UploadScreenshot uploads one screenshot file. On confirmed success the
// local file is deleted. On failure the file stays on disk and, when the
// retry queue is configured, is enqueued for the background sweep.
func (c *Coordinator) UploadScreenshot(path string) error {
	if _, err := os.Stat(path); err != nil {
		c.logger.Warn("Screenshot file not readable",
			zap.String("path", path),
			zap.Error(err),
		)
		c.notifyScreenshot(false, path)
		return fmt.Errorf("screenshot not readable: %w", err)
	}

	if err := c.transport.UploadScreenshot(path, c.userID, c.sessionID); err != nil {
		if c.screenshots != nil {
			if qErr := c.screenshots.Enqueue(path, c.userID, c.sessionID); qErr != nil {
				c.logger.Error("Failed to queue screenshot for retry", zap.Error(qErr))
			}
		}
		c.notifyScreenshot(false, path)
		return err
	}

	if err := os.Remove(path); err != nil {
		c.logger.Warn("Failed to delete uploaded screenshot",
			zap.String("path", path),
			zap.Error(err),
		)
	}
	c.notifyScreenshot(true, path)
	return nil
}

// UploadIdleAnnotation submits one annotation asynchronously. It is
// fire-and-forget relative to the caller; the outcome is reported through
// the annotation callback. A failed annotation is not retried.
func (c *Coordinator) UploadIdleAnnotation(a models.IdleAnnotation) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		err := c.transport.UploadIdleAnnotation(models.IdleAnnotationRequest{
			IdleAnnotation: a,
			UserID:         c.userID,
			SessionID:      c.sessionID,
		})
		if err != nil {
			c.logger.Warn("Idle annotation upload failed",
				zap.Error(err),
				zap.String("reason", a.Reason),
			)
		}
		c.notifyAnnotation(err == nil)
	}()
}

func (c *Coordinator) retryLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.retrySweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.processRetryQueue()
		case <-c.stopChan:
			return
		}
	}
}

// processRetryQueue re-attempts queued screenshots, oldest first.
func (c *Coordinator) processRetryQueue() {
	if err := c.screenshots.Cleanup(c.maxRetries); err != nil {
		c.logger.Error("Screenshot queue cleanup failed", zap.Error(err))
	}

	pending, err := c.screenshots.Dequeue(20)
	if err != nil {
		c.logger.Error("Failed to read screenshot queue", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	c.logger.Debug("Retrying queued screenshots",
		zap.Int("count", len(pending)),
	)

	var done, failed []int64
	for _, p := range pending {
		if err := c.transport.UploadScreenshot(p.FilePath, p.UserID, p.SessionID); err != nil {
			failed = append(failed, p.ID)
			continue
		}
		if err := os.Remove(p.FilePath); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("Failed to delete uploaded screenshot",
				zap.String("path", p.FilePath),
				zap.Error(err),
			)
		}
		done = append(done, p.ID)
	}

	if err := c.screenshots.Remove(done); err != nil {
		c.logger.Error("Failed to remove uploaded screenshots from queue", zap.Error(err))
	}
	if err := c.screenshots.IncrementRetry(failed); err != nil {
		c.logger.Error("Failed to update retry counters", zap.Error(err))
	}
}

func (c *Coordinator) notifyLogs(success bool) {
	if c.onLogsUploaded != nil {
		c.onLogsUploaded(success)
	}
}

func (c *Coordinator) notifyScreenshot(success bool, path string) {
	if c.onScreenshotUploaded != nil {
		c.onScreenshotUploaded(success, path)
	}
}

func (c *Coordinator) notifyAnnotation(success bool) {
	if c.onAnnotationUploaded != nil {
		c.onAnnotationUploaded(success)
	}
}
