package annotation

import (
	"fmt"
	"time"

	"github.com/bramburn/timetracker/internal/logstore"
	"github.com/bramburn/timetracker/internal/models"

	"go.uber.org/zap"
)

// Request describes the idle period a prompt is shown for.
type Request struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Reasons   []string
}

// Result is what the user entered.
type Result struct {
	Reason string
	Note   string
}

// Prompter presents an annotation request to the user. Prompt blocks until
// the user answers; ok is false when the prompt was dismissed.
type Prompter interface {
	Prompt(req Request) (res Result, ok bool)
}

// Uploader is the slice of the upload coordinator the flow needs.
type Uploader interface {
	UploadIdleAnnotation(a models.IdleAnnotation)
}

// Flow gates idle periods through the minimum-duration rule, prompts the
// user, and dispatches accepted annotations.
type Flow struct {
	minIdle  time.Duration
	prompter Prompter
	uploader Uploader
	store    *logstore.Store
	logger   *zap.Logger
}

// NewFlow creates an annotation flow. The prompter may be nil for headless
// runs; idle periods are then never annotated.
func NewFlow(minIdle time.Duration, prompter Prompter, uploader Uploader, store *logstore.Store, logger *zap.Logger) *Flow {
	if minIdle <= 0 {
		minIdle = time.Minute
	}
	return &Flow{
		minIdle:  minIdle,
		prompter: prompter,
		uploader: uploader,
		store:    store,
		logger:   logger,
	}
}

// HandleIdleEnd runs the annotation flow for one finished idle period.
// Periods shorter than the minimum and dismissed prompts leave no trace.
// The call blocks while the prompt is open, so run it off the detector's
// callback goroutine.
func (f *Flow) HandleIdleEnd(start, end time.Time, duration time.Duration) {
	if duration < f.minIdle {
		return
	}
	if f.prompter == nil {
		f.logger.Debug("No annotation prompter configured, skipping idle period",
			zap.Duration("duration", duration),
		)
		return
	}

	res, ok := f.prompter.Prompt(Request{
		StartTime: start,
		EndTime:   end,
		Duration:  duration,
		Reasons:   Reasons(),
	})
	if !ok {
		f.logger.Debug("Idle annotation dismissed",
			zap.Duration("duration", duration),
		)
		return
	}

	if err := f.Submit(start, end, duration, res.Reason, res.Note); err != nil {
		f.logger.Warn("Idle annotation rejected", zap.Error(err))
	}
}

// Submit validates and dispatches one annotation: upload plus a local
// IDLE_ANNOTATED record.
func (f *Flow) Submit(start, end time.Time, duration time.Duration, reason, note string) error {
	if err := Validate(reason); err != nil {
		return err
	}

	seconds := int(duration.Seconds())
	f.uploader.UploadIdleAnnotation(models.IdleAnnotation{
		Reason:          reason,
		Note:            note,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: seconds,
	})

	f.store.Append(models.ActivityRecord{
		Timestamp: end,
		EventType: models.EventIdleAnnotated,
		Details:   fmt.Sprintf("DURATION: %ds - REASON: %s - NOTE: %s", seconds, reason, note),
	})

	f.logger.Info("Idle period annotated",
		zap.String("reason", reason),
		zap.Int("duration_seconds", seconds),
	)
	return nil
}
