package detector

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

// transitionRecorder collects idle transitions thread-safely.
type transitionRecorder struct {
	mu     sync.Mutex
	starts []time.Duration
	ends   []time.Duration
}

func (r *transitionRecorder) onStart(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, d)
}

func (r *transitionRecorder) onEnd(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, d)
}

func (r *transitionRecorder) counts() (starts, ends int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.starts), len(r.ends)
}

// newTestDetector uses a long poll interval so only TriggerCheck drives
// state, keeping the tests deterministic.
func newTestDetector(threshold time.Duration) (*IdleDetector, *transitionRecorder) {
	d := New(threshold, time.Hour, zap.NewNop())
	rec := &transitionRecorder{}
	d.Start(rec.onStart, rec.onEnd)
	return d, rec
}

func TestNoTransitionBeforeThreshold(t *testing.T) {
	d, rec := newTestDetector(time.Hour)
	defer d.Stop()

	d.TriggerCheck()
	d.TriggerCheck()

	starts, ends := rec.counts()
	assert.Equal(t, 0, starts)
	assert.Equal(t, 0, ends)
	assert.False(t, d.IsIdle())
}

func TestIdleStartEmittedExactlyOnce(t *testing.T) {
	d, rec := newTestDetector(30 * time.Millisecond)
	defer d.Stop()

	time.Sleep(50 * time.Millisecond)
	d.TriggerCheck()
	d.TriggerCheck()
	d.TriggerCheck()

	starts, ends := rec.counts()
	require.Equal(t, 1, starts, "repeated checks while idle must not re-emit")
	assert.Equal(t, 0, ends)
	assert.True(t, d.IsIdle())

	rec.mu.Lock()
	assert.Equal(t, 30*time.Millisecond, rec.starts[0])
	rec.mu.Unlock()
}

func TestRecordActivityClosesIdleImmediately(t *testing.T) {
	d, rec := newTestDetector(30 * time.Millisecond)
	defer d.Stop()

	time.Sleep(50 * time.Millisecond)
	d.TriggerCheck()
	require.True(t, d.IsIdle())

	d.RecordActivity()

	starts, ends := rec.counts()
	assert.Equal(t, 1, starts)
	require.Equal(t, 1, ends, "activity while idle must emit exactly one idle-end")
	assert.False(t, d.IsIdle())

	// The interval opened at lastActivity + threshold, so the reported
	// duration is elapsed minus threshold, always positive here.
	rec.mu.Lock()
	assert.Greater(t, rec.ends[0], time.Duration(0))
	rec.mu.Unlock()
}

func TestRecordActivityWhileActiveEmitsNothing(t *testing.T) {
	d, rec := newTestDetector(time.Hour)
	defer d.Stop()

	d.RecordActivity()
	d.RecordActivity()

	starts, ends := rec.counts()
	assert.Equal(t, 0, starts)
	assert.Equal(t, 0, ends)
}

func TestIdleRestartsAfterActivity(t *testing.T) {
	d, rec := newTestDetector(20 * time.Millisecond)
	defer d.Stop()

	time.Sleep(40 * time.Millisecond)
	d.TriggerCheck()
	d.RecordActivity()

	time.Sleep(40 * time.Millisecond)
	d.TriggerCheck()

	starts, ends := rec.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, ends)
	assert.True(t, d.IsIdle())
}

func TestStopWhileIdleEmitsSyntheticEnd(t *testing.T) {
	d, rec := newTestDetector(20 * time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	d.TriggerCheck()
	require.True(t, d.IsIdle())

	d.Stop()

	starts, ends := rec.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, ends, "stop must close the open interval")
	assert.False(t, d.IsIdle())
	assert.False(t, d.IsRunning())
}

func TestStopWhileActiveEmitsNothing(t *testing.T) {
	d, rec := newTestDetector(time.Hour)

	d.Stop()

	starts, ends := rec.counts()
	assert.Equal(t, 0, starts)
	assert.Equal(t, 0, ends)
}

func TestStopIsIdempotent(t *testing.T) {
	d, rec := newTestDetector(20 * time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	d.TriggerCheck()

	d.Stop()
	d.Stop()

	_, ends := rec.counts()
	assert.Equal(t, 1, ends, "second stop must not emit another idle-end")
}

func TestStartIsIdempotent(t *testing.T) {
	d := New(time.Hour, time.Hour, zap.NewNop())
	d.Start(nil, nil)
	d.Start(nil, nil)
	assert.True(t, d.IsRunning())
	d.Stop()
	assert.False(t, d.IsRunning())
}

func TestChecksAreInertWhenStopped(t *testing.T) {
	d, rec := newTestDetector(10 * time.Millisecond)
	d.Stop()

	time.Sleep(30 * time.Millisecond)
	d.TriggerCheck()

	starts, _ := rec.counts()
	assert.Equal(t, 0, starts)
}

func TestSetThresholdRejectsNonPositive(t *testing.T) {
	d := New(5*time.Minute, time.Second, zap.NewNop())

	d.SetThreshold(0)
	assert.Equal(t, 5*time.Minute, d.Threshold())

	d.SetThreshold(-time.Second)
	assert.Equal(t, 5*time.Minute, d.Threshold())

	d.SetThreshold(10 * time.Minute)
	assert.Equal(t, 10*time.Minute, d.Threshold())
}

func TestDefaultsForNonPositiveConstruction(t *testing.T) {
	d := New(0, 0, zap.NewNop())
	assert.Equal(t, 5*time.Minute, d.Threshold())
}

func TestIdleDurationZeroWhenActive(t *testing.T) {
	d, _ := newTestDetector(time.Hour)
	defer d.Stop()

	assert.Equal(t, time.Duration(0), d.IdleDuration())
}

func TestIdleDurationGrowsWhileIdle(t *testing.T) {
	d, _ := newTestDetector(10 * time.Millisecond)
	defer d.Stop()

	time.Sleep(30 * time.Millisecond)
	d.TriggerCheck()
	require.True(t, d.IsIdle())

	first := d.IdleDuration()
	time.Sleep(20 * time.Millisecond)
	second := d.IdleDuration()
	assert.Greater(t, second, first)
}

func TestPollLoopDetectsIdle(t *testing.T) {
	d := New(30*time.Millisecond, 10*time.Millisecond, zap.NewNop())
	started := make(chan time.Duration, 1)
	d.Start(func(threshold time.Duration) {
		started <- threshold
	}, nil)
	defer d.Stop()

	select {
	case threshold := <-started:
		assert.Equal(t, 30*time.Millisecond, threshold)
	case <-time.After(2 * time.Second):
		t.Fatal("poll loop never detected idleness")
	}
}
