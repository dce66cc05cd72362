package screenshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

type fakeCapturer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *fakeCapturer) CaptureJPEG(path string, quality int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(path, []byte("jpeg"), 0o644)
}

type uploadRecorder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (u *uploadRecorder) upload(path string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, path)
	return u.err
}

func TestCaptureNowWritesAndUploads(t *testing.T) {
	dir := t.TempDir()
	fc := &fakeCapturer{}
	rec := &uploadRecorder{}
	s := NewService(fc, rec.upload, dir, time.Hour, 80, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop()

	s.CaptureNow()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.paths, 1)
	name := filepath.Base(rec.paths[0])
	assert.True(t, strings.HasPrefix(name, "screenshot_"), "got %q", name)
	assert.True(t, strings.HasSuffix(name, ".jpg"), "got %q", name)
	assert.Equal(t, dir, filepath.Dir(rec.paths[0]))
}

func TestCaptureFailureSkipsUpload(t *testing.T) {
	fc := &fakeCapturer{err: errors.New("no display")}
	rec := &uploadRecorder{}
	s := NewService(fc, rec.upload, t.TempDir(), time.Hour, 80, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop()

	s.CaptureNow()

	rec.mu.Lock()
	assert.Empty(t, rec.paths)
	rec.mu.Unlock()
}

func TestUploadFailureDoesNotStopSchedule(t *testing.T) {
	fc := &fakeCapturer{}
	rec := &uploadRecorder{err: errors.New("backend down")}
	s := NewService(fc, rec.upload, t.TempDir(), time.Hour, 80, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop()

	s.CaptureNow()
	s.CaptureNow()

	rec.mu.Lock()
	assert.Len(t, rec.paths, 2)
	rec.mu.Unlock()
}

func TestScheduledCapture(t *testing.T) {
	fc := &fakeCapturer{}
	rec := &uploadRecorder{}
	s := NewService(fc, rec.upload, t.TempDir(), 20*time.Millisecond, 80, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.paths) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "screenshots")
	s := NewService(&fakeCapturer{}, (&uploadRecorder{}).upload, dir, time.Hour, 80, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewService(&fakeCapturer{}, (&uploadRecorder{}).upload, t.TempDir(), time.Hour, 80, zap.NewNop())
	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
}
