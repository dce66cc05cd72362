// Package screenshot captures the primary display on a fixed interval and
// hands the resulting JPEG files to the uploader.
package screenshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Capturer grabs the primary display and writes it as a JPEG file.
type Capturer interface {
	CaptureJPEG(path string, quality int) error
}

// Service schedules periodic captures. A capture or upload failure is logged
// and the tick skipped; the schedule itself keeps running.
type Service struct {
	capturer Capturer
	upload   func(path string) error
	dir      string
	interval time.Duration
	quality  int
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewService creates a screenshot service writing files into dir.
func NewService(capturer Capturer, upload func(path string) error, dir string, interval time.Duration, quality int, logger *zap.Logger) *Service {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Service{
		capturer: capturer,
		upload:   upload,
		dir:      dir,
		interval: interval,
		quality:  quality,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the capture schedule. The first capture happens one full
// interval after start.
func (s *Service) Start() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("Screenshot service started",
		zap.Duration("interval", s.interval),
		zap.Int("jpeg_quality", s.quality),
	)
	return nil
}

// Stop halts the schedule and waits for an in-flight capture to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.logger.Info("Screenshot service stopped")
}

// CaptureNow performs one capture and upload outside the schedule.
func (s *Service) CaptureNow() {
	s.captureAndUpload()
}

func (s *Service) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.captureAndUpload()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) captureAndUpload() {
	name := fmt.Sprintf("screenshot_%s.jpg", time.Now().Format("20060102_150405_000"))
	path := filepath.Join(s.dir, name)

	if err := s.capturer.CaptureJPEG(path, s.quality); err != nil {
		s.logger.Warn("Screenshot capture failed", zap.Error(err))
		return
	}

	if err := s.upload(path); err != nil {
		// The uploader owns the failure policy; the file stays on disk.
		s.logger.Debug("Screenshot upload deferred",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}
