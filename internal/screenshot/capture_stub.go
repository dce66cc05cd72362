//go:build !windows
// +build !windows

package screenshot

import "fmt"

type unsupportedCapturer struct{}

// NewCapturer returns a capturer that always fails on platforms without a
// capture implementation. The service logs and skips each tick.
func NewCapturer() Capturer {
	return &unsupportedCapturer{}
}

func (u *unsupportedCapturer) CaptureJPEG(path string, quality int) error {
	return fmt.Errorf("screen capture is not supported on this platform")
}
