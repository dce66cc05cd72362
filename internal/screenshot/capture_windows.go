//go:build windows
// +build windows

package screenshot

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazyDLL("user32.dll")
	gdi32  = windows.NewLazyDLL("gdi32.dll")

	procGetDC                  = user32.NewProc("GetDC")
	procReleaseDC              = user32.NewProc("ReleaseDC")
	procGetSystemMetrics       = user32.NewProc("GetSystemMetrics")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
)

const (
	smCXScreen = 0
	smCYScreen = 1

	srcCopy       = 0x00CC0020
	captureBlt    = 0x40000000
	biRGB         = 0
	dibRGBColors  = 0
	bitsPerPixel  = 32
	headerPlanes  = 1
)

// bitmapInfoHeader mirrors BITMAPINFOHEADER.
type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type gdiCapturer struct{}

// NewCapturer returns a capturer that grabs the primary display through GDI.
func NewCapturer() Capturer {
	return &gdiCapturer{}
}

func (g *gdiCapturer) CaptureJPEG(path string, quality int) error {
	img, err := g.grabScreen()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create screenshot file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return nil
}

func (g *gdiCapturer) grabScreen() (*image.RGBA, error) {
	width, _, _ := procGetSystemMetrics.Call(smCXScreen)
	height, _, _ := procGetSystemMetrics.Call(smCYScreen)
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("failed to query screen dimensions")
	}
	w, h := int(width), int(height)

	screenDC, _, _ := procGetDC.Call(0)
	if screenDC == 0 {
		return nil, fmt.Errorf("failed to acquire screen device context")
	}
	defer procReleaseDC.Call(0, screenDC)

	memDC, _, _ := procCreateCompatibleDC.Call(screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("failed to create memory device context")
	}
	defer procDeleteDC.Call(memDC)

	bitmap, _, _ := procCreateCompatibleBitmap.Call(screenDC, width, height)
	if bitmap == 0 {
		return nil, fmt.Errorf("failed to create capture bitmap")
	}
	defer procDeleteObject.Call(bitmap)

	prev, _, _ := procSelectObject.Call(memDC, bitmap)
	defer procSelectObject.Call(memDC, prev)

	ret, _, _ := procBitBlt.Call(memDC, 0, 0, width, height, screenDC, 0, 0, srcCopy|captureBlt)
	if ret == 0 {
		return nil, fmt.Errorf("screen blit failed")
	}

	// Negative height requests a top-down DIB so rows come out in image order.
	header := bitmapInfoHeader{
		Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:       int32(w),
		Height:      -int32(h),
		Planes:      headerPlanes,
		BitCount:    bitsPerPixel,
		Compression: biRGB,
	}

	buf := make([]byte, w*h*4)
	ret, _, _ = procGetDIBits.Call(
		memDC,
		bitmap,
		0,
		height,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&header)),
		dibRGBColors,
	)
	if ret == 0 {
		return nil, fmt.Errorf("failed to read capture bitmap")
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	// GetDIBits returns BGRA; swap to RGBA and force alpha opaque.
	for i := 0; i+3 < len(buf); i += 4 {
		img.Pix[i] = buf[i+2]
		img.Pix[i+1] = buf[i+1]
		img.Pix[i+2] = buf[i]
		img.Pix[i+3] = 0xFF
	}
	return img, nil
}
