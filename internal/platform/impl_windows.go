//go:build windows
// +build windows

package platform

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/bramburn/timetracker/internal/models"

	"golang.org/x/sys/windows"
)

type windowsImpl struct {
	mouseHookProcPtr    uintptr
	keyboardHookProcPtr uintptr

	mouseHook     windows.Handle
	keyboardHook  windows.Handle
	inputCallback func(InputEvent)
	stopped       bool
	pumpThreadID  uint32
	pumpDone      chan struct{}
	mu            sync.Mutex
}

var (
	user32   = windows.NewLazyDLL("user32.dll")
	kernel32 = windows.NewLazyDLL("kernel32.dll")
	psapi    = windows.NewLazyDLL("psapi.dll")

	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLength      = user32.NewProc("GetWindowTextLengthW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procSetWindowsHookEx         = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx      = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx           = user32.NewProc("CallNextHookEx")
	procGetMessage               = user32.NewProc("GetMessageW")
	procTranslateMessage         = user32.NewProc("TranslateMessage")
	procDispatchMessage          = user32.NewProc("DispatchMessageW")
	procPostThreadMessage        = user32.NewProc("PostThreadMessageW")

	procGetModuleFileNameEx = psapi.NewProc("GetModuleFileNameExW")
	procOpenProcess         = kernel32.NewProc("OpenProcess")
	procCloseHandle         = kernel32.NewProc("CloseHandle")
	procGetCurrentThreadId  = kernel32.NewProc("GetCurrentThreadId")
)

const (
	WH_MOUSE_LL    = 14
	WH_KEYBOARD_LL = 13

	WM_KEYDOWN    = 0x0100
	WM_KEYUP      = 0x0101
	WM_SYSKEYDOWN = 0x0104
	WM_SYSKEYUP   = 0x0105

	WM_MOUSEMOVE   = 0x0200
	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MOUSEWHEEL  = 0x020A

	WM_QUIT = 0x0012

	PROCESS_QUERY_INFORMATION = 0x0400
	PROCESS_VM_READ           = 0x0010
)

// kbdllHookStruct mirrors KBDLLHOOKSTRUCT.
type kbdllHookStruct struct {
	VkCode    uint32
	ScanCode  uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// msllHookStruct mirrors MSLLHOOKSTRUCT.
type msllHookStruct struct {
	Pt        struct{ X, Y int32 }
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// msg mirrors MSG.
type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

func newWindowsPlatform() (Platform, error) {
	p := &windowsImpl{}
	// NewCallback allocations are never released, so bind the hook
	// procedures once per instance rather than per capture start.
	p.mouseHookProcPtr = syscall.NewCallback(p.mouseHookProc)
	p.keyboardHookProcPtr = syscall.NewCallback(p.keyboardHookProc)
	return p, nil
}

func (p *windowsImpl) GetActiveWindow() (*WindowInfo, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return nil, fmt.Errorf("failed to get foreground window")
	}

	// Get window title
	length, _, _ := procGetWindowTextLength.Call(hwnd)
	var title string
	if length > 0 {
		length++ // Include null terminator
		buf := make([]uint16, length)
		procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(length))
		title = windows.UTF16ToString(buf)
	}

	// Get process ID
	var processID uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&processID)))

	processPath := p.getProcessPath(int(processID))
	application := p.getApplicationName(processPath)

	return &WindowInfo{
		Title:       title,
		Application: application,
		ProcessID:   int(processID),
		ProcessPath: processPath,
		Timestamp:   time.Now(),
	}, nil
}

func (p *windowsImpl) getProcessPath(processID int) string {
	if processID == 0 {
		return ""
	}

	handle, _, _ := procOpenProcess.Call(
		PROCESS_QUERY_INFORMATION|PROCESS_VM_READ,
		0,
		uintptr(processID),
	)
	if handle == 0 {
		return ""
	}
	defer procCloseHandle.Call(handle)

	buf := make([]uint16, 260)
	ret, _, _ := procGetModuleFileNameEx.Call(
		handle,
		0,
		uintptr(unsafe.Pointer(&buf[0])),
		260,
	)
	if ret == 0 {
		return ""
	}

	return windows.UTF16ToString(buf)
}

func (p *windowsImpl) getApplicationName(processPath string) string {
	if processPath == "" {
		return ""
	}

	parts := strings.Split(processPath, "\\")
	if len(parts) > 0 {
		exeName := parts[len(parts)-1]
		if strings.HasSuffix(exeName, ".exe") {
			exeName = exeName[:len(exeName)-4]
		}
		return exeName
	}
	return ""
}

// StartInputCapture registers low-level keyboard and mouse hooks. The hook
// procedures are bound to this instance (no package-level singleton), so
// callbacks dereference the registering platform object. Hooks are installed
// from a dedicated pump goroutine because they only deliver events while the
// installing thread services its message queue.
func (p *windowsImpl) StartInputCapture(callback func(InputEvent)) error {
	p.mu.Lock()
	if p.pumpDone != nil {
		p.mu.Unlock()
		return fmt.Errorf("input capture already running")
	}
	p.inputCallback = callback
	p.stopped = false
	done := make(chan struct{})
	p.pumpDone = done
	p.mu.Unlock()

	ready := make(chan error, 1)
	go p.runHookPump(ready, done)

	if err := <-ready; err != nil {
		p.mu.Lock()
		p.inputCallback = nil
		p.pumpDone = nil
		p.mu.Unlock()
		return err
	}
	return nil
}

// runHookPump installs the hooks and pumps messages until WM_QUIT. Both
// steps must happen on the same OS thread, so the goroutine is pinned.
func (p *windowsImpl) runHookPump(ready chan<- error, done chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	threadID, _, _ := procGetCurrentThreadId.Call()

	mouseHook, _, _ := procSetWindowsHookEx.Call(WH_MOUSE_LL, p.mouseHookProcPtr, 0, 0)
	if mouseHook == 0 {
		ready <- fmt.Errorf("failed to set mouse hook")
		return
	}

	keyboardHook, _, _ := procSetWindowsHookEx.Call(WH_KEYBOARD_LL, p.keyboardHookProcPtr, 0, 0)
	if keyboardHook == 0 {
		procUnhookWindowsHookEx.Call(mouseHook)
		ready <- fmt.Errorf("failed to set keyboard hook")
		return
	}

	p.mu.Lock()
	p.mouseHook = windows.Handle(mouseHook)
	p.keyboardHook = windows.Handle(keyboardHook)
	p.pumpThreadID = uint32(threadID)
	p.mu.Unlock()

	ready <- nil

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		// GetMessage returns 0 on WM_QUIT and -1 on error
		if ret == 0 || int32(ret) == -1 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}

	p.mu.Lock()
	if p.mouseHook != 0 {
		procUnhookWindowsHookEx.Call(uintptr(p.mouseHook))
		p.mouseHook = 0
	}
	if p.keyboardHook != 0 {
		procUnhookWindowsHookEx.Call(uintptr(p.keyboardHook))
		p.keyboardHook = 0
	}
	p.pumpThreadID = 0
	p.mu.Unlock()
}

func (p *windowsImpl) StopInputCapture() error {
	p.mu.Lock()
	p.stopped = true
	p.inputCallback = nil
	threadID := p.pumpThreadID
	done := p.pumpDone
	p.pumpDone = nil
	p.mu.Unlock()

	if done == nil {
		return nil
	}

	// Ask the pump thread to exit; it unhooks before returning. Unhooking
	// from the installing thread matters for clean process exit.
	if threadID != 0 {
		procPostThreadMessage.Call(uintptr(threadID), WM_QUIT, 0, 0)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		return fmt.Errorf("hook pump did not exit in time")
	}
	return nil
}

func (p *windowsImpl) mouseHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	p.mu.Lock()
	stopped := p.stopped
	callback := p.inputCallback
	p.mu.Unlock()

	if nCode >= 0 && !stopped && callback != nil {
		var eventType models.EventType
		switch wParam {
		case WM_LBUTTONDOWN:
			eventType = models.EventMouseLeftDown
		case WM_LBUTTONUP:
			eventType = models.EventMouseLeftUp
		case WM_RBUTTONDOWN:
			eventType = models.EventMouseRightDown
		case WM_RBUTTONUP:
			eventType = models.EventMouseRightUp
		case WM_MOUSEMOVE:
			eventType = models.EventMouseMove
		case WM_MOUSEWHEEL:
			eventType = models.EventMouseWheel
		default:
			eventType = models.EventMouseOther
		}

		info := (*msllHookStruct)(unsafe.Pointer(lParam))
		callback(InputEvent{
			Type:      eventType,
			Details:   fmt.Sprintf("X: %d, Y: %d", info.Pt.X, info.Pt.Y),
			Timestamp: time.Now(),
		})
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (p *windowsImpl) keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	p.mu.Lock()
	stopped := p.stopped
	callback := p.inputCallback
	p.mu.Unlock()

	if nCode >= 0 && !stopped && callback != nil {
		var eventType models.EventType
		switch wParam {
		case WM_KEYDOWN:
			eventType = models.EventKeyDown
		case WM_KEYUP:
			eventType = models.EventKeyUp
		case WM_SYSKEYDOWN:
			eventType = models.EventSysKeyDown
		case WM_SYSKEYUP:
			eventType = models.EventSysKeyUp
		}

		if eventType != "" {
			info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			callback(InputEvent{
				Type:      eventType,
				Details:   fmt.Sprintf("VK Code: %d", info.VkCode),
				Timestamp: time.Now(),
			})
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (p *windowsImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	return &SystemInfo{
		OS:        "windows",
		OSVersion: runtime.GOOS,
		Arch:      runtime.GOARCH,
		Hostname:  hostname,
	}, nil
}
