// Package ui hosts the optional system tray shell. The tray is a thin view
// over the agent: it mirrors the active/idle state and offers manual upload
// and quit actions. The agent runs identically without it.
package ui

import (
	"sync"

	"github.com/getlantern/systray"
)

// TrayApp manages the system tray interface.
type TrayApp struct {
	onUploadNow func()
	onQuit      func()

	statusItem *systray.MenuItem
	uploadItem *systray.MenuItem
	quitItem   *systray.MenuItem

	mu   sync.Mutex
	idle bool
}

// New creates a tray app. onUploadNow triggers a manual log upload; onQuit
// is invoked once when the user picks Quit, before the tray loop exits.
func New(onUploadNow, onQuit func()) *TrayApp {
	return &TrayApp{
		onUploadNow: onUploadNow,
		onQuit:      onQuit,
	}
}

// Run enters the systray main loop. It blocks until Quit is chosen or
// systray.Quit is called. Must run on the process main goroutine on macOS.
func (app *TrayApp) Run() {
	systray.Run(app.onReady, app.onExit)
}

// Quit asks the tray loop to exit.
func (app *TrayApp) Quit() {
	systray.Quit()
}

// SetIdle updates the displayed state. Safe to call from any goroutine.
func (app *TrayApp) SetIdle(idle bool) {
	app.mu.Lock()
	app.idle = idle
	item := app.statusItem
	app.mu.Unlock()

	if item == nil {
		return
	}
	if idle {
		item.SetTitle("Status: Idle")
		systray.SetTooltip("TimeTracker - Idle")
	} else {
		item.SetTitle("Status: Active")
		systray.SetTooltip("TimeTracker - Active")
	}
}

func (app *TrayApp) onReady() {
	systray.SetTitle("TimeTracker")
	systray.SetTooltip("TimeTracker - Active")

	app.mu.Lock()
	app.statusItem = systray.AddMenuItem("Status: Active", "Current tracking state")
	app.statusItem.Disable()
	systray.AddSeparator()
	app.uploadItem = systray.AddMenuItem("Upload Now", "Upload collected activity logs")
	systray.AddSeparator()
	app.quitItem = systray.AddMenuItem("Quit", "Stop tracking and exit")
	app.mu.Unlock()

	go app.handleMenuClicks()
}

func (app *TrayApp) handleMenuClicks() {
	for {
		select {
		case <-app.uploadItem.ClickedCh:
			if app.onUploadNow != nil {
				go app.onUploadNow()
			}
		case <-app.quitItem.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (app *TrayApp) onExit() {
	if app.onQuit != nil {
		app.onQuit()
	}
}
