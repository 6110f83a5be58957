// Package tray provides the system tray menu for the sign recognizer.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/Zeenjinn/sign-language-translation/internal/notify"
)

const (
	titleRunning = "● Capturing"
	titleStopped = "○ Stopped"
	lastNone     = "Last: none"
)

// Tray represents the system tray application. It implements notify.Sink so
// the last result shows up in the menu.
type Tray struct {
	onToggle func(running bool) bool
	onOpen   func()
	onQuit   func()
	running  bool
	last     string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a new Tray with capture shown as stopped.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback run when capture is toggled. It receives the
// requested state and returns the state actually reached.
func (t *Tray) OnToggle(fn func(running bool) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback run when "Open UI" is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and unblocks Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("SLT")
	systray.SetTooltip("Sign language recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.running), "Start or stop camera capture")
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem(lastTitle(t.last), "Last recognized sign")
	t.menuLast.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open UI...", "Open the web interface in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit the recognizer")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle asks for the opposite capture state.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	want := !t.running
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	got := want
	if callback != nil {
		got = callback(want)
	}
	t.SetRunning(got)
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRunning updates the capture toggle.
func (t *Tray) SetRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = running
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(running))
	}
}

// Running returns the capture state shown in the menu.
func (t *Tray) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// SetLast updates the last result line.
func (t *Tray) SetLast(display string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = display
	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(display))
	}
}

// Last returns the text of the last result line.
func (t *Tray) Last() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return lastTitle(t.last)
}

func (t *Tray) Name() string { return "tray" }

// Publish shows the event in the menu. Events that carry nothing to show are
// ignored.
func (t *Tray) Publish(ctx context.Context, ev notify.Event) error {
	if ev.Display == "" {
		return nil
	}
	t.SetLast(ev.Display)
	return nil
}

func toggleTitle(running bool) string {
	if running {
		return titleRunning
	}
	return titleStopped
}

func lastTitle(display string) string {
	if display == "" {
		return lastNone
	}
	return "Last: " + display
}
