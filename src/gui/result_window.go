package gui

import (
	"net/url"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"screen-qr-scan/src/result"
)

const (
	copiedLabel    = "Copied!"
	copiedDuration = 2 * time.Second
)

// ResultWindow shows one decode result with its action buttons.
type ResultWindow struct {
	app fyne.App

	mu       sync.Mutex
	onAction func(sessionID string, a result.Action) bool
	onClosed func(sessionID string) bool
	win      fyne.Window
}

func NewResultWindow(app fyne.App) *ResultWindow {
	return &ResultWindow{app: app}
}

// OnAction sets the handler for button presses.
func (r *ResultWindow) OnAction(f func(sessionID string, a result.Action) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAction = f
}

// OnClosed sets the handler for the user closing the window.
func (r *ResultWindow) OnClosed(f func(sessionID string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClosed = f
}

func (r *ResultWindow) Show(vm result.ViewModel) error {
	fyne.DoAndWait(func() {
		r.closeWindow()

		w := r.app.NewWindow(vm.Title)
		w.SetContent(r.content(vm))
		w.SetCloseIntercept(func() {
			r.mu.Lock()
			onClosed := r.onClosed
			r.mu.Unlock()
			w.Hide()
			if onClosed != nil {
				onClosed(vm.SessionID)
			}
		})
		w.Resize(fyne.NewSize(420, 0))
		w.CenterOnScreen()

		r.mu.Lock()
		r.win = w
		r.mu.Unlock()
		w.Show()
		w.RequestFocus()
	})
	return nil
}

// Close is a no-op when nothing is shown.
func (r *ResultWindow) Close() {
	fyne.DoAndWait(r.closeWindow)
}

func (r *ResultWindow) closeWindow() {
	r.mu.Lock()
	w := r.win
	r.win = nil
	r.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

func (r *ResultWindow) content(vm result.ViewModel) fyne.CanvasObject {
	msg := widget.NewLabel(vm.Message)
	msg.Wrapping = fyne.TextWrapWord
	msg.Selectable = vm.Found
	if !vm.Found {
		msg.Importance = widget.MediumImportance
	}

	buttons := container.NewHBox()
	for _, b := range r.buttons(vm) {
		buttons.Add(b)
	}
	return container.NewVBox(msg, container.NewCenter(buttons))
}

func (r *ResultWindow) buttons(vm result.ViewModel) []*widget.Button {
	out := make([]*widget.Button, 0, len(vm.Actions))
	for _, a := range vm.Actions {
		var btn *widget.Button
		btn = widget.NewButton(a.String(), func() {
			r.mu.Lock()
			onAction := r.onAction
			r.mu.Unlock()
			if onAction != nil {
				onAction(vm.SessionID, a)
			}
			if a == result.ActionCopy {
				flashLabel(r.app, btn, copiedLabel, copiedDuration)
			}
		})
		if a == result.ActionScanAgain {
			btn.Importance = widget.HighImportance
		}
		out = append(out, btn)
	}
	return out
}

// flashLabel swaps btn's text for d, then restores it. Runs on the fyne thread.
func flashLabel(app fyne.App, btn *widget.Button, text string, d time.Duration) {
	orig := btn.Text
	if orig == text {
		return
	}
	btn.SetText(text)
	time.AfterFunc(d, func() {
		app.Driver().DoFromGoroutine(func() { btn.SetText(orig) }, false)
	})
}

// URLOpener opens links with the desktop's default handler.
type URLOpener struct {
	App fyne.App
}

func (o URLOpener) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return o.App.OpenURL(u)
}
