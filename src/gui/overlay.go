package gui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	log "github.com/sirupsen/logrus"

	"screen-qr-scan/src/geometry"
	"screen-qr-scan/src/screenshot"
	"screen-qr-scan/src/selection"
)

const overlayTitle = "Screen QR Scan"

var ErrNoSink = errors.New("overlay has no event sink")

// Overlay is the full-screen selection surface. It is created hidden by Inject
// and shown for each session by Mount; input is forwarded to the event sink.
type Overlay struct {
	app  fyne.App
	post func(selection.Event) bool

	ready atomic.Bool

	mu        sync.Mutex
	win       fyne.Window
	layer     *selectionLayer
	sessionID string
}

func NewOverlay(app fyne.App) *Overlay {
	return &Overlay{app: app}
}

// OnEvent sets where pointer and close events go. Call before the first Mount.
func (o *Overlay) OnEvent(post func(selection.Event) bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.post = post
}

func (o *Overlay) emit(ev selection.Event) {
	o.mu.Lock()
	post := o.post
	o.mu.Unlock()
	if post != nil {
		post(ev)
	}
}

// Inject creates the overlay window, hidden, so Mount only has to fill it.
func (o *Overlay) Inject(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.ready.Load() {
		return nil
	}
	fyne.DoAndWait(func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.win == nil {
			o.win = o.newWindow()
		}
	})
	o.ready.Store(true)
	return nil
}

func (o *Overlay) Ready() bool { return o.ready.Load() }

// newWindow runs on the fyne thread with o.mu held.
func (o *Overlay) newWindow() fyne.Window {
	w := o.app.NewWindow(overlayTitle)
	w.SetPadded(false)
	w.SetCloseIntercept(func() {
		o.mu.Lock()
		id := o.sessionID
		o.mu.Unlock()
		if id != "" {
			o.emit(selection.CloseRequested{SessionID: id})
		}
	})
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name != fyne.KeyEscape {
			return
		}
		o.mu.Lock()
		id := o.sessionID
		o.mu.Unlock()
		if id != "" {
			o.emit(selection.CloseRequested{SessionID: id})
		}
	})
	return w
}

// Mount shows img full-bleed for sessionID, replacing whatever was shown.
func (o *Overlay) Mount(sessionID string, img screenshot.RasterImage) error {
	o.mu.Lock()
	hasSink := o.post != nil
	o.mu.Unlock()
	if !hasSink {
		return ErrNoSink
	}

	frozen, err := screenshot.Load(context.Background(), img)
	if err != nil {
		return fmt.Errorf("load frozen screen: %w", err)
	}

	fyne.DoAndWait(func() {
		o.mu.Lock()
		if o.win == nil {
			o.win = o.newWindow()
		}
		o.sessionID = sessionID
		o.layer = newSelectionLayer(sessionID, frozen, o.emit)
		w, layer := o.win, o.layer
		o.mu.Unlock()

		w.SetContent(layer)
		w.SetFullScreen(true)
		w.Show()
		w.RequestFocus()
	})
	o.ready.Store(true)
	log.Debugf("overlay: mounted session %s (%dx%d)", sessionID, img.Width, img.Height)
	return nil
}

// DrawRect updates the selection box. It does not wait for the repaint.
func (o *Overlay) DrawRect(sessionID string, r geometry.Rect) {
	fyne.Do(func() {
		o.mu.Lock()
		layer := o.layer
		o.mu.Unlock()
		if layer != nil && layer.sessionID == sessionID {
			layer.showRect(r)
		}
	})
}

// Unmount hides the overlay. The window is kept for the next session.
func (o *Overlay) Unmount() {
	fyne.DoAndWait(func() {
		o.mu.Lock()
		w := o.win
		o.layer = nil
		o.sessionID = ""
		o.mu.Unlock()
		if w != nil {
			w.SetFullScreen(false)
			w.Hide()
		}
	})
}

// Session returns the mounted session, or "".
func (o *Overlay) Session() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}
