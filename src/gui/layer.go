package gui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"screen-qr-scan/src/geometry"
	"screen-qr-scan/src/selection"
)

const instructionText = "Drag to Scan QR Code"

var (
	boxStroke = color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	boxFill   = color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0x30}
	hintColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// selectionLayer draws the frozen screen stretched over the whole canvas and
// turns mouse input into selection events. Positions are canvas units, which
// are the logical pixels of the viewport.
type selectionLayer struct {
	widget.BaseWidget

	sessionID string
	post      func(selection.Event)

	frozen   *canvas.Image
	box      *canvas.Rectangle
	hint     *canvas.Text
	closeBtn *widget.Button
	last     fyne.Position
}

func newSelectionLayer(sessionID string, frozen image.Image, post func(selection.Event)) *selectionLayer {
	l := &selectionLayer{sessionID: sessionID, post: post}

	l.frozen = canvas.NewImageFromImage(frozen)
	l.frozen.FillMode = canvas.ImageFillStretch
	l.frozen.ScaleMode = canvas.ImageScaleFastest

	l.box = canvas.NewRectangle(boxFill)
	l.box.StrokeColor = boxStroke
	l.box.StrokeWidth = 2
	l.box.Hide()

	l.hint = canvas.NewText(instructionText, hintColor)
	l.hint.TextStyle = fyne.TextStyle{Bold: true}
	l.hint.TextSize = 18

	l.closeBtn = widget.NewButton("×", func() {
		l.post(selection.CloseRequested{SessionID: l.sessionID})
	})
	l.closeBtn.Importance = widget.DangerImportance

	l.ExtendBaseWidget(l)
	return l
}

func (l *selectionLayer) CreateRenderer() fyne.WidgetRenderer {
	top := container.NewHBox(layout.NewSpacer(), l.hint, layout.NewSpacer(), l.closeBtn)
	return widget.NewSimpleRenderer(container.NewStack(
		l.frozen,
		container.NewWithoutLayout(l.box),
		container.NewBorder(container.NewPadded(top), nil, nil, nil),
	))
}

func (l *selectionLayer) viewport() geometry.Viewport {
	s := l.Size()
	return geometry.Viewport{Width: float64(s.Width), Height: float64(s.Height)}
}

func toPoint(p fyne.Position) geometry.Point {
	return geometry.Point{X: float64(p.X), Y: float64(p.Y)}
}

// onCloseControl reports whether p, relative to the layer, is over the close button.
func (l *selectionLayer) onCloseControl(p fyne.Position) bool {
	if !l.closeBtn.Visible() {
		return false
	}
	drv := fyne.CurrentApp().Driver()
	origin := drv.AbsolutePositionForObject(l)
	btn := drv.AbsolutePositionForObject(l.closeBtn).Subtract(origin)
	size := l.closeBtn.Size()
	return p.X >= btn.X && p.X < btn.X+size.Width && p.Y >= btn.Y && p.Y < btn.Y+size.Height
}

func (l *selectionLayer) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	l.last = ev.Position
	l.post(selection.PointerDown{
		SessionID: l.sessionID,
		Pos:       toPoint(ev.Position),
		OnClose:   l.onCloseControl(ev.Position),
	})
}

func (l *selectionLayer) Dragged(ev *fyne.DragEvent) {
	l.last = ev.Position
	l.post(selection.PointerMove{SessionID: l.sessionID, Pos: toPoint(ev.Position)})
}

// DragEnd carries no position; the last dragged one is the release point.
func (l *selectionLayer) DragEnd() {
	l.release(l.last)
}

func (l *selectionLayer) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	l.release(ev.Position)
}

// release may run twice for one gesture; the controller ignores the second.
func (l *selectionLayer) release(p fyne.Position) {
	l.post(selection.PointerUp{
		SessionID: l.sessionID,
		Pos:       toPoint(p),
		Viewport:  l.viewport(),
	})
}

// showRect runs on the fyne thread.
func (l *selectionLayer) showRect(r geometry.Rect) {
	l.box.Move(fyne.NewPos(float32(r.Left), float32(r.Top)))
	l.box.Resize(fyne.NewSize(float32(r.Width), float32(r.Height)))
	l.box.Show()
	l.hint.Hide()
	l.box.Refresh()
}
