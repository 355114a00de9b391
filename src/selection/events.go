package selection

import "screen-qr-scan/src/geometry"

// Event is an input for Controller.Dispatch.
type Event interface {
	session() string
}

// PointerDown starts a drag. OnClose is set when the press landed on the close control.
type PointerDown struct {
	SessionID string
	Pos       geometry.Point
	OnClose   bool
}

type PointerMove struct {
	SessionID string
	Pos       geometry.Point
}

// PointerUp ends a drag. Viewport is the logical viewport size at release time.
type PointerUp struct {
	SessionID string
	Pos       geometry.Point
	Viewport  geometry.Viewport
}

type CloseRequested struct {
	SessionID string
}

func (e PointerDown) session() string    { return e.SessionID }
func (e PointerMove) session() string    { return e.SessionID }
func (e PointerUp) session() string      { return e.SessionID }
func (e CloseRequested) session() string { return e.SessionID }
