// Package selection implements the drag-to-select overlay state machine.
//
// A Controller owns at most one overlay at a time. All input reaches it through
// Dispatch, which must be called from a single goroutine (the page event loop).
package selection

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"screen-qr-scan/src/geometry"
	"screen-qr-scan/src/screenshot"
)

var ErrMountFailed = errors.New("overlay mount failed")

// State is the selection session state.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Outcome describes what a dispatched event did.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeDragging
	OutcomeCancelled
	OutcomeClosed
	OutcomeSelected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDragging:
		return "dragging"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeClosed:
		return "closed"
	case OutcomeSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// Surface renders the frozen image full-bleed with a selection box and a close control.
// Unmount must be safe to call when nothing is mounted.
type Surface interface {
	Mount(sessionID string, img screenshot.RasterImage) error
	DrawRect(sessionID string, r geometry.Rect)
	Unmount()
}

// Selection is emitted once per session when a large enough rectangle is drawn.
type Selection struct {
	SessionID string
	Image     screenshot.RasterImage
	Rect      geometry.Rect
	Crop      geometry.Rect
	Viewport  geometry.Viewport
}

type Options struct {
	Surface      Surface
	MinSelection float64
	OnSelect     func(Selection)
}

type Controller struct {
	surface  Surface
	minSel   float64
	onSelect func(Selection)

	state     State
	sessionID string
	image     screenshot.RasterImage
	anchor    geometry.Point
	rect      geometry.Rect
}

func New(opts Options) *Controller {
	minSel := opts.MinSelection
	if minSel <= 0 {
		minSel = geometry.DefaultMinSelection
	}
	return &Controller{
		surface:  opts.Surface,
		minSel:   minSel,
		onSelect: opts.OnSelect,
	}
}

func (c *Controller) State() State { return c.state }

// SessionID returns the live session, or "" when idle.
func (c *Controller) SessionID() string { return c.sessionID }

// Rect returns the rectangle drawn so far in the current drag.
func (c *Controller) Rect() geometry.Rect { return c.rect }

// Start arms a new session over img. Any overlay left by a previous session is
// torn down first, so at most one overlay exists afterwards.
func (c *Controller) Start(sessionID string, img screenshot.RasterImage) error {
	if c.state != StateIdle {
		log.Printf("selection: replacing live session %s (%s) with %s", c.sessionID, c.state, sessionID)
	}
	c.teardown()

	if err := c.surface.Mount(sessionID, img); err != nil {
		c.surface.Unmount()
		return fmt.Errorf("%w: %v", ErrMountFailed, err)
	}
	c.state = StateArmed
	c.sessionID = sessionID
	c.image = img
	log.Debugf("selection: session %s armed over %dx%d raster", sessionID, img.Width, img.Height)
	return nil
}

// Close tears down the overlay without decoding. Calling it repeatedly is harmless.
func (c *Controller) Close() {
	c.teardown()
}

// Dispatch applies one input event. Events that belong to another session,
// or arrive while idle, are ignored.
func (c *Controller) Dispatch(ev Event) Outcome {
	if c.state == StateIdle || ev.session() != c.sessionID {
		return OutcomeIgnored
	}

	switch e := ev.(type) {
	case PointerDown:
		if e.OnClose || c.state != StateArmed {
			return OutcomeIgnored
		}
		c.anchor = e.Pos
		c.rect = geometry.Rect{Left: e.Pos.X, Top: e.Pos.Y}
		c.state = StateDragging
		c.surface.DrawRect(c.sessionID, c.rect)
		return OutcomeDragging

	case PointerMove:
		if c.state != StateDragging {
			return OutcomeIgnored
		}
		c.rect = geometry.Normalize(c.anchor, e.Pos)
		c.surface.DrawRect(c.sessionID, c.rect)
		return OutcomeDragging

	case PointerUp:
		if c.state != StateDragging {
			return OutcomeIgnored
		}
		return c.finish(e)

	case CloseRequested:
		log.Debugf("selection: session %s closed by user", c.sessionID)
		c.teardown()
		return OutcomeClosed
	}
	return OutcomeIgnored
}

func (c *Controller) finish(e PointerUp) Outcome {
	rect := geometry.Normalize(c.anchor, e.Pos)
	sessionID, img := c.sessionID, c.image

	if rect.TooSmall(c.minSel) {
		log.Debugf("selection: session %s discarded %s below %.0fpx", sessionID, rect, c.minSel)
		c.teardown()
		return OutcomeCancelled
	}

	crop, err := geometry.ToCrop(rect, img.Width, e.Viewport)
	if err != nil {
		log.Warnf("selection: session %s cannot map %s: %v", sessionID, rect, err)
		c.teardown()
		return OutcomeCancelled
	}

	c.teardown()
	log.Printf("selection: session %s selected %s -> crop %s", sessionID, rect, crop)
	if c.onSelect != nil {
		c.onSelect(Selection{
			SessionID: sessionID,
			Image:     img,
			Rect:      rect,
			Crop:      crop,
			Viewport:  e.Viewport,
		})
	}
	return OutcomeSelected
}

func (c *Controller) teardown() {
	if c.state != StateIdle {
		c.surface.Unmount()
	}
	c.state = StateIdle
	c.sessionID = ""
	c.image = screenshot.RasterImage{}
	c.anchor = geometry.Point{}
	c.rect = geometry.Rect{}
}
