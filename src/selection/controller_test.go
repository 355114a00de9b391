package selection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-qr-scan/src/geometry"
	"screen-qr-scan/src/screenshot"
)

type fakeSurface struct {
	live     int
	mounts   int
	unmounts int
	rects    []geometry.Rect
	mountErr error
}

func (f *fakeSurface) Mount(sessionID string, img screenshot.RasterImage) error {
	if f.mountErr != nil {
		return f.mountErr
	}
	f.live++
	f.mounts++
	return nil
}

func (f *fakeSurface) DrawRect(sessionID string, r geometry.Rect) {
	f.rects = append(f.rects, r)
}

func (f *fakeSurface) Unmount() {
	if f.live > 0 {
		f.live--
	}
	f.unmounts++
}

var (
	testImage = screenshot.RasterImage{Data: []byte{1}, Format: "png", Width: 2000, Height: 1200}
	viewport  = geometry.Viewport{Width: 1000, Height: 600}
)

func newTestController(t *testing.T) (*Controller, *fakeSurface, *[]Selection) {
	t.Helper()
	surface := &fakeSurface{}
	var selected []Selection
	c := New(Options{
		Surface:  surface,
		OnSelect: func(s Selection) { selected = append(selected, s) },
	})
	return c, surface, &selected
}

func drag(c *Controller, id string, from, to geometry.Point) Outcome {
	c.Dispatch(PointerDown{SessionID: id, Pos: from})
	c.Dispatch(PointerMove{SessionID: id, Pos: to})
	return c.Dispatch(PointerUp{SessionID: id, Pos: to, Viewport: viewport})
}

func TestStartArmsAndMountsOverlay(t *testing.T) {
	c, surface, _ := newTestController(t)
	require.NoError(t, c.Start("s1", testImage))
	assert.Equal(t, StateArmed, c.State())
	assert.Equal(t, "s1", c.SessionID())
	assert.Equal(t, 1, surface.live)
}

func TestDragTransitionsAndSelects(t *testing.T) {
	c, surface, selected := newTestController(t)
	require.NoError(t, c.Start("s1", testImage))

	assert.Equal(t, OutcomeDragging, c.Dispatch(PointerDown{SessionID: "s1", Pos: geometry.Point{X: 100, Y: 50}}))
	assert.Equal(t, StateDragging, c.State())

	assert.Equal(t, OutcomeDragging, c.Dispatch(PointerMove{SessionID: "s1", Pos: geometry.Point{X: 130, Y: 90}}))
	assert.Equal(t, geometry.Rect{Left: 100, Top: 50, Width: 30, Height: 40}, c.Rect())

	out := c.Dispatch(PointerUp{SessionID: "s1", Pos: geometry.Point{X: 150, Y: 100}, Viewport: viewport})
	assert.Equal(t, OutcomeSelected, out)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 0, surface.live)

	require.Len(t, *selected, 1)
	sel := (*selected)[0]
	assert.Equal(t, "s1", sel.SessionID)
	assert.Equal(t, geometry.Rect{Left: 100, Top: 50, Width: 50, Height: 50}, sel.Rect)
	assert.Equal(t, geometry.Rect{Left: 200, Top: 100, Width: 100, Height: 100}, sel.Crop)
	assert.Equal(t, testImage, sel.Image)
}

func TestMoveRecomputesWithoutDrift(t *testing.T) {
	c, surface, _ := newTestController(t)
	require.NoError(t, c.Start("s1", testImage))
	c.Dispatch(PointerDown{SessionID: "s1", Pos: geometry.Point{X: 200, Y: 200}})
	c.Dispatch(PointerMove{SessionID: "s1", Pos: geometry.Point{X: 300, Y: 260}})
	c.Dispatch(PointerMove{SessionID: "s1", Pos: geometry.Point{X: 150, Y: 120}})
	c.Dispatch(PointerMove{SessionID: "s1", Pos: geometry.Point{X: 220, Y: 230}})

	want := geometry.Rect{Left: 200, Top: 200, Width: 20, Height: 30}
	assert.Equal(t, want, c.Rect())
	assert.Equal(t, want, surface.rects[len(surface.rects)-1])
}

func TestSelectionThreshold(t *testing.T) {
	tests := []struct {
		name   string
		to     geometry.Point
		decode bool
	}{
		{"exactly minimum", geometry.Point{X: 110, Y: 110}, true},
		{"narrow", geometry.Point{X: 109, Y: 200}, false},
		{"short", geometry.Point{X: 200, Y: 109}, false},
		{"dead click", geometry.Point{X: 100, Y: 100}, false},
		{"large", geometry.Point{X: 400, Y: 300}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, surface, selected := newTestController(t)
			require.NoError(t, c.Start("s1", testImage))
			out := drag(c, "s1", geometry.Point{X: 100, Y: 100}, tt.to)

			assert.Equal(t, StateIdle, c.State())
			assert.Equal(t, 0, surface.live)
			if tt.decode {
				assert.Equal(t, OutcomeSelected, out)
				assert.Len(t, *selected, 1)
			} else {
				assert.Equal(t, OutcomeCancelled, out)
				assert.Empty(t, *selected)
			}
		})
	}
}

func TestMirroredDragsSelectSameRect(t *testing.T) {
	corners := [][2]geometry.Point{
		{{X: 10, Y: 20}, {X: 60, Y: 90}},
		{{X: 60, Y: 20}, {X: 10, Y: 90}},
		{{X: 10, Y: 90}, {X: 60, Y: 20}},
		{{X: 60, Y: 90}, {X: 10, Y: 20}},
	}
	for _, pair := range corners {
		c, _, selected := newTestController(t)
		require.NoError(t, c.Start("s", testImage))
		require.Equal(t, OutcomeSelected, drag(c, "s", pair[0], pair[1]))
		assert.Equal(t, geometry.Rect{Left: 10, Top: 20, Width: 50, Height: 70}, (*selected)[0].Rect)
	}
}

func TestCloseControlTearsDown(t *testing.T) {
	c, surface, selected := newTestController(t)
	require.NoError(t, c.Start("s1", testImage))

	assert.Equal(t, OutcomeIgnored, c.Dispatch(PointerDown{SessionID: "s1", OnClose: true}))
	assert.Equal(t, StateArmed, c.State())

	assert.Equal(t, OutcomeClosed, c.Dispatch(CloseRequested{SessionID: "s1"}))
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 0, surface.live)
	assert.Empty(t, *selected)
}

func TestCloseWhileDragging(t *testing.T) {
	c, surface, selected := newTestController(t)
	require.NoError(t, c.Start("s1", testImage))
	c.Dispatch(PointerDown{SessionID: "s1", Pos: geometry.Point{X: 1, Y: 1}})
	c.Dispatch(PointerMove{SessionID: "s1", Pos: geometry.Point{X: 100, Y: 100}})

	assert.Equal(t, OutcomeClosed, c.Dispatch(CloseRequested{SessionID: "s1"}))
	assert.Equal(t, 0, surface.live)

	// A stale release after the close must not decode.
	assert.Equal(t, OutcomeIgnored, c.Dispatch(PointerUp{SessionID: "s1", Pos: geometry.Point{X: 100, Y: 100}, Viewport: viewport}))
	assert.Empty(t, *selected)
}

func TestCloseIsIdempotent(t *testing.T) {
	c, surface, _ := newTestController(t)
	assert.NotPanics(t, func() {
		c.Close()
		c.Close()
	})
	assert.Equal(t, 0, surface.unmounts)

	require.NoError(t, c.Start("s1", testImage))
	c.Close()
	c.Close()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "", c.SessionID())
	assert.Equal(t, 0, surface.live)
	assert.Equal(t, 1, surface.unmounts)
}

func TestReentrantStartKeepsSingleOverlay(t *testing.T) {
	c, surface, selected := newTestController(t)
	require.NoError(t, c.Start("s1", testImage))
	require.NoError(t, c.Start("s2", testImage))
	assert.Equal(t, 1, surface.live)
	assert.Equal(t, "s2", c.SessionID())

	c.Dispatch(PointerDown{SessionID: "s2", Pos: geometry.Point{X: 0, Y: 0}})
	require.NoError(t, c.Start("s3", testImage))
	assert.Equal(t, 1, surface.live)
	assert.Equal(t, StateArmed, c.State())
	assert.Empty(t, *selected)
}

func TestEventsForOtherSessionsAreIgnored(t *testing.T) {
	c, _, selected := newTestController(t)
	require.NoError(t, c.Start("s1", testImage))
	require.NoError(t, c.Start("s2", testImage))

	assert.Equal(t, OutcomeIgnored, drag(c, "s1", geometry.Point{X: 0, Y: 0}, geometry.Point{X: 50, Y: 50}))
	assert.Equal(t, StateArmed, c.State())
	assert.Empty(t, *selected)
}

func TestEventsWhileIdleAreIgnored(t *testing.T) {
	c, surface, _ := newTestController(t)
	assert.Equal(t, OutcomeIgnored, c.Dispatch(PointerMove{Pos: geometry.Point{X: 5, Y: 5}}))
	assert.Equal(t, OutcomeIgnored, c.Dispatch(CloseRequested{}))
	assert.Empty(t, surface.rects)
}

func TestInvalidViewportCancels(t *testing.T) {
	c, surface, selected := newTestController(t)
	require.NoError(t, c.Start("s1", testImage))
	c.Dispatch(PointerDown{SessionID: "s1", Pos: geometry.Point{X: 0, Y: 0}})
	out := c.Dispatch(PointerUp{SessionID: "s1", Pos: geometry.Point{X: 50, Y: 50}})
	assert.Equal(t, OutcomeCancelled, out)
	assert.Equal(t, 0, surface.live)
	assert.Empty(t, *selected)
}

func TestMountFailureLeavesIdle(t *testing.T) {
	c, surface, _ := newTestController(t)
	surface.mountErr = errors.New("no window")
	err := c.Start("s1", testImage)
	assert.ErrorIs(t, err, ErrMountFailed)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "", c.SessionID())
}
