package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAllDragDirections(t *testing.T) {
	want := Rect{Left: 100, Top: 50, Width: 40, Height: 30}

	tests := []struct {
		name  string
		start Point
		end   Point
	}{
		{"down-right", Point{100, 50}, Point{140, 80}},
		{"down-left", Point{140, 50}, Point{100, 80}},
		{"up-right", Point{100, 80}, Point{140, 50}},
		{"up-left", Point{140, 80}, Point{100, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.start, tt.end)
			assert.Equal(t, want, got)
			assert.GreaterOrEqual(t, got.Width, 0.0)
			assert.GreaterOrEqual(t, got.Height, 0.0)
		})
	}
}

func TestTooSmall(t *testing.T) {
	assert.True(t, Rect{Width: 9, Height: 50}.TooSmall(DefaultMinSelection))
	assert.True(t, Rect{Width: 50, Height: 9.99}.TooSmall(DefaultMinSelection))
	assert.True(t, Rect{}.TooSmall(DefaultMinSelection))
	assert.False(t, Rect{Width: 10, Height: 10}.TooSmall(DefaultMinSelection))
}

func TestToCropDoubleScale(t *testing.T) {
	sel := Rect{Left: 100, Top: 40, Width: 50, Height: 25}
	crop, err := ToCrop(sel, 2000, Viewport{Width: 1000, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, Rect{Left: 200, Top: 80, Width: 100, Height: 50}, crop)
}

func TestToCropIdentityScale(t *testing.T) {
	sel := Rect{Left: 12, Top: 34, Width: 56, Height: 78}
	crop, err := ToCrop(sel, 1000, Viewport{Width: 1000, Height: 700})
	require.NoError(t, err)
	assert.Equal(t, sel, crop)
}

func TestScaleRejectsInvalidViewport(t *testing.T) {
	_, err := Scale(1000, Viewport{Width: 0})
	assert.ErrorIs(t, err, ErrInvalidViewport)

	_, err = ToCrop(Rect{Width: 20, Height: 20}, 1000, Viewport{Width: -5})
	assert.ErrorIs(t, err, ErrInvalidViewport)
}

func TestPixelsRounds(t *testing.T) {
	r := Rect{Left: 10.4, Top: 20.6, Width: 30.2, Height: 9.8}
	assert.Equal(t, image.Rect(10, 21, 41, 30), r.Pixels())
}
