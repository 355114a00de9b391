package decoder

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	goqrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-qr-scan/src/geometry"
	"screen-qr-scan/src/screenshot"
)

// symbolAt is where the fixture QR code is drawn inside the fixture raster.
var symbolAt = image.Rect(300, 200, 556, 456)

func fixtureRaster(t *testing.T, payload string) screenshot.RasterImage {
	t.Helper()
	canvas := image.NewRGBA(image.Rect(0, 0, 800, 600))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	code, err := goqrcode.New(payload, goqrcode.Medium)
	require.NoError(t, err)
	draw.Draw(canvas, symbolAt, code.Image(symbolAt.Dx()), image.Point{}, draw.Src)

	raster, err := screenshot.Encode(canvas)
	require.NoError(t, err)
	return raster
}

func rectOf(r image.Rectangle) geometry.Rect {
	return geometry.Rect{
		Left:   float64(r.Min.X),
		Top:    float64(r.Min.Y),
		Width:  float64(r.Dx()),
		Height: float64(r.Dy()),
	}
}

func TestDecodeRegionFindsSymbol(t *testing.T) {
	raster := fixtureRaster(t, "HELLO")
	res, err := New(nil).DecodeRegion(context.Background(), raster, rectOf(symbolAt))
	require.NoError(t, err)
	assert.Equal(t, Text("HELLO"), res)
}

func TestDecodeRegionWithoutSymbol(t *testing.T) {
	raster := fixtureRaster(t, "HELLO")
	res, err := New(nil).DecodeRegion(context.Background(), raster, geometry.Rect{Left: 0, Top: 0, Width: 200, Height: 150})
	require.NoError(t, err)
	assert.Equal(t, NotFound, res)
	assert.Equal(t, NotFoundMessage, res.String())
}

func TestDecodeRegionClampsPastEdges(t *testing.T) {
	raster := fixtureRaster(t, "HELLO")
	// Extends 300px past the right and bottom edges; the symbol is still fully inside.
	crop := geometry.Rect{Left: 280, Top: 180, Width: 820, Height: 720}
	res, err := New(nil).DecodeRegion(context.Background(), raster, crop)
	require.NoError(t, err)
	assert.Equal(t, Text("HELLO"), res)
}

func TestDecodeRegionPassesExactSubRegion(t *testing.T) {
	canvas := image.NewRGBA(image.Rect(0, 0, 100, 80))
	canvas.SetRGBA(30, 20, color.RGBA{R: 255, A: 255})
	raster, err := screenshot.Encode(canvas)
	require.NoError(t, err)

	var gotW, gotH int
	var first [4]uint8
	d := New(func(pixels []uint8, width, height int) (string, bool) {
		gotW, gotH = width, height
		copy(first[:], pixels[:4])
		return "", false
	})
	res, err := d.DecodeRegion(context.Background(), raster, geometry.Rect{Left: 30, Top: 20, Width: 15, Height: 12})
	require.NoError(t, err)
	assert.Equal(t, NotFound, res)
	assert.Equal(t, 15, gotW)
	assert.Equal(t, 12, gotH)
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, first)
}

func TestDecodeRegionOutsideImageSkipsDecode(t *testing.T) {
	raster := fixtureRaster(t, "HELLO")
	called := false
	d := New(func([]uint8, int, int) (string, bool) {
		called = true
		return "x", true
	})
	res, err := d.DecodeRegion(context.Background(), raster, geometry.Rect{Left: 900, Top: 700, Width: 50, Height: 50})
	require.NoError(t, err)
	assert.Equal(t, NotFound, res)
	assert.False(t, called)
}

func TestDecodeRegionCorruptRaster(t *testing.T) {
	_, err := New(nil).DecodeRegion(context.Background(), screenshot.RasterImage{Data: []byte("garbage"), Format: "png"}, geometry.Rect{Width: 10, Height: 10})
	assert.Error(t, err)
}

func TestCropPixelsClamp(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 40))
	sub := CropPixels(src, geometry.Rect{Left: 40, Top: 30, Width: 20, Height: 20})
	require.NotNil(t, sub)
	assert.Equal(t, image.Rect(0, 0, 10, 10), sub.Bounds())

	assert.Nil(t, CropPixels(src, geometry.Rect{Left: 60, Top: 0, Width: 5, Height: 5}))
}

func TestQRDecodeFuncRejectsShortBuffer(t *testing.T) {
	_, ok := NewQRDecodeFunc(false)(make([]uint8, 8), 10, 10)
	assert.False(t, ok)
}
