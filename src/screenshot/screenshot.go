package screenshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/disintegration/imaging"
	"github.com/kbinani/screenshot"
	log "github.com/sirupsen/logrus"

	// Extra raster formats accepted by Load.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrNoDisplay    = errors.New("no active displays found")
	ErrEmptyCapture = errors.New("capture returned no image data")
)

// RasterImage is an encoded still of the viewport together with its
// intrinsic pixel size. It is never mutated after capture.
type RasterImage struct {
	Data       []byte
	Format     string
	Width      int
	Height     int
	CapturedAt time.Time
}

func (r RasterImage) Empty() bool { return len(r.Data) == 0 }

// Capturer produces a fresh RasterImage of the visible viewport on every call.
type Capturer interface {
	Capture(ctx context.Context) (RasterImage, error)
}

// CaptureFunc adapts a function to Capturer.
type CaptureFunc func(ctx context.Context) (RasterImage, error)

func (f CaptureFunc) Capture(ctx context.Context) (RasterImage, error) { return f(ctx) }

// DisplayCapturer captures one physical display.
type DisplayCapturer struct {
	Display int
}

func (d DisplayCapturer) Capture(ctx context.Context) (RasterImage, error) {
	if err := ctx.Err(); err != nil {
		return RasterImage{}, err
	}
	bounds, err := GetDisplayBounds(d.Display)
	if err != nil {
		return RasterImage{}, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return RasterImage{}, fmt.Errorf("failed to capture display %d: %w", d.Display, err)
	}
	log.Printf("Captured display %d: %dx%d", d.Display, img.Bounds().Dx(), img.Bounds().Dy())
	return Encode(img)
}

// Encode stores img as a PNG RasterImage.
func Encode(img image.Image) (RasterImage, error) {
	if img == nil {
		return RasterImage{}, ErrEmptyCapture
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return RasterImage{}, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	b := img.Bounds()
	return RasterImage{
		Data:       buf.Bytes(),
		Format:     "png",
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: time.Now(),
	}, nil
}

// FromBytes wraps already-encoded image data, reading only its header for the size.
func FromBytes(data []byte) (RasterImage, error) {
	if len(data) == 0 {
		return RasterImage{}, ErrEmptyCapture
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return RasterImage{}, fmt.Errorf("unrecognized image data: %w", err)
	}
	return RasterImage{
		Data:       data,
		Format:     format,
		Width:      cfg.Width,
		Height:     cfg.Height,
		CapturedAt: time.Now(),
	}, nil
}

// Load decodes the raster into a drawable image. The decode runs off the
// caller's goroutine so that ctx cancellation returns promptly.
func Load(ctx context.Context, r RasterImage) (image.Image, error) {
	if r.Empty() {
		return nil, ErrEmptyCapture
	}
	type loaded struct {
		img image.Image
		err error
	}
	ch := make(chan loaded, 1)
	go func() {
		img, err := imaging.Decode(bytes.NewReader(r.Data), imaging.AutoOrientation(true))
		ch <- loaded{img: img, err: err}
	}()
	select {
	case l := <-ch:
		if l.err != nil {
			return nil, fmt.Errorf("failed to decode %s raster: %w", r.Format, l.err)
		}
		return l.img, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetDisplayBounds returns the bounds of the given display.
func GetDisplayBounds(display int) (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, ErrNoDisplay
	}
	if display < 0 || display >= n {
		return image.Rectangle{}, fmt.Errorf("display %d out of range (have %d)", display, n)
	}
	return screenshot.GetDisplayBounds(display), nil
}
