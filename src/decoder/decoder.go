package decoder

import (
	"context"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	log "github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"

	"screen-qr-scan/src/geometry"
	"screen-qr-scan/src/logutil"
	"screen-qr-scan/src/screenshot"
)

// NotFoundMessage is shown when a region holds no readable symbol.
const NotFoundMessage = "No QR code found."

// Result is either a decoded payload or NotFound.
type Result struct {
	Found bool
	Text  string
}

// NotFound is the result of a region without a readable QR symbol.
var NotFound = Result{}

func Text(payload string) Result { return Result{Found: true, Text: payload} }

func (r Result) String() string {
	if !r.Found {
		return NotFoundMessage
	}
	return r.Text
}

// DecodeFunc decodes a QR symbol from tightly packed RGBA samples
// (4 bytes per pixel, row-major). It must not retain pixels.
type DecodeFunc func(pixels []uint8, width, height int) (string, bool)

// NewQRDecodeFunc returns a gozxing-backed DecodeFunc.
func NewQRDecodeFunc(tryHarder bool) DecodeFunc {
	return func(pixels []uint8, width, height int) (string, bool) {
		if width <= 0 || height <= 0 || len(pixels) < width*height*4 {
			return "", false
		}
		img := &image.RGBA{Pix: pixels, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
		bmp, err := gozxing.NewBinaryBitmapFromImage(img)
		if err != nil {
			return "", false
		}
		var hints map[gozxing.DecodeHintType]interface{}
		if tryHarder {
			hints = map[gozxing.DecodeHintType]interface{}{
				gozxing.DecodeHintType_TRY_HARDER: true,
			}
		}
		res, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
		if err != nil {
			return "", false
		}
		return res.GetText(), true
	}
}

type Decoder struct {
	decode DecodeFunc
}

// New returns a Decoder. A nil decode uses the gozxing reader in try-harder mode.
func New(decode DecodeFunc) *Decoder {
	if decode == nil {
		decode = NewQRDecodeFunc(true)
	}
	return &Decoder{decode: decode}
}

// DecodeRegion crops raster to crop and looks for a QR symbol in it. Only
// raster loading can fail; a region without a symbol is NotFound, not an error.
func (d *Decoder) DecodeRegion(ctx context.Context, raster screenshot.RasterImage, crop geometry.Rect) (Result, error) {
	img, err := screenshot.Load(ctx, raster)
	if err != nil {
		return NotFound, err
	}

	sub := CropPixels(img, crop)
	if sub == nil {
		log.Debugf("decoder: crop %s lies outside %dx%d raster", crop, raster.Width, raster.Height)
		return NotFound, nil
	}

	b := sub.Bounds()
	text, ok := d.decode(sub.Pix, b.Dx(), b.Dy())
	if !ok {
		log.Debugf("decoder: no symbol in %dx%d crop", b.Dx(), b.Dy())
		return NotFound, nil
	}
	log.Printf("decoder: decoded %d chars: %q", len(text), logutil.SanitizeForLog(text))
	return Text(text), nil
}

// CropPixels copies the part of crop that overlaps src into a new RGBA buffer
// whose origin is the crop's top-left corner. Requests past the image edges are
// clamped, yielding a smaller buffer. It returns nil when nothing overlaps.
func CropPixels(src image.Image, crop geometry.Rect) *image.RGBA {
	bounds := src.Bounds()
	want := crop.Pixels().Add(bounds.Min)
	r := want.Intersect(bounds)
	if r.Empty() {
		return nil
	}
	if r != want {
		log.Debugf("decoder: clamped crop %v to %v", want, r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(dst, image.Point{}, src, r, xdraw.Src, nil)
	return dst
}
