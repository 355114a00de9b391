package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"screen-qr-scan/src/decoder"
	"screen-qr-scan/src/logutil"
	"screen-qr-scan/src/result"
	"screen-qr-scan/src/screenshot"
	"screen-qr-scan/src/selection"
	"screen-qr-scan/src/worker"
)

var ErrSelectionCancelled = errors.New("selection cancelled")

// SelectFunc picks the region to decode from a captured image. cancelled
// reports that the user (or the caller's flags) produced no usable selection.
type SelectFunc func(ctx context.Context, img screenshot.RasterImage) (sel selection.Selection, cancelled bool, err error)

// ResultTarget receives the outcome of one session. A missing QR code is a
// result, not a failure.
type ResultTarget interface {
	OnSuccess(res decoder.Result) error
	OnFailure(err error) error
}

type Options struct {
	Deadline time.Duration
	Capturer screenshot.Capturer
	Select   SelectFunc
	// Decode defaults to the gozxing decoder.
	Decode worker.DecodeFunc
	Target ResultTarget
}

// Execute runs one capture, select, decode and deliver pass without the resident
// event loop.
func Execute(ctx context.Context, opts Options) (decoder.Result, error) {
	if opts.Capturer == nil {
		return decoder.NotFound, errors.New("Capturer is required")
	}
	if opts.Select == nil {
		return decoder.NotFound, errors.New("Select is required")
	}
	if opts.Target == nil {
		return decoder.NotFound, errors.New("Target is required")
	}

	img, err := opts.Capturer.Capture(ctx)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return decoder.NotFound, err
	}
	if img.Empty() {
		_ = opts.Target.OnFailure(screenshot.ErrEmptyCapture)
		return decoder.NotFound, screenshot.ErrEmptyCapture
	}

	sel, cancelled, err := opts.Select(ctx, img)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return decoder.NotFound, err
	}
	if cancelled {
		_ = opts.Target.OnFailure(ErrSelectionCancelled)
		return decoder.NotFound, ErrSelectionCancelled
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	decode := opts.Decode
	if decode == nil {
		decode = worker.FromDecoder(decoder.New(nil))
	}

	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	res, err := decode(jobCtx, sel)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return decoder.NotFound, err
	}
	log.Printf("session: crop %s -> %s", sel.Crop, logutil.SanitizeForLog(res.String()))

	if err := opts.Target.OnSuccess(res); err != nil {
		_ = opts.Target.OnFailure(err)
		return decoder.NotFound, err
	}
	return res, nil
}

// ClipboardTarget copies found payloads. A miss leaves the clipboard alone.
type ClipboardTarget struct {
	Clipboard result.Clipboard
}

func (t ClipboardTarget) OnSuccess(res decoder.Result) error {
	if !res.Found {
		return nil
	}
	if t.Clipboard == nil {
		return errors.New("clipboard target missing clipboard")
	}
	if err := t.Clipboard.Write(res.Text); err != nil {
		return fmt.Errorf("clipboard error: %w", err)
	}
	return nil
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

// StdoutTarget prints the result, as plain text or as one JSON object per line.
type StdoutTarget struct {
	Writer io.Writer
	JSON   bool
}

type jsonResult struct {
	Found bool   `json:"found"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (t StdoutTarget) writer() io.Writer {
	if t.Writer == nil {
		return os.Stdout
	}
	return t.Writer
}

func (t StdoutTarget) OnSuccess(res decoder.Result) error {
	if t.JSON {
		return json.NewEncoder(t.writer()).Encode(jsonResult{Found: res.Found, Text: res.Text})
	}
	_, err := fmt.Fprintln(t.writer(), res.String())
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	if !t.JSON || err == nil {
		return nil
	}
	return json.NewEncoder(t.writer()).Encode(jsonResult{Error: err.Error()})
}
