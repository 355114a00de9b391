package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"screen-qr-scan/src/config"
	"screen-qr-scan/src/decoder"
	"screen-qr-scan/src/geometry"
	"screen-qr-scan/src/logutil"
	"screen-qr-scan/src/runtimeinit"
	"screen-qr-scan/src/screenshot"
	"screen-qr-scan/src/selection"
	"screen-qr-scan/src/session"
	"screen-qr-scan/src/worker"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type cliOptions struct {
	filePath      string
	rect          string
	viewportWidth float64
	jsonOutput    bool
	verbose       bool
	configPath    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"qr-tool"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "qr-tool",
		Short:         "Decode a QR code from a region of an image file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to image file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.rect, "rect", "", "Selection as left,top,width,height in viewport units (default: whole image)")
	cmd.Flags().Float64Var(&opts.viewportWidth, "viewport-width", 0, "Logical width the selection was made in (default: image width)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a .env or YAML config file (highest precedence)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{ConfigPathOverride: opts.configPath},
		// Configure logging BEFORE any other operations.
		SetupLogging: func(cfg *config.Config) {
			if opts.verbose {
				logutil.SetupStderr(cfg.LogLevel)
				log.SetOutput(stderr)
				fmt.Fprintf(stderr, "[verbose] Starting QR tool\n")
			} else {
				log.SetOutput(io.Discard)
			}
		},
		SkipClipboard: true,
	})
	if err != nil {
		return err
	}

	data, err := readInput(opts.filePath, stdin)
	if err != nil {
		return err
	}
	raster, err := screenshot.FromBytes(data)
	if err != nil {
		return fmt.Errorf("input is not a supported image: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(stderr, "[verbose] Read %d bytes, %s %dx%d\n", len(data), raster.Format, raster.Width, raster.Height)
	}

	sel, err := parseSelection(opts.rect, opts.viewportWidth, raster)
	if err != nil {
		return err
	}

	var target session.ResultTarget = session.StdoutTarget{Writer: stdout}
	jt := &jsonTarget{w: stdout, source: opts.filePath, started: time.Now()}
	if opts.jsonOutput {
		target = jt
	}

	_, err = session.Execute(ctx, session.Options{
		Deadline: cfg.DecodeDeadline(),
		Capturer: screenshot.CaptureFunc(func(context.Context) (screenshot.RasterImage, error) {
			return raster, nil
		}),
		Select: func(ctx context.Context, img screenshot.RasterImage) (selection.Selection, bool, error) {
			return selectRegion(img, sel, float64(cfg.MinSelectionPx))
		},
		Decode: worker.FromDecoder(decoder.New(decoder.NewQRDecodeFunc(cfg.DecodeTryHarder))),
		Target: target,
	})
	if opts.verbose && err == nil {
		fmt.Fprintf(stderr, "[verbose] Decode finished in %v\n", time.Since(jt.started))
	}
	return err
}

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}
	if len(data) == 0 {
		return nil, errors.New("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return data, nil
}

// flagSelection is the selection given on the command line, before it is
// checked against the image.
type flagSelection struct {
	rect     geometry.Rect
	viewport geometry.Viewport
}

// parseSelection reads --rect and --viewport-width. Without --rect the whole
// image is selected; without --viewport-width the viewport is the image itself.
func parseSelection(rect string, viewportWidth float64, img screenshot.RasterImage) (flagSelection, error) {
	vp := geometry.Viewport{Width: float64(img.Width), Height: float64(img.Height)}
	if viewportWidth != 0 {
		if viewportWidth < 0 {
			return flagSelection{}, fmt.Errorf("--viewport-width must be positive: %w", geometry.ErrInvalidViewport)
		}
		vp = geometry.Viewport{
			Width:  viewportWidth,
			Height: viewportWidth * float64(img.Height) / float64(img.Width),
		}
	}

	if strings.TrimSpace(rect) == "" {
		return flagSelection{rect: geometry.Rect{Width: vp.Width, Height: vp.Height}, viewport: vp}, nil
	}

	parts := strings.Split(rect, ",")
	if len(parts) != 4 {
		return flagSelection{}, fmt.Errorf("--rect wants left,top,width,height, got %q", rect)
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return flagSelection{}, fmt.Errorf("--rect value %q: %w", p, err)
		}
		v[i] = n
	}
	// a negative extent is a drag the other way
	a := geometry.Point{X: v[0], Y: v[1]}
	b := geometry.Point{X: v[0] + v[2], Y: v[1] + v[3]}
	return flagSelection{rect: geometry.Normalize(a, b), viewport: vp}, nil
}

func selectRegion(img screenshot.RasterImage, fs flagSelection, minSel float64) (selection.Selection, bool, error) {
	if fs.rect.TooSmall(minSel) {
		log.Printf("selection %s is below %.0fpx", fs.rect, minSel)
		return selection.Selection{}, true, nil
	}
	crop, err := geometry.ToCrop(fs.rect, img.Width, fs.viewport)
	if err != nil {
		return selection.Selection{}, false, err
	}
	return selection.Selection{
		SessionID: "cli",
		Image:     img,
		Rect:      fs.rect,
		Crop:      crop,
		Viewport:  fs.viewport,
	}, false, nil
}

type QRResult struct {
	Found     bool    `json:"found"`
	Text      string  `json:"text"`
	Message   string  `json:"message"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	Error     string  `json:"error,omitempty"`
}

type jsonTarget struct {
	w       io.Writer
	source  string
	started time.Time
}

func (t *jsonTarget) OnSuccess(res decoder.Result) error {
	return t.write(QRResult{Found: res.Found, Text: res.Text, Message: res.String()})
}

func (t *jsonTarget) OnFailure(err error) error {
	if err == nil {
		return nil
	}
	return t.write(QRResult{Message: decoder.NotFoundMessage, Error: err.Error()})
}

func (t *jsonTarget) write(r QRResult) error {
	r.Source = t.source
	r.Timestamp = time.Now().UTC().Format(time.RFC3339)
	r.Duration = time.Since(t.started).Seconds()

	encoder := json.NewEncoder(t.w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "rect", "viewport-width", "json", "verbose", "config"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}
