package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"screen-qr-scan/src/clipboard"
	"screen-qr-scan/src/config"
	"screen-qr-scan/src/decoder"
	"screen-qr-scan/src/eventloop"
	"screen-qr-scan/src/gui"
	"screen-qr-scan/src/hotkey"
	"screen-qr-scan/src/logutil"
	"screen-qr-scan/src/process"
	"screen-qr-scan/src/runtimeinit"
	"screen-qr-scan/src/screenshot"
	"screen-qr-scan/src/singleinstance"
	"screen-qr-scan/src/trigger"
	"screen-qr-scan/src/worker"
)

const appID = "screen-qr-scan"

type mainOptions struct {
	trigger    bool
	configPath string
}

type scanClient interface {
	TryScan(ctx context.Context) (bool, error)
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		showStartupError("Screen QR Scan", err.Error())
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{appID}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appID,
		Short:         "Tray resident that scans QR codes from a dragged screen region",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*opts)
		},
	}
	cmd.Flags().BoolVar(&opts.trigger, "trigger", false, "Ask the running resident to start a scan; start one if none is running")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a .env or YAML config file (highest precedence)")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to the double-dash form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"trigger", "config"} {
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

func run(opts mainOptions) error {
	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{ConfigPathOverride: opts.configPath},
		SetupLogging: func(cfg *config.Config) {
			logutil.Setup(cfg.EnableFileLogging, cfg.LogLevel)
		},
		// A delegating --trigger never touches the clipboard.
		SkipClipboard: opts.trigger,
	})
	if err != nil {
		return err
	}

	scanOnStart := false
	if opts.trigger {
		delegated := handleTriggerWithDelegation(singleinstance.NewClient(), func() {
			scanOnStart = true
		})
		if delegated {
			return nil
		}
	}
	return runResident(cfg, scanOnStart)
}

// handleTriggerWithDelegation asks a running resident to scan. When there is
// none, or it cannot be reached, fallback runs instead.
func handleTriggerWithDelegation(client scanClient, fallback func()) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	delegated, err := client.TryScan(ctx)
	if delegated && err != nil {
		// A resident answered; starting another would only fail the port pre-flight.
		log.Printf("Resident rejected scan: %v", err)
		return true
	}
	if err != nil {
		log.Printf("Delegation error: %v; starting a resident instead", err)
		fallback()
		return false
	}
	if !delegated {
		log.Printf("No resident detected, starting one")
		fallback()
		return false
	}
	log.Printf("Delegated scan to resident")
	return true
}

func runResident(cfg *config.Config, scanOnStart bool) error {
	// Ensure DPI awareness before creating any windows or capturing the screen
	enableDPIAwareness()
	logMonitorConfiguration()

	// ---------- SINGLE-INSTANCE PRE-FLIGHT ----------
	startPort, _ := singleinstance.GetPortRangeForDebug()
	addr := fmt.Sprintf("127.0.0.1:%d", startPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", startPort)
		return fmt.Errorf("one is already running on port %d", startPort)
	}
	// We claimed the port; release it so the server can re-bind.
	_ = listener.Close()
	// ------------------------------------------------

	if scanOnStart {
		if err := clipboard.Init(); err != nil {
			log.Warnf("Clipboard unavailable, Copy will fail: %v", err)
		}
	}

	a := app.NewWithID(appID)
	overlay := gui.NewOverlay(a)
	results := gui.NewResultWindow(a)

	var trig *trigger.Trigger
	var shutdown func()
	tray := gui.NewTray(a,
		func() { trig.Activate("tray") },
		func() { shutdown() },
	)

	loop := eventloop.New(eventloop.Options{
		Surface:      overlay,
		View:         results,
		Clipboard:    clipboard.System{},
		Opener:       gui.URLOpener{App: a},
		Decode:       worker.FromDecoder(decoder.New(decoder.NewQRDecodeFunc(cfg.DecodeTryHarder))),
		MinSelection: float64(cfg.MinSelectionPx),
		Deadline:     cfg.DecodeDeadline(),
		OnBusy:       tray.SetBusy,
	})
	overlay.OnEvent(loop.Post)
	results.OnAction(loop.PostAction)
	results.OnClosed(loop.PostResultClosed)

	trig = trigger.New(trigger.Options{
		Capturer: screenshot.DisplayCapturer{Display: cfg.CaptureDisplay},
		Injector: overlay,
		Grace:    cfg.DeliveryGrace(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := process.NewManager(ctx)
	mgr.Router().SetMessageLogging(log.IsLevelEnabled(log.DebugLevel))
	if err := mgr.Register(loop); err != nil {
		return err
	}
	if err := mgr.Register(trig); err != nil {
		return err
	}
	if err := mgr.StartAll(); err != nil {
		return err
	}

	srv := singleinstance.NewServer()
	if err := srv.Start(ctx); err != nil {
		mgr.StopAll()
		return err
	}
	defer srv.Close()
	log.Printf("Resident listening on 127.0.0.1:%d", srv.Port())
	go serveDelegated(ctx, srv, trig)

	hk, err := hotkey.New(cfg.Hotkey, func() { trig.Activate("hotkey") })
	if err != nil {
		log.Warnf("Hotkey disabled: %v", err)
	} else {
		hk.Start()
	}

	// Processes are stopped off the UI thread: their teardown waits on it.
	var once sync.Once
	shutdown = func() {
		once.Do(func() {
			go func() {
				if hk != nil {
					hk.Stop()
				}
				mgr.StopAll()
				fyne.Do(a.Quit)
			}()
		})
	}

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			shutdown()
		case <-ctx.Done():
		}
	}()

	log.Printf("Screen QR Scan ready; hotkey %s", cfg.Hotkey)
	if scanOnStart {
		trig.Activate("startup")
	}

	a.Run()
	log.Printf("Resident exiting")
	return nil
}

// serveDelegated answers requests from `--trigger` invocations until ctx ends.
func serveDelegated(ctx context.Context, srv singleinstance.Server, trig *trigger.Trigger) {
	for {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		switch conn.Request().Command {
		case singleinstance.CommandScan:
			if trig.Activate("client") {
				_ = conn.RespondSuccess("")
			} else {
				_ = conn.RespondError("Busy, please retry")
			}
		default:
			_ = conn.RespondError(fmt.Sprintf("unknown command %q", conn.Request().Command))
		}
		_ = conn.Close()
	}
}
