// Package trigger is the capture side of the pipeline. It owns nothing but the
// capture collaborator: every start produces a fresh raster and a fresh session.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"screen-qr-scan/src/messages"
	"screen-qr-scan/src/router"
	"screen-qr-scan/src/screenshot"
)

const DefaultGrace = 100 * time.Millisecond

var ErrCaptureFailed = errors.New("screen capture failed")

// Injector makes the overlay surface available in the page context.
// Ready reports whether the surface can accept a session right now.
type Injector interface {
	Inject(ctx context.Context) error
	Ready() bool
}

type Options struct {
	Capturer screenshot.Capturer
	Injector Injector
	// Grace is the bounded wait applied when the surface is not ready after injection.
	Grace        time.Duration
	NewSessionID func() string
}

type Trigger struct {
	capturer screenshot.Capturer
	injector Injector
	grace    time.Duration
	newID    func() string

	starts  chan string
	router  *router.Router
	inbox   <-chan messages.MessageEnvelope
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

func New(opts Options) *Trigger {
	grace := opts.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	newID := opts.NewSessionID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Trigger{
		capturer: opts.Capturer,
		injector: opts.Injector,
		grace:    grace,
		newID:    newID,
		starts:   make(chan string, 4),
	}
}

func (t *Trigger) Name() string { return messages.ProcessTrigger }

func (t *Trigger) IsRunning() bool { return t.running.Load() }

// Activate posts the user start signal. It never blocks; signals arriving
// while several are already queued are dropped.
func (t *Trigger) Activate(source string) bool {
	select {
	case t.starts <- source:
		return true
	default:
		log.Debugf("trigger: start from %s dropped, queue full", source)
		return false
	}
}

// Start registers the trigger inbox and runs its loop until ctx ends, Stop, or DIENOW.
func (t *Trigger) Start(ctx context.Context, r *router.Router) error {
	inbox, err := r.RegisterProcess(t.Name(), 4)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.router = r
	t.inbox = inbox
	t.cancel = cancel
	t.done = make(chan struct{})
	t.mu.Unlock()

	t.running.Store(true)
	go t.loop(ctx)
	return nil
}

func (t *Trigger) Stop() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (t *Trigger) loop(ctx context.Context) {
	defer func() {
		t.running.Store(false)
		close(t.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case source := <-t.starts:
			t.handleStart(ctx, source)
		case env, ok := <-t.inbox:
			if !ok {
				return
			}
			switch m := env.Message.(type) {
			case messages.StartRequested:
				t.handleStart(ctx, m.Source)
			case messages.RequestNewCapture:
				t.handleStart(ctx, "rescan of "+m.SessionID)
			case messages.DIENOW:
				return
			default:
				log.Debugf("trigger: ignoring %s from %s", env.Message.Type(), env.From)
			}
		}
	}
}

func (t *Trigger) handleStart(ctx context.Context, source string) {
	id, err := t.StartSession(ctx)
	if err != nil {
		log.Warnf("trigger: no session started (%s): %v", source, err)
		return
	}
	log.Printf("trigger: session %s started (%s)", id, source)
}

// StartSession captures the screen and prepares the overlay concurrently, then
// hands the raster to the page. Capture failures start nothing and are not retried.
func (t *Trigger) StartSession(ctx context.Context) (string, error) {
	var img screenshot.RasterImage

	g, gctx := errgroup.WithContext(ctx)
	if t.injector != nil {
		g.Go(func() error { return t.injector.Inject(gctx) })
	}
	g.Go(func() error {
		r, err := t.capturer.Capture(gctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
		}
		if r.Empty() {
			return fmt.Errorf("%w: %v", ErrCaptureFailed, screenshot.ErrEmptyCapture)
		}
		img = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	if t.injector != nil && !t.injector.Ready() {
		log.Debugf("trigger: surface not ready, delivering after %v", t.grace)
		timer := time.NewTimer(t.grace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}

	id := t.newID()
	t.mu.Lock()
	r := t.router
	t.mu.Unlock()
	if r == nil {
		return "", errors.New("trigger is not started")
	}
	if err := r.SendTo(t.Name(), messages.ProcessPage, messages.StartSelection{SessionID: id, Image: img}); err != nil {
		return "", fmt.Errorf("deliver session %s: %w", id, err)
	}
	return id, nil
}
