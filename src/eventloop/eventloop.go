package eventloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"screen-qr-scan/src/decoder"
	"screen-qr-scan/src/messages"
	"screen-qr-scan/src/result"
	"screen-qr-scan/src/router"
	"screen-qr-scan/src/selection"
	"screen-qr-scan/src/worker"
)

const DefaultDeadline = 5 * time.Second

// Loop is the single-threaded page coordinator. It owns the selection
// controller, the result presenter and the decode pool; GUI callbacks only post
// into it.
type Loop struct {
	ctrl      *selection.Controller
	presenter *result.Presenter
	pool      *worker.Pool
	deadline  time.Duration
	onBusy    func(bool)

	events  chan selection.Event
	actions chan actionRequest
	results chan decodeOutcome

	// loop goroutine only
	ctx       context.Context
	busy      bool
	pending   string
	cancelJob context.CancelFunc

	mu      sync.Mutex
	router  *router.Router
	inbox   <-chan messages.MessageEnvelope
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	running atomic.Bool
}

type Options struct {
	Surface   selection.Surface
	View      result.View
	Clipboard result.Clipboard
	Opener    result.URLOpener
	// Decode defaults to the gozxing decoder.
	Decode       worker.DecodeFunc
	Workers      int
	MinSelection float64
	// Deadline bounds one decode. Defaults to DefaultDeadline.
	Deadline time.Duration
	// OnBusy is told when a decode starts and ends, e.g. for the tray tooltip.
	OnBusy func(busy bool)
}

type actionRequest struct {
	sessionID string
	action    result.Action
	dismiss   bool
}

type decodeOutcome struct {
	sessionID string
	res       decoder.Result
	err       error
	cancel    context.CancelFunc
}

// New creates the page loop. It does nothing until Start.
func New(opts Options) *Loop {
	decode := opts.Decode
	if decode == nil {
		decode = worker.FromDecoder(decoder.New(nil))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}

	l := &Loop{
		pool:     worker.New(workers, decode),
		deadline: deadline,
		onBusy:   opts.OnBusy,
		events:   make(chan selection.Event, 256),
		actions:  make(chan actionRequest, 4),
		results:  make(chan decodeOutcome, 1),
		stopped:  make(chan struct{}),
	}
	l.ctrl = selection.New(selection.Options{
		Surface:      opts.Surface,
		MinSelection: opts.MinSelection,
		OnSelect:     l.submit,
	})
	l.presenter = result.NewPresenter(result.Options{
		View:      opts.View,
		Clipboard: opts.Clipboard,
		Opener:    opts.Opener,
		Rescan:    l.requestRescan,
	})
	return l
}

func (l *Loop) Name() string { return messages.ProcessPage }

func (l *Loop) IsRunning() bool { return l.running.Load() }

// Post queues a pointer or close event in arrival order. It never blocks.
func (l *Loop) Post(ev selection.Event) bool {
	select {
	case l.events <- ev:
		return true
	default:
		log.Warnf("eventloop: event queue full, dropping %T", ev)
		return false
	}
}

// PostAction queues an action chosen on the result view of sessionID.
func (l *Loop) PostAction(sessionID string, a result.Action) bool {
	return l.postAction(actionRequest{sessionID: sessionID, action: a})
}

// PostResultClosed reports that the user closed the result view of sessionID.
func (l *Loop) PostResultClosed(sessionID string) bool {
	return l.postAction(actionRequest{sessionID: sessionID, dismiss: true})
}

func (l *Loop) postAction(req actionRequest) bool {
	select {
	case l.actions <- req:
		return true
	default:
		log.Debugf("eventloop: action queue full, dropping %s", req.action)
		return false
	}
}

// Start registers the page inbox and runs the loop in the background.
func (l *Loop) Start(ctx context.Context, r *router.Router) error {
	inbox, err := r.RegisterProcess(l.Name(), 8)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	l.router = r
	l.inbox = inbox
	l.cancel = cancel
	l.done = make(chan struct{})
	l.mu.Unlock()

	l.running.Store(true)
	go l.run(ctx)
	return nil
}

func (l *Loop) Stop() error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (l *Loop) run(ctx context.Context) {
	l.ctx = ctx
	defer func() {
		l.shutdown()
		l.running.Store(false)
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-l.inbox:
			if !ok {
				return
			}
			switch m := env.Message.(type) {
			case messages.StartSelection:
				l.handleStart(m)
			case messages.DIENOW:
				log.Printf("eventloop: DIENOW from %s", env.From)
				return
			default:
				log.Debugf("eventloop: ignoring %s from %s", env.Message.Type(), env.From)
			}
		case ev := <-l.events:
			l.handleEvent(ev)
		case req := <-l.actions:
			l.handleAction(req)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) shutdown() {
	close(l.stopped)
	l.abandonJob()
	l.ctrl.Close()
	l.presenter.Dismiss()
	l.pool.Close()
}

func (l *Loop) setBusy(b bool) {
	if l.busy == b {
		return
	}
	l.busy = b
	if l.onBusy != nil {
		l.onBusy(b)
	}
}

// handleStart begins a new session. Whatever the previous session left behind
// (overlay, result view, in-flight decode) is discarded first.
func (l *Loop) handleStart(m messages.StartSelection) {
	log.Printf("handleStart: session %s, image %dx%d", m.SessionID, m.Image.Width, m.Image.Height)
	l.abandonJob()
	l.presenter.Dismiss()
	if err := l.ctrl.Start(m.SessionID, m.Image); err != nil {
		log.Warnf("handleStart: %v", err)
	}
}

func (l *Loop) handleEvent(ev selection.Event) {
	switch out := l.ctrl.Dispatch(ev); out {
	case selection.OutcomeCancelled, selection.OutcomeClosed:
		log.Debugf("handleEvent: %T -> %s", ev, out)
	}
}

// submit runs on the loop goroutine, from inside Dispatch.
func (l *Loop) submit(sel selection.Selection) {
	log.Printf("submit: session %s selection %s crop %s", sel.SessionID, sel.Rect, sel.Crop)
	jobCtx, cancel := context.WithTimeout(l.ctx, l.deadline)
	l.pending = sel.SessionID
	l.cancelJob = cancel
	l.setBusy(true)

	submitted := l.pool.Submit(jobCtx, sel, func(res decoder.Result, err error) {
		select {
		case l.results <- decodeOutcome{sessionID: sel.SessionID, res: res, err: err, cancel: cancel}:
		case <-l.stopped:
			cancel()
		}
	})
	if !submitted {
		log.Warnf("submit: decoder busy, session %s not decoded", sel.SessionID)
		l.abandonJob()
		l.present(sel.SessionID, decoder.NotFound)
	}
}

func (l *Loop) abandonJob() {
	if l.cancelJob != nil {
		l.cancelJob()
		l.cancelJob = nil
	}
	l.pending = ""
	l.setBusy(false)
}

func (l *Loop) handleResult(o decodeOutcome) {
	o.cancel()
	if o.sessionID != l.pending {
		log.Debugf("handleResult: dropping result of stale session %s", o.sessionID)
		return
	}
	l.cancelJob = nil
	l.pending = ""
	l.setBusy(false)

	res := o.res
	if o.err != nil {
		log.Warnf("handleResult: session %s decode error: %v", o.sessionID, o.err)
		res = decoder.NotFound
	}
	l.present(o.sessionID, res)
}

func (l *Loop) present(sessionID string, res decoder.Result) {
	if err := l.presenter.Present(sessionID, res); err != nil {
		log.Warnf("present: session %s: %v", sessionID, err)
	}
}

func (l *Loop) handleAction(req actionRequest) {
	if req.dismiss {
		if vm, ok := l.presenter.Current(); ok && vm.SessionID == req.sessionID {
			l.presenter.Dismiss()
		}
		return
	}
	if err := l.presenter.Activate(req.sessionID, req.action); err != nil {
		log.Warnf("handleAction: %s on session %s: %v", req.action, req.sessionID, err)
	}
}

// requestRescan asks the trigger for a fresh capture and session.
func (l *Loop) requestRescan(fromSession string) error {
	l.mu.Lock()
	r := l.router
	l.mu.Unlock()
	return r.SendTo(l.Name(), messages.ProcessTrigger, messages.RequestNewCapture{SessionID: fromSession})
}
