// Package result turns decode results into a single visible result view
// with the follow-up actions that apply to it.
package result

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"screen-qr-scan/src/decoder"
	"screen-qr-scan/src/logutil"
)

const Title = "QR Code Result"

var (
	ErrNoView            = errors.New("no result view is shown for this session")
	ErrActionUnavailable = errors.New("action is not offered for this result")
)

type Action int

const (
	ActionCopy Action = iota
	ActionOpen
	ActionScanAgain
)

func (a Action) String() string {
	switch a {
	case ActionCopy:
		return "Copy"
	case ActionOpen:
		return "Open"
	case ActionScanAgain:
		return "Scan Again"
	default:
		return "Unknown"
	}
}

// ActionsFor lists the actions offered for r, in display order.
func ActionsFor(r decoder.Result) []Action {
	if !r.Found {
		return []Action{ActionScanAgain}
	}
	actions := []Action{ActionCopy}
	if LooksLikeURL(r.Text) {
		actions = append(actions, ActionOpen)
	}
	return append(actions, ActionScanAgain)
}

// LooksLikeURL reports whether s starts with an http or https scheme prefix
// and names a host.
func LooksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(s))
	return err == nil && u.Host != ""
}

// ViewModel is everything a View needs to render one result.
type ViewModel struct {
	SessionID string
	Title     string
	Message   string
	Found     bool
	Actions   []Action
}

func (vm ViewModel) Offers(a Action) bool {
	for _, have := range vm.Actions {
		if have == a {
			return true
		}
	}
	return false
}

// View shows one result at a time. Close must be safe when nothing is shown.
type View interface {
	Show(vm ViewModel) error
	Close()
}

type Clipboard interface {
	Write(text string) error
}

type URLOpener interface {
	Open(rawURL string) error
}

type Options struct {
	View      View
	Clipboard Clipboard
	Opener    URLOpener
	// Rescan asks the capture side for a brand-new session.
	Rescan func(fromSession string) error
}

// Presenter owns the result view. Like the selection controller it is driven
// from the page event loop only.
type Presenter struct {
	view      View
	clipboard Clipboard
	opener    URLOpener
	rescan    func(string) error
	current   *ViewModel
}

func NewPresenter(opts Options) *Presenter {
	return &Presenter{
		view:      opts.View,
		clipboard: opts.Clipboard,
		opener:    opts.Opener,
		rescan:    opts.Rescan,
	}
}

// Present replaces any visible result with r.
func (p *Presenter) Present(sessionID string, r decoder.Result) error {
	p.Dismiss()

	vm := ViewModel{
		SessionID: sessionID,
		Title:     Title,
		Message:   r.String(),
		Found:     r.Found,
		Actions:   ActionsFor(r),
	}
	if err := p.view.Show(vm); err != nil {
		return fmt.Errorf("show result: %w", err)
	}
	p.current = &vm
	log.Printf("result: session %s showing %q with %v", sessionID, logutil.SanitizeForLog(vm.Message), vm.Actions)
	return nil
}

// Current returns the visible view model, if any.
func (p *Presenter) Current() (ViewModel, bool) {
	if p.current == nil {
		return ViewModel{}, false
	}
	return *p.current, true
}

// Dismiss closes the visible view. Calling it with nothing shown is a no-op.
func (p *Presenter) Dismiss() {
	if p.current == nil {
		return
	}
	p.view.Close()
	p.current = nil
}

// Activate runs an action chosen on the view of sessionID.
func (p *Presenter) Activate(sessionID string, a Action) error {
	vm, ok := p.Current()
	if !ok || vm.SessionID != sessionID {
		return ErrNoView
	}
	if !vm.Offers(a) {
		return fmt.Errorf("%w: %s", ErrActionUnavailable, a)
	}

	switch a {
	case ActionCopy:
		if p.clipboard == nil {
			return errors.New("clipboard unavailable")
		}
		return p.clipboard.Write(vm.Message)
	case ActionOpen:
		if p.opener == nil {
			return errors.New("url opener unavailable")
		}
		return p.opener.Open(vm.Message)
	case ActionScanAgain:
		p.Dismiss()
		if p.rescan == nil {
			return nil
		}
		return p.rescan(sessionID)
	}
	return fmt.Errorf("%w: %s", ErrActionUnavailable, a)
}
