package result

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-qr-scan/src/decoder"
)

type fakeView struct {
	shown  []ViewModel
	live   int
	closes int
}

func (v *fakeView) Show(vm ViewModel) error {
	v.shown = append(v.shown, vm)
	v.live++
	return nil
}

func (v *fakeView) Close() {
	if v.live > 0 {
		v.live--
	}
	v.closes++
}

type fakeClipboard struct{ text string }

func (c *fakeClipboard) Write(text string) error {
	c.text = text
	return nil
}

type fakeOpener struct{ opened []string }

func (o *fakeOpener) Open(u string) error {
	o.opened = append(o.opened, u)
	return nil
}

type harness struct {
	view    *fakeView
	clip    *fakeClipboard
	opener  *fakeOpener
	rescans []string
	p       *Presenter
}

func newHarness() *harness {
	h := &harness{view: &fakeView{}, clip: &fakeClipboard{}, opener: &fakeOpener{}}
	h.p = NewPresenter(Options{
		View:      h.view,
		Clipboard: h.clip,
		Opener:    h.opener,
		Rescan: func(from string) error {
			h.rescans = append(h.rescans, from)
			return nil
		},
	})
	return h
}

func TestActionGating(t *testing.T) {
	tests := []struct {
		name string
		res  decoder.Result
		want []Action
	}{
		{"url", decoder.Text("http://example.com"), []Action{ActionCopy, ActionOpen, ActionScanAgain}},
		{"https url", decoder.Text("HTTPS://example.com/path?q=1"), []Action{ActionCopy, ActionOpen, ActionScanAgain}},
		{"plain text", decoder.Text("plain text"), []Action{ActionCopy, ActionScanAgain}},
		{"scheme without host", decoder.Text("http://"), []Action{ActionCopy, ActionScanAgain}},
		{"not found", decoder.NotFound, []Action{ActionScanAgain}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ActionsFor(tt.res))
		})
	}
}

func TestPresentReplacesPreviousView(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.p.Present("s1", decoder.Text("one")))
	require.NoError(t, h.p.Present("s2", decoder.NotFound))

	assert.Equal(t, 1, h.view.live)
	vm, ok := h.p.Current()
	require.True(t, ok)
	assert.Equal(t, "s2", vm.SessionID)
	assert.Equal(t, decoder.NotFoundMessage, vm.Message)
	assert.Equal(t, Title, vm.Title)
}

func TestCopyWritesPayload(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.p.Present("s1", decoder.Text("plain text")))
	require.NoError(t, h.p.Activate("s1", ActionCopy))
	assert.Equal(t, "plain text", h.clip.text)
	assert.Equal(t, 1, h.view.live)
}

func TestOpenOnlyForURLs(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.p.Present("s1", decoder.Text("plain text")))
	assert.ErrorIs(t, h.p.Activate("s1", ActionOpen), ErrActionUnavailable)
	assert.Empty(t, h.opener.opened)

	require.NoError(t, h.p.Present("s2", decoder.Text("https://example.com")))
	require.NoError(t, h.p.Activate("s2", ActionOpen))
	assert.Equal(t, []string{"https://example.com"}, h.opener.opened)
}

func TestNotFoundOffersNoCopy(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.p.Present("s1", decoder.NotFound))
	assert.ErrorIs(t, h.p.Activate("s1", ActionCopy), ErrActionUnavailable)
	assert.Equal(t, "", h.clip.text)
}

func TestScanAgainClosesAndRequestsCapture(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.p.Present("s1", decoder.NotFound))
	require.NoError(t, h.p.Activate("s1", ActionScanAgain))

	assert.Equal(t, 0, h.view.live)
	assert.Equal(t, []string{"s1"}, h.rescans)
	_, ok := h.p.Current()
	assert.False(t, ok)

	// The view is gone; a second click on it does nothing.
	assert.ErrorIs(t, h.p.Activate("s1", ActionScanAgain), ErrNoView)
	assert.Len(t, h.rescans, 1)
}

func TestActivateForStaleSession(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.p.Present("s1", decoder.Text("a")))
	require.NoError(t, h.p.Present("s2", decoder.Text("b")))
	assert.ErrorIs(t, h.p.Activate("s1", ActionCopy), ErrNoView)
}

func TestDismissIsIdempotent(t *testing.T) {
	h := newHarness()
	h.p.Dismiss()
	require.NoError(t, h.p.Present("s1", decoder.Text("a")))
	h.p.Dismiss()
	h.p.Dismiss()
	assert.Equal(t, 1, h.view.closes)
	assert.Equal(t, 0, h.view.live)
}

type failingView struct{ fakeView }

func (v *failingView) Show(ViewModel) error { return errors.New("no display") }

func TestPresentShowFailure(t *testing.T) {
	p := NewPresenter(Options{View: &failingView{}})
	assert.Error(t, p.Present("s1", decoder.Text("x")))
	_, ok := p.Current()
	assert.False(t, ok)
}
