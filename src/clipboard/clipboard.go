package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

var ErrUnavailable = errors.New("clipboard unavailable")

var (
	writeMu  sync.Mutex
	initOnce sync.Once
	initErr  error
)

// Init prepares the system clipboard. It is safe to call repeatedly; only the
// first call talks to the platform.
func Init() error {
	initOnce.Do(func() {
		initErr = clipboard.Init()
	})
	return initErr
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	if err := Init(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Read returns the current text contents of the clipboard.
func Read() (string, error) {
	if err := Init(); err != nil {
		return "", errors.Join(ErrUnavailable, err)
	}
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// System is the process clipboard as a value, for code that takes a writer interface.
type System struct{}

func (System) Write(text string) error { return Write(text) }
