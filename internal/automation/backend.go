// Package automation wraps the GUI-automation collaborator behind a small
// interface so the executor can run against a real display, a recording stub
// in tests, or nothing at all (simulation).
package automation

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by backends that cannot perform an operation in
// the current environment (no display, missing tool, unsupported primitive).
var ErrUnavailable = errors.New("automation backend unavailable")

// Point is a screen coordinate.
type Point struct {
	X int
	Y int
}

// Backend is the mouse/keyboard/screen collaborator. All methods are
// blocking; implementations should honor ctx cancellation where they shell
// out or poll.
type Backend interface {
	Click(ctx context.Context, x, y int, button string) error
	DoubleClick(ctx context.Context, x, y int) error
	TypeText(ctx context.Context, text string) error
	Press(ctx context.Context, key string) error
	Hotkey(ctx context.Context, keys []string) error
	Screenshot(ctx context.Context, out string) (string, error)
	// Locate finds a template image on screen, retrying with decreasing
	// confidence until timeout. Returns ErrUnavailable when the backend has
	// no template matching support.
	Locate(ctx context.Context, img string, confidence, timeoutSec float64) (Point, error)
}

// Detect returns the best backend for this host, or nil when none is usable.
// nil means the executor simulates everything.
func Detect() Backend {
	if b := detectX11(); b != nil {
		return b
	}
	return nil
}
