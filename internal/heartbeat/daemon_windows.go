//go:build windows

package heartbeat

import (
	"context"
	"errors"
	"time"
)

// BackgroundArgs are the flags carried through to the detached child.
type BackgroundArgs struct {
	Home          string
	Interval      time.Duration
	Announce      bool
	AutoApply     bool
	AutoApplyMode string
}

// Background heartbeat management relies on setsid and unix signals; on
// Windows run the heartbeat in the foreground (e.g. as a service) instead.
func StartBackground(ctx context.Context, state *StateFile, args BackgroundArgs) (int, error) {
	return 0, errors.New("background heartbeat is not supported on windows; use --once or run in foreground")
}

func StopBackground(ctx context.Context, state *StateFile) (bool, error) {
	return false, errors.New("background heartbeat is not supported on windows")
}

func Running(state *StateFile) (bool, int) {
	return false, 0
}
