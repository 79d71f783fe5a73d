// Package agent runs the plan → approve → execute loop. Side effects only
// happen when apply mode is on and an automation backend is present; in every
// other case the executor reports what would have happened.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loteknowledG/samus-manus/internal/action"
	"github.com/loteknowledG/samus-manus/internal/automation"
)

// DoneResult is the sentinel result that terminates a run early.
const DoneResult = "DONE"

// Executor maps actions to backend operations. A nil Backend simulates
// everything.
type Executor struct {
	Backend automation.Backend
}

// Execute runs (or simulates) a single action and returns a textual result.
// The returned error is non-nil only for real backend failures; simulated
// and degraded paths always succeed with a descriptive string.
func (e *Executor) Execute(ctx context.Context, a action.Action, apply bool) (string, error) {
	live := apply && e.Backend != nil

	switch a.Type {
	case action.KindWait:
		secs := a.Seconds
		if secs == 0 {
			secs = 1
		}
		if err := sleep(ctx, time.Duration(secs*float64(time.Second))); err != nil {
			return "", err
		}
		return fmt.Sprintf("waited %gs", secs), nil

	case action.KindScreenshot:
		out := a.Out
		if out == "" {
			out = "screen.png"
		}
		if live {
			path, err := e.Backend.Screenshot(ctx, out)
			if err == nil {
				return fmt.Sprintf("screenshot saved %s", path), nil
			}
			if !errors.Is(err, automation.ErrUnavailable) {
				return "", err
			}
		}
		return fmt.Sprintf("(sim) screenshot -> %s", out), nil

	case action.KindClick:
		if a.X == nil || a.Y == nil {
			return "click: missing coordinates", nil
		}
		if live {
			if err := e.Backend.Click(ctx, *a.X, *a.Y, a.Button); err != nil {
				return "", err
			}
			return fmt.Sprintf("clicked at (%d,%d)", *a.X, *a.Y), nil
		}
		return fmt.Sprintf("(sim) click at (%d,%d)", *a.X, *a.Y), nil

	case action.KindDoubleClick:
		if a.X == nil || a.Y == nil {
			return "double_click: missing coordinates", nil
		}
		if live {
			if err := e.Backend.DoubleClick(ctx, *a.X, *a.Y); err != nil {
				return "", err
			}
			return fmt.Sprintf("double-clicked at (%d,%d)", *a.X, *a.Y), nil
		}
		return fmt.Sprintf("(sim) double-click at (%d,%d)", *a.X, *a.Y), nil

	case action.KindFindClick:
		return e.findClick(ctx, a, live)

	case action.KindType:
		if live {
			if err := e.Backend.TypeText(ctx, a.Text); err != nil {
				return "", err
			}
			return fmt.Sprintf("typed: %q", a.Text), nil
		}
		return fmt.Sprintf("(sim) type: %q", a.Text), nil

	case action.KindPress:
		key := a.Key
		if key == "" {
			key = "enter"
		}
		if live {
			if err := e.Backend.Press(ctx, key); err != nil {
				return "", err
			}
			return fmt.Sprintf("pressed: %s", key), nil
		}
		return fmt.Sprintf("(sim) press: %s", key), nil

	case action.KindHotkey:
		combo := strings.Join(a.Keys, "+")
		if live && len(a.Keys) > 0 {
			if err := e.Backend.Hotkey(ctx, a.Keys); err != nil {
				return "", err
			}
			return fmt.Sprintf("hotkey: %s", combo), nil
		}
		return fmt.Sprintf("(sim) hotkey: %s", combo), nil

	case action.KindDone:
		return DoneResult, nil

	default:
		return fmt.Sprintf("unknown action type: %s", a.Type), nil
	}
}

// findClick locates a template image, then clicks when live. Backends
// without template matching (or no backend at all) degrade to "not found".
func (e *Executor) findClick(ctx context.Context, a action.Action, live bool) (string, error) {
	if a.Img == "" {
		return "find_click: missing img path", nil
	}
	confidence := a.Confidence
	if confidence == 0 {
		confidence = 0.8
	}
	timeout := a.Timeout
	if timeout == 0 {
		timeout = 3.0
	}
	if e.Backend == nil {
		return fmt.Sprintf("image not found: %s", a.Img), nil
	}
	pos, err := e.Backend.Locate(ctx, a.Img, confidence, timeout)
	if err != nil {
		if errors.Is(err, automation.ErrUnavailable) {
			return fmt.Sprintf("image not found: %s", a.Img), nil
		}
		return "", err
	}
	if live {
		if err := e.Backend.Click(ctx, pos.X, pos.Y, a.Button); err != nil {
			return "", err
		}
		return fmt.Sprintf("found and clicked %s at (%d,%d)", a.Img, pos.X, pos.Y), nil
	}
	return fmt.Sprintf("(sim) found %s at (%d,%d)", a.Img, pos.X, pos.Y), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
