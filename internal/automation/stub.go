package automation

import (
	"context"
	"fmt"
	"sync"
)

// Stub is a deterministic in-memory backend that records every call instead
// of touching a display. Used in tests and as a dry-run double.
type Stub struct {
	mu    sync.Mutex
	Calls []string
	// LocateAt, when set, is returned by Locate instead of ErrUnavailable.
	LocateAt *Point
}

func (s *Stub) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, fmt.Sprintf(format, args...))
}

// Recorded returns a copy of the recorded call log.
func (s *Stub) Recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Calls))
	copy(out, s.Calls)
	return out
}

func (s *Stub) Click(_ context.Context, x, y int, button string) error {
	s.record("click %d,%d %s", x, y, button)
	return nil
}

func (s *Stub) DoubleClick(_ context.Context, x, y int) error {
	s.record("double_click %d,%d", x, y)
	return nil
}

func (s *Stub) TypeText(_ context.Context, text string) error {
	s.record("type %s", text)
	return nil
}

func (s *Stub) Press(_ context.Context, key string) error {
	s.record("press %s", key)
	return nil
}

func (s *Stub) Hotkey(_ context.Context, keys []string) error {
	s.record("hotkey %v", keys)
	return nil
}

func (s *Stub) Screenshot(_ context.Context, out string) (string, error) {
	s.record("screenshot %s", out)
	return out, nil
}

func (s *Stub) Locate(_ context.Context, img string, confidence, timeoutSec float64) (Point, error) {
	s.record("locate %s", img)
	if s.LocateAt != nil {
		return *s.LocateAt, nil
	}
	return Point{}, ErrUnavailable
}
