// Package speech announces text through whatever local TTS engine is on the
// PATH, degrading to printed output when none is. The engine itself is an
// external collaborator; this package only shells out to it.
package speech

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Announcer speaks a line of text.
type Announcer interface {
	Speak(ctx context.Context, text string) error
}

// Engine is a TTS binary and the argv it needs before the text.
type Engine struct {
	Path string
	Args []string
}

// ExecAnnouncer shells out to a local TTS engine. Voice is optional and
// engine-specific.
type ExecAnnouncer struct {
	Engine Engine
	Voice  string
}

// Detect finds a usable TTS engine (say on macOS, espeak-ng or espeak
// elsewhere). Returns nil when none is installed.
func Detect(voice string) *ExecAnnouncer {
	candidates := []string{"say", "espeak-ng", "espeak"}
	for _, name := range candidates {
		if p, err := exec.LookPath(name); err == nil {
			return &ExecAnnouncer{Engine: Engine{Path: p}, Voice: voice}
		}
	}
	return nil
}

func (a *ExecAnnouncer) Speak(ctx context.Context, text string) error {
	args := append([]string{}, a.Engine.Args...)
	if a.Voice != "" {
		args = append(args, "-v", a.Voice)
	}
	args = append(args, text)
	cmd := exec.CommandContext(ctx, a.Engine.Path, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("speech: %s: %w: %s", a.Engine.Path, err, out)
	}
	return nil
}

// PrintAnnouncer writes "[TTS disabled] ..." lines instead of speaking,
// matching the degraded behavior when no engine exists.
type PrintAnnouncer struct {
	Out io.Writer
}

func (a *PrintAnnouncer) Speak(_ context.Context, text string) error {
	_, err := fmt.Fprintf(a.Out, "[TTS disabled] %s\n", text)
	return err
}
