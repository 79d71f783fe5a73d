package automation

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// x11Backend drives a local X display through xdotool, with scrot or
// ImageMagick's import for screenshots. Template-match Locate is not
// supported; callers degrade to "image not found".
type x11Backend struct {
	xdotool    string
	screenshot []string // argv prefix; output path is appended
}

func detectX11() Backend {
	if os.Getenv("DISPLAY") == "" {
		return nil
	}
	xdo, err := exec.LookPath("xdotool")
	if err != nil {
		return nil
	}
	b := &x11Backend{xdotool: xdo}
	if p, err := exec.LookPath("scrot"); err == nil {
		b.screenshot = []string{p, "-o"}
	} else if p, err := exec.LookPath("import"); err == nil {
		b.screenshot = []string{p, "-window", "root"}
	}
	return b
}

func (b *x11Backend) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, b.xdotool, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("xdotool %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (b *x11Backend) Click(ctx context.Context, x, y int, button string) error {
	btn := mouseButton(button)
	if err := b.run(ctx, "mousemove", strconv.Itoa(x), strconv.Itoa(y)); err != nil {
		return err
	}
	return b.run(ctx, "click", btn)
}

func (b *x11Backend) DoubleClick(ctx context.Context, x, y int) error {
	if err := b.run(ctx, "mousemove", strconv.Itoa(x), strconv.Itoa(y)); err != nil {
		return err
	}
	return b.run(ctx, "click", "--repeat", "2", "1")
}

func (b *x11Backend) TypeText(ctx context.Context, text string) error {
	return b.run(ctx, "type", "--delay", "20", "--", text)
}

func (b *x11Backend) Press(ctx context.Context, key string) error {
	return b.run(ctx, "key", "--", keysym(key))
}

func (b *x11Backend) Hotkey(ctx context.Context, keys []string) error {
	syms := make([]string, len(keys))
	for i, k := range keys {
		syms[i] = keysym(k)
	}
	return b.run(ctx, "key", "--", strings.Join(syms, "+"))
}

func (b *x11Backend) Screenshot(ctx context.Context, out string) (string, error) {
	if len(b.screenshot) == 0 {
		return "", ErrUnavailable
	}
	args := append(append([]string{}, b.screenshot[1:]...), out)
	cmd := exec.CommandContext(ctx, b.screenshot[0], args...)
	if o, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("screenshot: %w: %s", err, strings.TrimSpace(string(o)))
	}
	return out, nil
}

func (b *x11Backend) Locate(ctx context.Context, img string, confidence, timeoutSec float64) (Point, error) {
	return Point{}, ErrUnavailable
}

func mouseButton(name string) string {
	switch strings.ToLower(name) {
	case "", "left":
		return "1"
	case "middle":
		return "2"
	case "right":
		return "3"
	default:
		return "1"
	}
}

// keysym maps the planner's key vocabulary onto X keysyms.
func keysym(key string) string {
	switch strings.ToLower(key) {
	case "win", "super", "cmd":
		return "super"
	case "enter", "return":
		return "Return"
	case "esc", "escape":
		return "Escape"
	case "tab":
		return "Tab"
	case "space":
		return "space"
	case "backspace":
		return "BackSpace"
	case "delete", "del":
		return "Delete"
	case "ctrl":
		return "ctrl"
	case "alt":
		return "alt"
	case "shift":
		return "shift"
	default:
		return key
	}
}
