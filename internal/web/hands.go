// Package web gives the agent browser hands: open a page, click by text or
// selector, fill inputs, and take page screenshots, via a headless Chrome
// driven over the DevTools protocol.
package web

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Hands drives one browser tab for the lifetime of a command.
type Hands struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// Options configures the browser session.
type Options struct {
	Headful bool          // show the browser window
	Timeout time.Duration // per-operation deadline; 0 = 5s
}

// New starts a browser and opens a blank tab.
func New(ctx context.Context, opts Options) (*Hands, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 800),
	)
	if opts.Headful {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	h := &Hands{ctx: tabCtx, cancels: []context.CancelFunc{tabCancel, allocCancel}}
	if err := chromedp.Run(tabCtx); err != nil {
		h.Close()
		return nil, fmt.Errorf("web: start browser: %w", err)
	}
	return h, nil
}

// Close shuts the tab and the browser process down.
func (h *Hands) Close() {
	for _, cancel := range h.cancels {
		cancel()
	}
}

func (h *Hands) run(timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(h.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// normalizeURL defaults bare hostnames to https.
func normalizeURL(url string) string {
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}

// clickTextXPath matches clickable-ish elements whose text contains the
// given string, case-insensitively.
func clickTextXPath(text string) string {
	return fmt.Sprintf(
		`//*[self::a or self::button or self::input or self::span or self::div][contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), %q)]`,
		strings.ToLower(text))
}

// Open navigates to url and waits for the document body.
func (h *Hands) Open(url string, timeout time.Duration) error {
	return h.run(timeout,
		chromedp.Navigate(normalizeURL(url)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// ClickText clicks the first visible element containing text,
// case-insensitively. Returns false (nil error) when nothing matched.
func (h *Hands) ClickText(text string, timeout time.Duration) (bool, error) {
	err := h.run(timeout, chromedp.Click(clickTextXPath(text), chromedp.BySearch))
	if err != nil {
		if h.ctx.Err() != nil {
			return false, h.ctx.Err()
		}
		// Timeout means the element never appeared; not an error for the caller.
		return false, nil
	}
	return true, nil
}

// Click clicks a CSS selector.
func (h *Hands) Click(selector string, timeout time.Duration) error {
	return h.run(timeout, chromedp.Click(selector, chromedp.ByQuery))
}

// Fill sets the value of an input matched by a CSS selector.
func (h *Hands) Fill(selector, value string, timeout time.Duration) error {
	return h.run(timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// Screenshot captures the full page to path as PNG.
func (h *Hands) Screenshot(path string, timeout time.Duration) error {
	var buf []byte
	if err := h.run(timeout, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// Text returns the visible text of the page body.
func (h *Hands) Text(timeout time.Duration) (string, error) {
	var out string
	err := h.run(timeout, chromedp.Text("body", &out, chromedp.ByQuery))
	return out, err
}
