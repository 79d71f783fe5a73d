// Package action defines the typed low-level UI actions a plan is made of,
// their JSON wire shape, and the parsers that extract them from LLM output.
package action

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Kind is the closed set of action types the executor understands.
type Kind string

const (
	KindWait        Kind = "wait"
	KindScreenshot  Kind = "screenshot"
	KindClick       Kind = "click"
	KindDoubleClick Kind = "double_click"
	KindFindClick   Kind = "find_click"
	KindType        Kind = "type"
	KindPress       Kind = "press"
	KindHotkey      Kind = "hotkey"
	KindDone        Kind = "done"
)

// Valid reports whether k is one of the known action kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindWait, KindScreenshot, KindClick, KindDoubleClick, KindFindClick,
		KindType, KindPress, KindHotkey, KindDone:
		return true
	}
	return false
}

// Action is one step of a plan. Fields are populated per Kind:
// wait uses Seconds; screenshot uses Out; click/double_click use X/Y/Button;
// find_click uses Img/Confidence/Timeout/Button; type uses Text; press uses
// Key; hotkey uses Keys. done carries nothing.
type Action struct {
	Type       Kind     `json:"type"`
	Seconds    float64  `json:"seconds,omitempty"`
	Out        string   `json:"out,omitempty"`
	X          *int     `json:"x,omitempty"`
	Y          *int     `json:"y,omitempty"`
	Button     string   `json:"button,omitempty"`
	Img        string   `json:"img,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Timeout    float64  `json:"timeout,omitempty"`
	Text       string   `json:"text,omitempty"`
	Key        string   `json:"key,omitempty"`
	Keys       []string `json:"keys,omitempty"`
}

// Wait returns a wait action for the given number of seconds.
func Wait(seconds float64) Action { return Action{Type: KindWait, Seconds: seconds} }

// Screenshot returns a screenshot action saving to out.
func Screenshot(out string) Action { return Action{Type: KindScreenshot, Out: out} }

// Type returns a type action for the given text.
func Type(text string) Action { return Action{Type: KindType, Text: text} }

// Press returns a press action for the given key.
func Press(key string) Action { return Action{Type: KindPress, Key: key} }

// Done returns the terminal action of a plan.
func Done() Action { return Action{Type: KindDone} }

// Summary renders the human-readable question string used in approval
// prompts and audit entries. Typed text is clipped to 200 characters.
func (a Action) Summary() string {
	switch a.Type {
	case KindType:
		return "Type: " + clip(a.Text, 200)
	case KindScreenshot:
		return "Screenshot -> " + a.Out
	default:
		b, err := json.Marshal(a)
		if err != nil {
			return string(a.Type)
		}
		return string(b)
	}
}

// ForAudit returns a copy safe to persist in the audit log: typed text is
// clipped to 1024 characters.
func (a Action) ForAudit() Action {
	if a.Type == KindType {
		a.Text = clip(a.Text, 1024)
	}
	return a
}

// clip truncates s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var (
	fencedArrayRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
	bareArrayRe   = regexp.MustCompile(`(?s)(\[.*?\])`)
	objectRe      = regexp.MustCompile(`\{[^{}]+\}`)
)

// Parse extracts a JSON array of actions from model output, best-effort.
// Tried in order: fenced code block, bare bracketed array, then individually
// matched brace-delimited objects that carry a "type" field. Unknown or
// malformed candidates are dropped rather than erroring; an empty result
// means the caller should fall back to deterministic planning.
func Parse(text string) []Action {
	if m := fencedArrayRe.FindStringSubmatch(text); m != nil {
		if acts := decodeArray(m[1]); acts != nil {
			return acts
		}
	}
	if m := bareArrayRe.FindStringSubmatch(text); m != nil {
		if acts := decodeArray(m[1]); acts != nil {
			return acts
		}
	}
	var out []Action
	for _, raw := range objectRe.FindAllString(text, -1) {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &probe); err != nil {
			continue
		}
		if _, ok := probe["type"]; !ok {
			continue
		}
		var a Action
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue
		}
		out = append(out, normalize(a))
	}
	return out
}

func decodeArray(raw string) []Action {
	var acts []Action
	if err := json.Unmarshal([]byte(raw), &acts); err != nil {
		return nil
	}
	for i := range acts {
		acts[i] = normalize(acts[i])
	}
	return acts
}

// normalize folds legacy spellings ("find-click") onto canonical kinds.
func normalize(a Action) Action {
	if strings.EqualFold(string(a.Type), "find-click") {
		a.Type = KindFindClick
	}
	return a
}

// String renders the action as compact JSON for log lines.
func (a Action) String() string {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Sprintf("{type:%s}", a.Type)
	}
	return string(b)
}
