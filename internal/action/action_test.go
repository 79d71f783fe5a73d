package action

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseFencedArray(t *testing.T) {
	t.Parallel()

	text := "Here is the plan:\n```json\n[{\"type\":\"wait\",\"seconds\":0.5},{\"type\":\"done\"}]\n```\nGood luck."
	acts := Parse(text)
	if len(acts) != 2 {
		t.Fatalf("Parse: got %d actions, want 2", len(acts))
	}
	if acts[0].Type != KindWait || acts[0].Seconds != 0.5 {
		t.Errorf("first action: got %+v", acts[0])
	}
	if acts[1].Type != KindDone {
		t.Errorf("second action: got %+v", acts[1])
	}
}

func TestParseBareArray(t *testing.T) {
	t.Parallel()

	acts := Parse(`The actions are [{"type":"type","text":"hello"}] as requested.`)
	if len(acts) != 1 {
		t.Fatalf("Parse: got %d actions, want 1", len(acts))
	}
	if acts[0].Type != KindType || acts[0].Text != "hello" {
		t.Errorf("got %+v", acts[0])
	}
}

func TestParseLooseObjects(t *testing.T) {
	t.Parallel()

	text := `step one {"type":"press","key":"enter"} then {"type":"done"} and {"noise":1}`
	acts := Parse(text)
	if len(acts) != 2 {
		t.Fatalf("Parse: got %d actions, want 2", len(acts))
	}
	if acts[0].Type != KindPress || acts[0].Key != "enter" {
		t.Errorf("got %+v", acts[0])
	}
}

func TestParseNormalizesFindClick(t *testing.T) {
	t.Parallel()

	acts := Parse(`[{"type":"find-click","img":"button.png"}]`)
	if len(acts) != 1 {
		t.Fatalf("Parse: got %d actions, want 1", len(acts))
	}
	if acts[0].Type != KindFindClick {
		t.Errorf("type not normalized: got %q", acts[0].Type)
	}
}

func TestParseGarbage(t *testing.T) {
	t.Parallel()

	if acts := Parse("no json here at all"); acts != nil {
		t.Errorf("Parse on garbage: got %v, want nil", acts)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	if got := Type("hello").Summary(); got != "Type: hello" {
		t.Errorf("type summary: got %q", got)
	}
	if got := Screenshot("shot.png").Summary(); got != "Screenshot -> shot.png" {
		t.Errorf("screenshot summary: got %q", got)
	}
	long := strings.Repeat("x", 500)
	if got := Type(long).Summary(); len(got) != len("Type: ")+200 {
		t.Errorf("long type summary not clipped to 200: len=%d", len(got)-len("Type: "))
	}
	// Other kinds render as JSON.
	if got := Wait(1).Summary(); !strings.Contains(got, `"wait"`) {
		t.Errorf("wait summary: got %q", got)
	}
}

func TestForAuditClipsText(t *testing.T) {
	t.Parallel()

	a := Type(strings.Repeat("y", 2000)).ForAudit()
	if len(a.Text) != 1024 {
		t.Errorf("audit text: len=%d, want 1024", len(a.Text))
	}
	// Non-type actions are untouched.
	s := Screenshot("big.png").ForAudit()
	if s.Out != "big.png" {
		t.Errorf("screenshot changed: %+v", s)
	}
}

func TestClipKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	// Two-byte runes start at odd byte offsets here, so the 200-byte clip
	// boundary falls mid-rune.
	text := "a" + strings.Repeat("é", 150)
	got := Type(text).Summary()
	clipped := strings.TrimPrefix(got, "Type: ")
	if !utf8.ValidString(clipped) {
		t.Errorf("clipped text is not valid UTF-8: %q", clipped)
	}
	if len(clipped) != 199 {
		t.Errorf("clipped length: %d bytes, want 199 (backing off the split rune)", len(clipped))
	}

	a := Type(strings.Repeat("€", 500)).ForAudit()
	if !utf8.ValidString(a.Text) {
		t.Errorf("audit text is not valid UTF-8: %q", a.Text)
	}
	if len(a.Text) > 1024 || len(a.Text)%3 != 0 {
		t.Errorf("audit text: len=%d, want a multiple of 3 no longer than 1024", len(a.Text))
	}
}

func TestKindValid(t *testing.T) {
	t.Parallel()

	for _, k := range []Kind{KindWait, KindScreenshot, KindClick, KindDoubleClick,
		KindFindClick, KindType, KindPress, KindHotkey, KindDone} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if Kind("launch_missiles").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
