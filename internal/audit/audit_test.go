package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tempLog(t *testing.T) *Log {
	t.Helper()
	return &Log{Path: filepath.Join(t.TempDir(), "approval_audit.log")}
}

func TestAppendAndLoad(t *testing.T) {
	t.Parallel()

	log := tempLog(t)
	in := []Entry{
		{TS: 100.5, Auto: true, Answer: "y", Approval: "y", Question: "Type: hi", Task: "greet", Step: 1},
		{TS: 101, Answer: "n", Task: "dangerous thing", Step: 2},
	}
	for _, e := range in {
		if err := log.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := log.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries: %d", len(got))
	}
	if got[0].TS != 100.5 || !got[0].Auto || got[0].Answer != "y" || got[0].Task != "greet" {
		t.Errorf("first entry: %+v", got[0])
	}
	if got[1].Answer != "n" || got[1].Step != 2 {
		t.Errorf("second entry: %+v", got[1])
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	log := tempLog(t)
	raw := `{"ts": 1, "answer": "y"}
not json at all

{"ts": 2, "answer": "n"}
`
	if err := os.WriteFile(log.Path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := log.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("entries: %d, want 2 (malformed and blank lines skipped)", len(got))
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	log := tempLog(t)
	got, err := log.Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("entries: %v", got)
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	entries := []Entry{
		{TS: 100, Auto: true, Task: "old screenshot task"},
		{TS: 950, Auto: false, Task: "recent manual task"},
		{TS: 990, Auto: true, Task: "recent Screenshot task"},
	}

	got := Filter{AutoOnly: true}.Apply(entries)
	if len(got) != 2 {
		t.Errorf("auto-only: %d", len(got))
	}

	got = Filter{TaskContains: "SCREENSHOT"}.Apply(entries)
	if len(got) != 2 {
		t.Errorf("task filter: %d", len(got))
	}

	got = Filter{SinceSeconds: 100, Now: now}.Apply(entries)
	if len(got) != 2 {
		t.Errorf("since filter: %d", len(got))
	}

	got = Filter{AutoOnly: true, TaskContains: "screenshot", SinceSeconds: 100, Now: now}.Apply(entries)
	if len(got) != 1 || got[0].TS != 990 {
		t.Errorf("combined: %+v", got)
	}
}

func TestFlamegraphOrdering(t *testing.T) {
	t.Parallel()

	var entries []Entry
	add := func(task string, n int) {
		for i := 0; i < n; i++ {
			entries = append(entries, Entry{Task: task})
		}
	}
	add("T1", 5)
	add("T2", 2)
	add("T3", 1)

	rows := Flamegraph(entries, 10)
	if len(rows) != 3 {
		t.Fatalf("rows: %d", len(rows))
	}
	want := []TaskCount{{"T1", 5}, {"T2", 2}, {"T3", 1}}
	for i, w := range want {
		if rows[i] != w {
			t.Errorf("row %d: got %+v, want %+v", i, rows[i], w)
		}
	}

	// Top-N cuts from the bottom.
	rows = Flamegraph(entries, 2)
	if len(rows) != 2 || rows[1].Task != "T2" {
		t.Errorf("top-2: %+v", rows)
	}
}

func TestFlamegraphFallsBackToQuestion(t *testing.T) {
	t.Parallel()

	rows := Flamegraph([]Entry{{Question: "Type: hi"}, {}}, 10)
	if len(rows) != 2 {
		t.Fatalf("rows: %+v", rows)
	}
	names := map[string]bool{}
	for _, r := range rows {
		names[r.Task] = true
	}
	if !names["Type: hi"] || !names["unknown"] {
		t.Errorf("rows: %+v", rows)
	}
}

func TestRenderFlamegraph(t *testing.T) {
	t.Parallel()

	out := RenderFlamegraph([]TaskCount{{"big task", 4}, {"small", 1}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: %q", out)
	}
	// The largest count gets the full 48-char bar.
	if !strings.Contains(lines[0], strings.Repeat("#", 48)) {
		t.Errorf("first bar: %q", lines[0])
	}
	if !strings.Contains(lines[1], strings.Repeat("#", 12)+" 1") || strings.Contains(lines[1], strings.Repeat("#", 13)) {
		t.Errorf("second bar: %q", lines[1])
	}
	// Long names are clipped to 40 characters.
	long := strings.Repeat("n", 60)
	out = RenderFlamegraph([]TaskCount{{long, 1}})
	if strings.Contains(out, strings.Repeat("n", 41)) {
		t.Errorf("name not clipped: %q", out)
	}
}

func TestEntryTime(t *testing.T) {
	t.Parallel()

	e := Entry{TS: 1700000000.5}
	got := e.Time()
	if got.Unix() != 1700000000 {
		t.Errorf("seconds: %d", got.Unix())
	}
	if got.Nanosecond() != 5e8 {
		t.Errorf("nanos: %d", got.Nanosecond())
	}
}
