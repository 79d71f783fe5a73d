package heartbeat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNextTaskID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		tasks []Task
		want  string
	}{
		{"empty", nil, "task-1"},
		{"sequential", []Task{{ID: "task-1"}, {ID: "task-2"}}, "task-3"},
		{"gap", []Task{{ID: "task-1"}, {ID: "task-7"}}, "task-8"},
		{"foreign ids ignored", []Task{{ID: "job-3"}, {ID: "task-abc"}, {ID: "task-2"}}, "task-3"},
	}
	for _, tc := range cases {
		if got := NextTaskID(tc.tasks); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestQueueLoadCreatesEmptyFile(t *testing.T) {
	t.Parallel()

	q := DefaultQueue(t.TempDir())
	tasks, err := q.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks: %v", tasks)
	}
	if _, err := os.Stat(q.Path); err != nil {
		t.Errorf("queue file not created: %v", err)
	}
}

func TestQueueLoadMalformedYieldsEmpty(t *testing.T) {
	t.Parallel()

	q := DefaultQueue(t.TempDir())
	if err := os.WriteFile(q.Path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	tasks, err := q.Load()
	if err != nil {
		t.Fatalf("corrupt queue should not error: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks: %v", tasks)
	}
}

func TestQueueAppend(t *testing.T) {
	t.Parallel()

	q := DefaultQueue(t.TempDir())
	first, err := q.Append("take a screenshot", false)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.ID != "task-1" || first.Status != StatusPending || first.CreatedAt == 0 {
		t.Errorf("first: %+v", first)
	}
	second, err := q.Append("make an approval", true)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if second.ID != "task-2" || !second.AutoApprove {
		t.Errorf("second: %+v", second)
	}

	tasks, err := q.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].Task != "take a screenshot" || tasks[1].Task != "make an approval" {
		t.Errorf("tasks: %+v", tasks)
	}
	if PendingCount(tasks) != 2 {
		t.Errorf("pending: %d", PendingCount(tasks))
	}
}

func TestStateFileRoundTrip(t *testing.T) {
	t.Parallel()

	sf := DefaultStateFile(t.TempDir())
	if st := sf.Load(); st.LastHeartbeat != nil {
		t.Errorf("zero state expected: %+v", st)
	}

	hb := 1700000000.25
	want := State{LastHeartbeat: &hb, Interval: 60, PID: 1234, AutoApply: true, AutoApplyMode: ModeGlobal}
	if err := sf.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got := sf.Load()
	if got.LastHeartbeat == nil || *got.LastHeartbeat != hb {
		t.Errorf("last heartbeat: %+v", got.LastHeartbeat)
	}
	if got.Interval != 60 || got.PID != 1234 || !got.AutoApply || got.AutoApplyMode != ModeGlobal {
		t.Errorf("state: %+v", got)
	}
}

func TestResolveApplyPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		st        State
		flagApply bool
		flagMode  string
		wantApply bool
		wantMode  string
	}{
		{"all unset", State{}, false, "", false, ModeWhitelist},
		{"stored prefs govern", State{AutoApply: true, AutoApplyMode: ModeGlobal}, false, "", true, ModeGlobal},
		{"flag mode wins", State{AutoApplyMode: ModeGlobal}, false, ModeWhitelist, false, ModeWhitelist},
		{"flag apply wins", State{}, true, "", true, ModeWhitelist},
		{"stored apply without mode", State{AutoApply: true}, false, "", true, ModeWhitelist},
	}
	for _, tc := range cases {
		apply, mode := ResolveApplyPolicy(tc.st, tc.flagApply, tc.flagMode)
		if apply != tc.wantApply || mode != tc.wantMode {
			t.Errorf("%s: got (%v, %s), want (%v, %s)", tc.name, apply, mode, tc.wantApply, tc.wantMode)
		}
	}
}

func TestStateFileMalformedYieldsZero(t *testing.T) {
	t.Parallel()

	sf := &StateFile{Path: filepath.Join(t.TempDir(), "heartbeat_state.json")}
	if err := os.WriteFile(sf.Path, []byte("??"), 0o644); err != nil {
		t.Fatal(err)
	}
	if st := sf.Load(); st.LastHeartbeat != nil || st.PID != 0 {
		t.Errorf("state: %+v", st)
	}
}
