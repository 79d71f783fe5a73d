package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/loteknowledG/samus-manus/internal/audit"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRootCmd("test")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("execute %v: %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	if root == nil {
		t.Fatal("NewRootCmd returned nil")
	}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "heartbeat", "task", "memory", "audit", "web", "backup", "doctor"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
}

func TestNewRootCmd_versionFlag(t *testing.T) {
	root := NewRootCmd("1.2.3")
	if root.Version != "1.2.3" {
		t.Errorf("Version: got %q", root.Version)
	}
	if root := NewRootCmd(""); root.Version != "dev" {
		t.Errorf("Version default: got %q", root.Version)
	}
}

func TestNewRootCmd_hasHomeFlag(t *testing.T) {
	root := NewRootCmd("")
	if root.PersistentFlags().Lookup("home") == nil {
		t.Fatal("expected --home persistent flag")
	}
}

func TestTaskAddAndList(t *testing.T) {
	home := t.TempDir()

	out := execute(t, "--home", home, "task", "add", "take", "a", "screenshot")
	if !strings.Contains(out, "Queued task-1: take a screenshot") {
		t.Errorf("add output: %q", out)
	}

	out = execute(t, "--home", home, "task", "add", "--auto-approve", "make an approval")
	if !strings.Contains(out, "Queued task-2") {
		t.Errorf("add output: %q", out)
	}

	out = execute(t, "--home", home, "task", "list")
	if !strings.Contains(out, "task-1") || !strings.Contains(out, "take a screenshot") {
		t.Errorf("list output: %q", out)
	}
	if !strings.Contains(out, "[auto]") {
		t.Errorf("list output missing auto flag: %q", out)
	}
}

func TestTaskListEmpty(t *testing.T) {
	out := execute(t, "--home", t.TempDir(), "task", "list")
	if !strings.Contains(out, "No tasks") {
		t.Errorf("list output: %q", out)
	}
}

func TestAuditListAndFlamegraph(t *testing.T) {
	home := t.TempDir()
	log := audit.DefaultLog(home)
	for i := 0; i < 3; i++ {
		if err := log.Append(audit.Entry{TS: float64(i + 1), Answer: "y", Task: "screenshot run", Step: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := log.Append(audit.Entry{TS: 10, Answer: "n", Task: "risky thing"}); err != nil {
		t.Fatal(err)
	}

	out := execute(t, "--home", home, "audit", "list", "--limit", "2")
	if strings.Count(out, "|") < 2 {
		t.Errorf("list output: %q", out)
	}

	out = execute(t, "--home", home, "audit", "aa", "flamegraph", "5")
	if !strings.Contains(out, "screenshot run") || !strings.Contains(out, "#") {
		t.Errorf("flamegraph output: %q", out)
	}
	idxScreenshot := strings.Index(out, "screenshot run")
	idxRisky := strings.Index(out, "risky thing")
	if idxRisky >= 0 && idxScreenshot > idxRisky {
		t.Errorf("flamegraph not sorted by count: %q", out)
	}
}

func TestAuditAABareShowsRecent(t *testing.T) {
	home := t.TempDir()
	log := audit.DefaultLog(home)
	if err := log.Append(audit.Entry{TS: 1, Answer: "y", Question: "Take screenshot?", Task: "shot"}); err != nil {
		t.Fatal(err)
	}
	out := execute(t, "--home", home, "audit", "aa")
	if !strings.Contains(out, "Take screenshot?") {
		t.Errorf("aa output: %q", out)
	}
}

func TestDoctorRuns(t *testing.T) {
	out := execute(t, "--home", t.TempDir(), "doctor")
	for _, want := range []string{"home", "automation", "llm"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor output missing %q: %q", want, out)
		}
	}
}

func TestBackupListEmpty(t *testing.T) {
	out := execute(t, "--home", t.TempDir(), "backup", "list")
	if !strings.Contains(out, "No backups found") {
		t.Errorf("backup list output: %q", out)
	}
}
