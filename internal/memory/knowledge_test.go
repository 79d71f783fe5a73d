package memory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loteknowledG/samus-manus/internal/action"
	"github.com/loteknowledG/samus-manus/internal/audit"
)

func TestRetrieve(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, nil)
	ctx := context.Background()
	if _, err := s.Add(ctx, KindPersona, "helpful assistant", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, KindNote, "screenshots live in ~/shots", nil); err != nil {
		t.Fatal(err)
	}

	log := &audit.Log{Path: filepath.Join(t.TempDir(), "audit.log")}
	entries := []audit.Entry{
		{TS: 1, Answer: "y", Task: "take a screenshot", Question: "Screenshot -> s.png"},
		{TS: 2, Answer: "n", Task: "send an email", Question: "Type: dear..."},
		{TS: 3, Answer: "y", Task: "another screenshot", Action: action.Screenshot("t.png")},
	}
	for _, e := range entries {
		if err := log.Append(e); err != nil {
			t.Fatal(err)
		}
	}

	res, err := Retrieve(ctx, s, log, "screenshot", 5, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Persona != "helpful assistant" {
		t.Errorf("persona: %q", res.Persona)
	}
	if len(res.Memory) != 1 || !strings.Contains(res.Memory[0].Text, "shots") {
		t.Errorf("memory: %+v", res.Memory)
	}
	// Newest matching approvals first; the email entry does not match.
	if len(res.Approvals) != 2 {
		t.Fatalf("approvals: %+v", res.Approvals)
	}
	if res.Approvals[0].Task != "another screenshot" {
		t.Errorf("approval order: %+v", res.Approvals[0])
	}

	sum := res.Summarize()
	for _, want := range []string{"Persona: helpful assistant", "Memory matches: 1", "Approvals matching: 2"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary missing %q: %s", want, sum)
		}
	}
}

func TestRetrieveWithoutApprovals(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, nil)
	res, err := Retrieve(context.Background(), s, nil, "anything", 5, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Approvals) != 0 {
		t.Errorf("approvals: %+v", res.Approvals)
	}
	if got := res.Summarize(); got != "No results." {
		t.Errorf("summary: %q", got)
	}
}

func TestRetrieveApprovalsCappedAtTopK(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, nil)
	log := &audit.Log{Path: filepath.Join(t.TempDir(), "audit.log")}
	for i := 0; i < 10; i++ {
		if err := log.Append(audit.Entry{TS: float64(i), Task: "repeat task"}); err != nil {
			t.Fatal(err)
		}
	}
	res, err := Retrieve(context.Background(), s, log, "repeat", 3, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Approvals) != 3 {
		t.Errorf("approvals: %d, want 3", len(res.Approvals))
	}
}
