package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loteknowledG/samus-manus/internal/action"
	"github.com/loteknowledG/samus-manus/internal/automation"
	"github.com/loteknowledG/samus-manus/internal/memory"
	"github.com/loteknowledG/samus-manus/internal/plan"
)

type fixedPlanner struct {
	acts []action.Action
}

func (p fixedPlanner) Plan(context.Context, string) []action.Action { return p.acts }

// failingBackend errors on every operation, standing in for a broken display.
type failingBackend struct{}

func (failingBackend) Click(context.Context, int, int, string) error { return errBackend }
func (failingBackend) DoubleClick(context.Context, int, int) error   { return errBackend }
func (failingBackend) TypeText(context.Context, string) error        { return errBackend }
func (failingBackend) Press(context.Context, string) error           { return errBackend }
func (failingBackend) Hotkey(context.Context, []string) error        { return errBackend }
func (failingBackend) Screenshot(context.Context, string) (string, error) {
	return "", errBackend
}
func (failingBackend) Locate(context.Context, string, float64, float64) (automation.Point, error) {
	return automation.Point{}, errBackend
}

var errBackend = errors.New("display unreachable")

func TestLoopRunCompletesOnDone(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	var out bytes.Buffer
	loop := &Loop{
		Planner:  plan.Fallback{},
		Executor: &Executor{},
		Store:    store,
		Out:      &out,
	}

	res, err := loop.Run(context.Background(), "take a screenshot", RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Completed {
		t.Error("run should complete via done action")
	}
	if res.RunID == "" {
		t.Error("missing run id")
	}
	if res.Steps != 3 {
		t.Errorf("steps: %d, want 3", res.Steps)
	}
	if len(res.Results) != 3 || res.Results[2] != DoneResult {
		t.Errorf("results: %v", res.Results)
	}
	if !strings.Contains(res.Results[1], "(sim) screenshot -> samus_screenshot.png") {
		t.Errorf("screenshot result: %q", res.Results[1])
	}
	if !strings.Contains(out.String(), "Task complete") {
		t.Errorf("output: %q", out.String())
	}

	// The run leaves task, plan, action, and task_result records behind.
	recs, err := store.All(context.Background(), 50)
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[string]int{}
	for _, r := range recs {
		kinds[r.Kind]++
	}
	if kinds[memory.KindTask] != 1 || kinds[memory.KindPlan] != 1 || kinds[memory.KindTaskResult] != 1 {
		t.Errorf("record kinds: %v", kinds)
	}
	if kinds[memory.KindAction] != 3 {
		t.Errorf("action records: %d, want 3", kinds[memory.KindAction])
	}
}

func TestLoopRunMaxSteps(t *testing.T) {
	t.Parallel()

	acts := make([]action.Action, 0, 10)
	for i := 0; i < 10; i++ {
		acts = append(acts, action.Wait(0.001))
	}
	loop := &Loop{
		Planner:  fixedPlanner{acts: acts},
		Executor: &Executor{},
	}
	res, err := loop.Run(context.Background(), "busy work", RunOptions{MaxSteps: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Completed {
		t.Error("capped run must not report completion")
	}
	if res.Steps != 3 {
		t.Errorf("steps: %d, want 3", res.Steps)
	}
}

func TestLoopRunGatesEachAction(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	p := &fakePrompter{answer: "n"}
	var out bytes.Buffer
	loop := &Loop{
		Planner:  fixedPlanner{acts: []action.Action{action.Type("secret"), action.Done()}},
		Executor: &Executor{},
		Gate:     &Gate{Store: store, Prompter: p},
		Store:    store,
		Out:      &out,
	}

	res, err := loop.Run(context.Background(), "t", RunOptions{ApproveEach: true})
	if err != nil {
		t.Fatal(err)
	}
	if p.asked != 2 {
		t.Errorf("prompter asked %d times, want 2", p.asked)
	}
	// Both actions denied: nothing executed, no completion.
	if len(res.Results) != 0 || res.Completed {
		t.Errorf("results: %v completed=%v", res.Results, res.Completed)
	}
	if !strings.Contains(out.String(), "Skipped") {
		t.Errorf("output: %q", out.String())
	}
}

func TestLoopRunAutoApprovalPrinted(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if _, err := store.Add(context.Background(), memory.KindApproval, "y", map[string]any{"task": "t"}); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	loop := &Loop{
		Planner:  fixedPlanner{acts: []action.Action{action.Done()}},
		Executor: &Executor{},
		Gate:     &Gate{Store: store},
		Store:    store,
		Out:      &out,
	}
	res, err := loop.Run(context.Background(), "t", RunOptions{ApproveEach: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Completed {
		t.Error("auto-approved done should complete")
	}
	if !strings.Contains(out.String(), "(auto) approval from memory: y") {
		t.Errorf("output: %q", out.String())
	}
}

func TestLoopRunExecutionErrorRecorded(t *testing.T) {
	t.Parallel()

	loop := &Loop{
		Planner:  fixedPlanner{acts: []action.Action{action.Type("boom"), action.Done()}},
		Executor: &Executor{Backend: failingBackend{}},
	}
	res, err := loop.Run(context.Background(), "t", RunOptions{Apply: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("results: %v", res.Results)
	}
	if !strings.HasPrefix(res.Results[0], "error: ") {
		t.Errorf("first result: %q", res.Results[0])
	}
	if !res.Completed {
		t.Error("a failed step must not stop the run")
	}
}
