package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loteknowledG/samus-manus/internal/memory"
	"github.com/loteknowledG/samus-manus/internal/plan"
	"github.com/loteknowledG/samus-manus/internal/telemetry"
)

// DefaultMaxSteps bounds a run when the caller does not.
const DefaultMaxSteps = 20

// RunOptions controls one task run.
type RunOptions struct {
	// Apply executes real actions through the backend; otherwise everything
	// is simulated.
	Apply bool
	// ApproveEach gates every action through the approval flow.
	ApproveEach bool
	// MaxSteps caps the number of actions; 0 means DefaultMaxSteps.
	MaxSteps int
}

// RunResult summarizes a completed run.
type RunResult struct {
	RunID     string
	Steps     int
	Completed bool // a done action was reached
	Results   []string
}

// Loop wires the planner, approval gate, executor, and memory store into the
// task loop. Memory failures never abort a run (the store is best-effort
// context, not a dependency); approval and execution drive the outcome.
type Loop struct {
	Planner  plan.Planner
	Executor *Executor
	Gate     *Gate
	Store    memory.Store
	Out      io.Writer // progress lines; nil silences them
}

// Run plans the task and walks the actions: gate (optional), execute, record.
func (l *Loop) Run(ctx context.Context, task string, opts RunOptions) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString()}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	l.printf("Task: %s\n\n", task)
	l.remember(ctx, memory.KindTask, task, map[string]any{"source": "samus_agent", "run_id": res.RunID})

	planner := l.Planner
	if planner == nil {
		planner = plan.Fallback{}
	}
	planStart := time.Now()
	actions := planner.Plan(ctx, task)
	telemetry.RecordPlan(ctx, time.Since(planStart))

	if planJSON, err := json.Marshal(actions); err == nil {
		l.remember(ctx, memory.KindPlan, string(planJSON), map[string]any{"task": task, "run_id": res.RunID})
	}

	if len(actions) == 0 {
		l.printf("No actions produced by planner.\n")
		return res, nil
	}

	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Steps++
		if res.Steps > maxSteps {
			l.printf("Max steps reached\n")
			res.Steps = maxSteps
			break
		}
		step := res.Steps
		l.printf("> action %d: %s\n", step, a)

		if opts.ApproveEach {
			dec, err := l.Gate.Decide(ctx, a, task, step, res.RunID)
			if err != nil {
				return res, fmt.Errorf("step %d: %w", step, err)
			}
			telemetry.RecordApproval(ctx, dec.Auto, dec.Answer)
			if dec.Auto {
				l.printf("(auto) approval from memory: %s\n", dec.Answer)
			}
			if !dec.Approved {
				l.printf("Skipped\n")
				continue
			}
		}

		result, err := l.Executor.Execute(ctx, a, opts.Apply)
		if err != nil {
			// Backend failures become part of the record; the loop goes on.
			result = fmt.Sprintf("error: %v", err)
			slog.Warn("action failed", "task", task, "step", step, "err", err)
		}
		telemetry.RecordAction(ctx, string(a.Type), opts.Apply)
		l.printf("  -> %s\n", result)
		res.Results = append(res.Results, result)
		l.remember(ctx, memory.KindAction, result, map[string]any{
			"task": task, "action": a, "step": step, "applied": opts.Apply, "run_id": res.RunID,
		})

		if result == DoneResult {
			res.Completed = true
			l.remember(ctx, memory.KindTaskResult, "done", map[string]any{"task": task, "run_id": res.RunID})
			l.printf("Task complete\n")
			break
		}
	}
	return res, nil
}

// remember writes a memory record, logging (not propagating) failures.
func (l *Loop) remember(ctx context.Context, kind, text string, metadata map[string]any) {
	if l.Store == nil {
		return
	}
	if _, err := l.Store.Add(ctx, kind, text, metadata); err != nil {
		slog.Warn("memory write failed", "kind", kind, "err", err)
	}
}

func (l *Loop) printf(format string, args ...any) {
	if l.Out == nil {
		return
	}
	fmt.Fprintf(l.Out, format, args...)
}
