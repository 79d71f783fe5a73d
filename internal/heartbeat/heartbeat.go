// Package heartbeat polls the local task queue on an interval and runs each
// pending task through the in-process agent loop, persisting run state and
// optionally announcing status over TTS.
package heartbeat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/loteknowledG/samus-manus/internal/agent"
	"github.com/loteknowledG/samus-manus/internal/telemetry"
)

// approvalTaskPrefix marks self-perpetuating approval-generation tasks:
// whenever one completes, a fresh pending copy is queued so the
// approval-training flow never runs dry. Unusual on purpose.
const approvalTaskPrefix = "make an approval"

// Announcer speaks (or prints) heartbeat status lines.
type Announcer interface {
	Speak(ctx context.Context, text string) error
}

// Runner executes one task end to end. *agent.Loop satisfies this through
// RunTask below; tests substitute their own.
type Runner interface {
	RunTask(ctx context.Context, task string, apply bool) (string, error)
}

// LoopRunner adapts an agent.Loop to the Runner interface with the
// non-interactive policy the heartbeat wants: every action gated, audited,
// and auto-answered.
type LoopRunner struct {
	Loop *agent.Loop
}

func (r *LoopRunner) RunTask(ctx context.Context, task string, apply bool) (string, error) {
	res, err := r.Loop.Run(ctx, task, agent.RunOptions{
		Apply:       apply,
		ApproveEach: true,
	})
	if err != nil {
		return "", err
	}
	return strings.Join(res.Results, "\n"), nil
}

// Options configures the heartbeat.
type Options struct {
	Interval    time.Duration
	Announce    bool
	GlobalApply bool   // global auto-apply preference (mode "global" only)
	Mode        string // ModeWhitelist (default) or ModeGlobal
	Out         io.Writer
}

// Heartbeat drives ticks over the queue, state file, runner, and announcer.
type Heartbeat struct {
	Queue     *Queue
	State     *StateFile
	Runner    Runner
	Announcer Announcer
}

// CheckOnce performs a single tick: announce status, run every pending task
// sequentially in queue order, requeue approval-generation work, persist
// queue and state.
func (h *Heartbeat) CheckOnce(ctx context.Context, opts Options) error {
	st := h.State.Load()
	tasks, err := h.Queue.Load()
	if err != nil {
		return fmt.Errorf("heartbeat: load tasks: %w", err)
	}

	pending := PendingCount(tasks)
	telemetry.RecordTick(ctx, pending)
	msg := fmt.Sprintf("Samus-Manus heartbeat at %s. Pending tasks: %d",
		time.Now().Format("2006-01-02 15:04:05"), pending)
	h.printf(opts, "%s\n", msg)
	h.announce(ctx, opts, msg)

	mode := opts.Mode
	if mode == "" {
		mode = ModeWhitelist
	}

	changed := false
	processedApproval := false
	for i := range tasks {
		t := &tasks[i]
		if t.Status != StatusPending {
			continue
		}
		h.printf(opts, "Found pending task: %s %s\n", t.ID, t.Task)
		h.announce(ctx, opts, "Running task: "+t.Task)

		applyNow := t.AutoFlagged()
		if mode == ModeGlobal {
			applyNow = applyNow || opts.GlobalApply
		}

		result := h.runTask(ctx, t.Task, applyNow)
		now := unixSeconds()
		t.Status = StatusDone
		t.Result = &result
		t.CompletedAt = &now
		changed = true
		telemetry.RecordTask(ctx, applyNow)
		h.printf(opts, "Task result: %s\n", firstLines(result, 5))

		if strings.HasPrefix(strings.ToLower(t.Task), approvalTaskPrefix) {
			processedApproval = true
		}
	}

	if processedApproval {
		nt := Task{
			ID:          NextTaskID(tasks),
			Task:        approvalTaskPrefix,
			Status:      StatusPending,
			CreatedAt:   time.Now().Unix(),
			AutoApprove: true,
		}
		tasks = append(tasks, nt)
		changed = true
		h.printf(opts, "Appended new approval task: %s\n", nt.ID)
	}

	if changed {
		if err := h.Queue.Save(tasks); err != nil {
			return fmt.Errorf("heartbeat: save tasks: %w", err)
		}
	}

	now := unixSeconds()
	st.LastHeartbeat = &now
	st.LastTaskCheck = &now
	if err := h.State.Save(st); err != nil {
		return fmt.Errorf("heartbeat: save state: %w", err)
	}
	return nil
}

// runTask invokes the runner, converting errors into the result text: the
// queue has no failure state, a broken run is still a completed run.
func (h *Heartbeat) runTask(ctx context.Context, task string, apply bool) string {
	result, err := h.Runner.RunTask(ctx, task, apply)
	if err != nil {
		slog.Warn("task run failed", "task", task, "err", err)
		return fmt.Sprintf("Error running task: %v", err)
	}
	return result
}

// Run ticks until the context is cancelled.
func (h *Heartbeat) Run(ctx context.Context, opts Options) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if err := h.CheckOnce(ctx, opts); err != nil {
		slog.Error("heartbeat tick failed", "err", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := h.CheckOnce(ctx, opts); err != nil {
				slog.Error("heartbeat tick failed", "err", err)
			}
		}
	}
}

func (h *Heartbeat) announce(ctx context.Context, opts Options, msg string) {
	if !opts.Announce || h.Announcer == nil {
		return
	}
	if err := h.Announcer.Speak(ctx, msg); err != nil {
		h.printf(opts, "TTS failed: %v\n", err)
	}
}

func (h *Heartbeat) printf(opts Options, format string, args ...any) {
	if opts.Out == nil {
		return
	}
	fmt.Fprintf(opts.Out, format, args...)
}

func unixSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, " / ")
}
