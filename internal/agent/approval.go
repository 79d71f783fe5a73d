package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/loteknowledG/samus-manus/internal/action"
	"github.com/loteknowledG/samus-manus/internal/audit"
	"github.com/loteknowledG/samus-manus/internal/memory"
)

// approvalScanLimit bounds how far back the gate looks for a prior matching
// approval record.
const approvalScanLimit = 200

// Prompter asks the human for a yes/no decision. Implementations block until
// an answer is available.
type Prompter interface {
	Ask(question string) (string, error)
}

// StdioPrompter prompts on Out and reads one line from In.
type StdioPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p *StdioPrompter) Ask(question string) (string, error) {
	fmt.Fprintf(p.Out, "%s (y/N) ", question)
	sc := bufio.NewScanner(p.In)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(sc.Text()), nil
}

// Gate decides whether a single action may run. A matching prior approval
// record in memory answers automatically; otherwise AutoAnswer (for
// non-interactive callers like the heartbeat) or the Prompter decides.
// Every decision is journaled before the action executes.
type Gate struct {
	Store    memory.Store
	Audit    *audit.Log
	Prompter Prompter
	// AutoAnswer, when non-empty, answers every prompt without a human and
	// is journaled as an auto decision.
	AutoAnswer string
}

// Decision is the outcome of one gate pass.
type Decision struct {
	Approved bool
	Auto     bool
	Answer   string
}

// Decide consults memory for an auto-approval, falls back to the prompter,
// writes the audit entry, and reports whether the action may run. Audit
// write failures are logged and do not block the decision (availability over
// durability, as the audit trail is advisory).
func (g *Gate) Decide(ctx context.Context, a action.Action, task string, step int, runID string) (Decision, error) {
	answer, auto := g.autoAnswer(ctx, a, task)
	if !auto && g.AutoAnswer != "" {
		answer, auto = strings.ToLower(g.AutoAnswer), true
	}
	if !auto {
		if g.Prompter == nil {
			return Decision{}, fmt.Errorf("approval required but no prompter configured")
		}
		// The caller already printed the action line; the prompt stays bare.
		ans, err := g.Prompter.Ask("Approve this action?")
		if err != nil {
			return Decision{}, fmt.Errorf("approval prompt: %w", err)
		}
		answer = strings.ToLower(strings.TrimSpace(ans))
	}

	entry := audit.Entry{
		TS:       float64(time.Now().UnixNano()) / 1e9,
		Auto:     auto,
		Approval: answer,
		Answer:   answer,
		Question: a.Summary(),
		Task:     task,
		Action:   a.ForAudit(),
		Step:     step,
		RunID:    runID,
	}
	if g.Audit != nil {
		if err := g.Audit.Append(entry); err != nil {
			slog.Warn("audit write failed", "err", err, "task", task, "step", step)
		}
	}

	return Decision{Approved: affirmative(answer), Auto: auto, Answer: answer}, nil
}

// autoAnswer scans recent approval records for one whose metadata names the
// same task (exact equality) or the same action type. First match wins.
func (g *Gate) autoAnswer(ctx context.Context, a action.Action, task string) (string, bool) {
	if g.Store == nil {
		return "", false
	}
	recs, err := g.Store.All(ctx, approvalScanLimit)
	if err != nil {
		return "", false
	}
	for _, r := range recs {
		if r.Kind != memory.KindApproval {
			continue
		}
		matched := false
		if mdTask, _ := r.Metadata["task"].(string); mdTask == task {
			matched = true
		} else if md, ok := r.Metadata["action"].(map[string]any); ok {
			if t, _ := md["type"].(string); t == string(a.Type) {
				matched = true
			}
		}
		if !matched {
			continue
		}
		// First match wins; a record with no stored answer falls back to a
		// live prompt.
		answer := strings.ToLower(strings.TrimSpace(r.Text))
		return answer, answer != ""
	}
	return "", false
}

func affirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
