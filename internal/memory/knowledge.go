package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loteknowledG/samus-manus/internal/audit"
)

// RetrieveResult bundles what the knowledge query found: the active persona,
// similar memory records, and approval-log entries matching the query.
type RetrieveResult struct {
	Persona   string
	Memory    []Scored
	Approvals []audit.Entry
}

// Retrieve answers a knowledge query against the memory store and, when
// includeApprovals is set, the approval audit log. Memory is searched
// semantically (degrading to substring); approvals by substring over
// question, task, and serialized action.
func Retrieve(ctx context.Context, store Store, log *audit.Log, query string, topK int, includeApprovals bool) (RetrieveResult, error) {
	var res RetrieveResult
	if topK <= 0 {
		topK = 5
	}

	persona, err := LatestOfKind(ctx, store, KindPersona, 50)
	if err == nil {
		res.Persona = persona
	}

	mem, err := store.QuerySimilar(ctx, query, topK)
	if err != nil {
		return res, fmt.Errorf("knowledge: memory query: %w", err)
	}
	res.Memory = mem

	if includeApprovals && log != nil {
		entries, err := log.Load()
		if err != nil {
			return res, fmt.Errorf("knowledge: load approvals: %w", err)
		}
		q := strings.ToLower(query)
		for i := len(entries) - 1; i >= 0 && len(res.Approvals) < topK; i-- {
			a := entries[i]
			actionJSON, _ := json.Marshal(a.Action)
			if strings.Contains(strings.ToLower(a.Question), q) ||
				strings.Contains(strings.ToLower(a.Task), q) ||
				strings.Contains(strings.ToLower(string(actionJSON)), q) {
				res.Approvals = append(res.Approvals, a)
			}
		}
	}
	return res, nil
}

// Summarize renders a one-line human summary of a retrieval result.
func (r RetrieveResult) Summarize() string {
	var parts []string
	if r.Persona != "" {
		parts = append(parts, "Persona: "+r.Persona)
	}
	if len(r.Memory) > 0 {
		top := r.Memory[0].Text
		if len(top) > 80 {
			top = top[:80]
		}
		parts = append(parts, fmt.Sprintf("Memory matches: %d (top: %s)", len(r.Memory), top))
	}
	if len(r.Approvals) > 0 {
		latest := r.Approvals[0].Question
		if latest == "" {
			latest = r.Approvals[0].Task
		}
		parts = append(parts, fmt.Sprintf("Approvals matching: %d (latest: %s)", len(r.Approvals), latest))
	}
	if len(parts) == 0 {
		return "No results."
	}
	return strings.Join(parts, " | ")
}
