// Package audit is the append-only approval journal: one JSON line per
// approval decision, written before the gated action runs.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/loteknowledG/samus-manus/internal/action"
)

// Entry is one immutable approval decision. Approval and Answer carry the
// same value; both are written for compatibility with older log readers.
type Entry struct {
	TS       float64       `json:"ts"`
	Auto     bool          `json:"auto"`
	Approval string        `json:"approval"`
	Answer   string        `json:"answer"`
	Question string        `json:"question"`
	Task     string        `json:"task"`
	Action   action.Action `json:"action"`
	Step     int           `json:"step"`
	RunID    string        `json:"run_id,omitempty"`
}

// Time returns the entry timestamp as a time.Time.
func (e Entry) Time() time.Time {
	sec := int64(e.TS)
	return time.Unix(sec, int64((e.TS-float64(sec))*1e9))
}

// Log appends to and reads a newline-delimited JSON audit file.
type Log struct {
	Path string
}

// DefaultLog returns the audit log at <home>/approval_audit.log.
func DefaultLog(home string) *Log {
	return &Log{Path: filepath.Join(home, "approval_audit.log")}
}

// Append writes one entry as a JSON line. The file is opened in append mode
// per write so concurrent writers only risk interleaved lines, never
// corruption of prior entries.
func (l *Log) Append(e Entry) error {
	if e.TS == 0 {
		e.TS = float64(time.Now().UnixNano()) / 1e9
	}
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open: %w", err)
	}
	defer func() { _ = f.Close() }()
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("audit: write: %w", err)
	}
	return nil
}

// Load reads all entries, skipping blank or malformed lines.
func (l *Log) Load() ([]Entry, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// Filter narrows a Load result.
type Filter struct {
	AutoOnly     bool
	TaskContains string  // case-insensitive substring
	SinceSeconds float64 // 0 = no cutoff
	Now          time.Time
}

// Apply returns the entries matching the filter, preserving order.
func (f Filter) Apply(entries []Entry) []Entry {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := float64(now.UnixNano())/1e9 - f.SinceSeconds
	var out []Entry
	for _, e := range entries {
		if f.SinceSeconds > 0 && e.TS < cutoff {
			continue
		}
		if f.AutoOnly && !e.Auto {
			continue
		}
		if f.TaskContains != "" && !strings.Contains(strings.ToLower(e.Task), strings.ToLower(f.TaskContains)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// TaskCount is one flamegraph row: a task and how many audit entries name it.
type TaskCount struct {
	Task  string
	Count int
}

// Flamegraph tallies entries per task (falling back to the question text,
// then "unknown") and returns the top n in descending count order.
func Flamegraph(entries []Entry, n int) []TaskCount {
	if n <= 0 {
		n = 10
	}
	counts := make(map[string]int)
	for _, e := range entries {
		key := e.Task
		if key == "" {
			key = e.Question
		}
		if key == "" {
			key = "unknown"
		}
		counts[key]++
	}
	out := make([]TaskCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TaskCount{Task: t, Count: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Task < out[j].Task
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// RenderFlamegraph renders rows as fixed-width histogram lines with
// #-bars scaled to the largest count.
func RenderFlamegraph(rows []TaskCount) string {
	const barMax = 48
	if len(rows) == 0 {
		return ""
	}
	max := rows[0].Count
	var b strings.Builder
	for _, r := range rows {
		name := r.Task
		if len(name) > 40 {
			name = name[:40]
		}
		barLen := 0
		if max > 0 {
			barLen = r.Count * barMax / max
		}
		if barLen < 1 {
			barLen = 1
		}
		fmt.Fprintf(&b, "%-40s | %s %d\n", name, strings.Repeat("#", barLen), r.Count)
	}
	return b.String()
}
