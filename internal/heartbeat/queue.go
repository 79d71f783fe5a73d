package heartbeat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TaskStatus values for queue tasks. The transition is one-way: pending
// tasks become done; failures are captured in the result text, never as a
// separate status.
const (
	StatusPending = "pending"
	StatusDone    = "done"
)

// Task is one entry in the tasks.json queue.
type Task struct {
	ID          string   `json:"id"`
	Task        string   `json:"task"`
	Status      string   `json:"status"`
	CreatedAt   int64    `json:"created_at,omitempty"`
	CompletedAt *float64 `json:"completed_at,omitempty"`
	Result      *string  `json:"result,omitempty"`
	AutoApprove bool     `json:"auto_approve,omitempty"`
	AutoApply   bool     `json:"auto_apply,omitempty"`
}

// AutoFlagged reports whether the task is individually whitelisted for real
// side effects.
func (t Task) AutoFlagged() bool { return t.AutoApprove || t.AutoApply }

// Queue reads and writes the tasks.json file wholesale (no partial writes).
type Queue struct {
	Path string
}

// DefaultQueue returns the queue at <home>/tasks.json.
func DefaultQueue(home string) *Queue {
	return &Queue{Path: filepath.Join(home, "tasks.json")}
}

type tasksFile struct {
	Tasks []Task `json:"tasks"`
}

// Load returns the queued tasks, creating an empty queue file when missing.
// A malformed file yields an empty slice rather than an error, so a corrupt
// queue never wedges the heartbeat.
func (q *Queue) Load() ([]Task, error) {
	data, err := os.ReadFile(q.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := q.Save(nil); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	var f tasksFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil
	}
	return f.Tasks, nil
}

// Save rewrites the queue file.
func (q *Queue) Save(tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	if err := os.MkdirAll(filepath.Dir(q.Path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tasksFile{Tasks: tasks}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(q.Path, data, 0o644)
}

// Append adds a task with the next task-N id and returns it.
func (q *Queue) Append(text string, autoApprove bool) (Task, error) {
	tasks, err := q.Load()
	if err != nil {
		return Task{}, err
	}
	t := Task{
		ID:          NextTaskID(tasks),
		Task:        text,
		Status:      StatusPending,
		CreatedAt:   time.Now().Unix(),
		AutoApprove: autoApprove,
	}
	tasks = append(tasks, t)
	if err := q.Save(tasks); err != nil {
		return Task{}, err
	}
	return t, nil
}

// NextTaskID computes the next "task-N" id from the highest numeric suffix
// present among existing task-N ids.
func NextTaskID(tasks []Task) string {
	max := 0
	for _, t := range tasks {
		if !strings.HasPrefix(t.ID, "task-") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(t.ID, "task-"))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("task-%d", max+1)
}

// PendingCount returns how many tasks are pending.
func PendingCount(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status == StatusPending {
			n++
		}
	}
	return n
}
