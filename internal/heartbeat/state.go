package heartbeat

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Apply-policy modes for pending tasks.
const (
	ModeWhitelist = "whitelist" // only individually flagged tasks run live
	ModeGlobal    = "global"    // the global flag (or a task flag) runs live
)

// State is the singleton heartbeat status blob, rewritten wholesale on every
// tick. Timestamps are Unix seconds with fraction, matching the queue's
// completed_at convention.
type State struct {
	LastHeartbeat *float64 `json:"last_heartbeat"`
	LastTaskCheck *float64 `json:"last_task_check"`
	Interval      int      `json:"interval,omitempty"`
	PID           int      `json:"heartbeat_pid,omitempty"`
	AutoApply     bool     `json:"auto_apply,omitempty"`
	AutoApplyMode string   `json:"auto_apply_mode,omitempty"`
}

// ResolveApplyPolicy merges the persisted auto-apply preference into the flag
// values: a set flag wins, otherwise the stored preference governs, and the
// mode defaults to whitelist.
func ResolveApplyPolicy(st State, flagApply bool, flagMode string) (bool, string) {
	apply := flagApply || st.AutoApply
	mode := flagMode
	if mode == "" {
		mode = st.AutoApplyMode
	}
	if mode == "" {
		mode = ModeWhitelist
	}
	return apply, mode
}

// StateFile reads and writes heartbeat_state.json.
type StateFile struct {
	Path string
}

// DefaultStateFile returns the state file at <home>/heartbeat_state.json.
func DefaultStateFile(home string) *StateFile {
	return &StateFile{Path: filepath.Join(home, "heartbeat_state.json")}
}

// Load returns the persisted state; a missing or malformed file yields the
// zero state.
func (s *StateFile) Load() State {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return State{}
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}
	}
	return st
}

// Save rewrites the state file.
func (s *StateFile) Save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o644)
}
