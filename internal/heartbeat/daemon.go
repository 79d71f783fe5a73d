//go:build !windows

package heartbeat

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// BackgroundArgs are the flags carried through to the detached child.
type BackgroundArgs struct {
	Home     string
	Interval time.Duration
	Announce bool
	// Auto-apply preference; persisted to state when set so later ticks and
	// status queries see it.
	AutoApply     bool
	AutoApplyMode string
}

// StartBackground spawns a detached heartbeat process and records its pid
// (and apply preferences) in the state file. Returns the child pid.
func StartBackground(ctx context.Context, state *StateFile, args BackgroundArgs) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}

	if st := state.Load(); st.PID > 0 && processAlive(st.PID) {
		return 0, fmt.Errorf("heartbeat already running (pid %d)", st.PID)
	}

	argv := []string{
		"heartbeat",
		"--home", args.Home,
		"--interval", strconv.Itoa(int(args.Interval / time.Second)),
	}
	if args.Announce {
		argv = append(argv, "--announce")
	}
	if args.AutoApply {
		argv = append(argv, "--auto-apply")
	}
	if args.AutoApplyMode != "" {
		argv = append(argv, "--auto-apply-mode", args.AutoApplyMode)
	}

	pid, err := spawnDetached(exe, argv, filepath.Join(args.Home, "heartbeat.log"))
	if err != nil {
		return 0, err
	}

	st := state.Load()
	st.PID = pid
	st.Interval = int(args.Interval / time.Second)
	if args.AutoApply {
		st.AutoApply = true
	}
	if args.AutoApplyMode != "" {
		st.AutoApplyMode = args.AutoApplyMode
	}
	if err := state.Save(st); err != nil {
		return pid, err
	}
	return pid, nil
}

// spawnDetached starts exe in its own session with stderr appended to
// logPath. The child receives duplicated descriptors on start, so the
// parent's log handle is closed before returning.
func spawnDetached(exe string, argv []string, logPath string) (int, error) {
	logf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, argv...)
	cmd.Stdout = io.Discard
	cmd.Stderr = logf
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	return cmd.Process.Pid, nil
}

// StopBackground terminates the recorded heartbeat process and clears the
// pid from state. Returns false when nothing was running.
func StopBackground(ctx context.Context, state *StateFile) (bool, error) {
	st := state.Load()
	if st.PID <= 0 {
		return false, nil
	}
	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return false, err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil && processAlive(st.PID) {
		return false, err
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(st.PID) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if processAlive(st.PID) {
		_ = proc.Kill()
	}

	st.PID = 0
	if err := state.Save(st); err != nil {
		return true, err
	}
	return true, nil
}

// Running reports whether a background heartbeat is alive, and its pid.
func Running(state *StateFile) (bool, int) {
	st := state.Load()
	if st.PID > 0 && processAlive(st.PID) {
		return true, st.PID
	}
	return false, 0
}

// processAlive uses kill(pid, 0) to check existence/permission on unix.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
