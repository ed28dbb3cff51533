package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/afero"
)

// DefaultStopGrace is how long Stop waits after SIGTERM before escalating to
// SIGKILL.
const DefaultStopGrace = 30 * time.Second

var (
	// ErrAlreadyRunning indicates a start was attempted while a supervised
	// daemon is alive.
	ErrAlreadyRunning = errors.New("agent already running")
)

// DaemonExitError reports a foreground daemon run that finished with a
// non-zero exit code. The wrapper owns no error taxonomy of its own; it only
// propagates the code.
type DaemonExitError struct {
	ExitCode int
	Cause    error
}

// Error returns the error message for the daemon exit error.
func (err *DaemonExitError) Error() string {
	return fmt.Sprintf("agent exited with code %d", err.ExitCode)
}

// Unwrap returns the underlying error.
func (err *DaemonExitError) Unwrap() error {
	return err.Cause
}

// Status describes the observable daemon state. There are exactly two
// states: running and not running.
type Status struct {
	Running bool
	State   State
}

// Supervisor owns the pidfile-style lifecycle of the detached agent daemon.
type Supervisor struct {
	fs       afero.Fs
	stateDir string

	// overridable in tests
	signalProcess func(pid int, sig syscall.Signal) error
	checkAlive    func(state State) (bool, error)
}

// New builds a Supervisor storing its state under stateDir.
func New(stateDir string, fs afero.Fs) (*Supervisor, error) {
	if err := fs.MkdirAll(stateDir, 0750); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	return &Supervisor{
		fs:            fs,
		stateDir:      stateDir,
		signalProcess: signalPID,
		checkAlive:    checkPIDAlive,
	}, nil
}

// Status reports whether the supervised daemon is running. A stale state
// file, left behind by a crashed daemon, is removed on observation.
func (supervisor *Supervisor) Status(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	state, found, err := supervisor.readState()
	if err != nil {
		return Status{}, err
	}
	if !found {
		return Status{}, nil
	}

	alive, err := supervisor.checkAlive(state)
	if err != nil {
		return Status{}, fmt.Errorf("check daemon liveness: %w", err)
	}

	if !alive {
		slog.Warn("Removing stale state file.", slog.Int("pid", state.PID), slog.String("runId", state.RunID))
		if err := supervisor.removeState(); err != nil {
			return Status{}, err
		}
		return Status{}, nil
	}

	return Status{Running: true, State: state}, nil
}

// Start spawns the daemon detached from the wrapper process and records the
// state file. Starting while the daemon runs is an error.
func (supervisor *Supervisor) Start(ctx context.Context, daemon Daemon) (State, error) {
	status, err := supervisor.Status(ctx)
	if err != nil {
		return State{}, err
	}
	if status.Running {
		return State{}, fmt.Errorf("%w: pid %d", ErrAlreadyRunning, status.State.PID)
	}

	logPath := filepath.Join(supervisor.stateDir, logFileName)

	// The daemon outlives this process, so its output must go to a real
	// file descriptor rather than through an io.Writer pipe.
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return State{}, fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() {
		_ = logFile.Close()
	}()

	// #nosec G204 - the executable path comes from locateAgentExecutable
	cmd := exec.Command(daemon.ExecutablePath)
	cmd.Env = daemon.Environ
	cmd.Dir = daemon.WorkingDirectory
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return State{}, fmt.Errorf("start daemon: %w", err)
	}

	state := State{
		RunID:          uuid.NewString(),
		PID:            cmd.Process.Pid,
		StartedAt:      time.Now().UTC(),
		ExecutablePath: daemon.ExecutablePath,
		LogPath:        logPath,
	}

	if err := supervisor.writeState(state); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Process.Release()
		return State{}, err
	}

	if err := cmd.Process.Release(); err != nil {
		return State{}, fmt.Errorf("release daemon process: %w", err)
	}

	slog.Info("Agent started.",
		slog.Int("pid", state.PID),
		slog.String("runId", state.RunID),
		slog.String("executable", state.ExecutablePath))

	return state, nil
}

// Stop terminates the supervised daemon: SIGTERM, wait up to grace, SIGKILL
// on timeout. Stopping a daemon that is not running is a no-op, not an
// error. Reports whether a process was actually stopped.
func (supervisor *Supervisor) Stop(ctx context.Context, grace time.Duration) (bool, error) {
	status, err := supervisor.Status(ctx)
	if err != nil {
		return false, err
	}
	if !status.Running {
		slog.Warn("Agent is not running.")
		return false, nil
	}

	state := status.State

	slog.Info("Stopping agent.", slog.Int("pid", state.PID), slog.String("runId", state.RunID))

	if err := supervisor.signalProcess(state.PID, syscall.SIGTERM); err != nil {
		return false, fmt.Errorf("signal daemon: %w", err)
	}

	stopped, err := supervisor.waitForExit(ctx, state, grace)
	if err != nil {
		return false, err
	}

	if !stopped {
		slog.Warn("Agent did not stop in time, killing.", slog.Int("pid", state.PID))

		if err := supervisor.signalProcess(state.PID, syscall.SIGKILL); err != nil {
			return false, fmt.Errorf("kill daemon: %w", err)
		}

		if _, err := supervisor.waitForExit(ctx, state, grace); err != nil {
			return false, err
		}
	}

	if err := supervisor.removeState(); err != nil {
		return false, err
	}

	slog.Info("Agent stopped.", slog.Int("pid", state.PID), slog.String("runId", state.RunID))

	return true, nil
}

// Restart is stop followed by start against one launch description, so both
// halves use the same configuration snapshot.
func (supervisor *Supervisor) Restart(ctx context.Context, daemon Daemon, grace time.Duration) (State, error) {
	if _, err := supervisor.Stop(ctx, grace); err != nil {
		return State{}, fmt.Errorf("stop agent: %w", err)
	}

	state, err := supervisor.Start(ctx, daemon)
	if err != nil {
		return State{}, fmt.Errorf("start agent: %w", err)
	}

	return state, nil
}

// Run executes the daemon in the foreground, blocking for its lifetime.
// Context cancellation forwards SIGTERM to the child; a non-zero exit
// surfaces as DaemonExitError so the caller can propagate the code.
func (supervisor *Supervisor) Run(ctx context.Context, daemon Daemon) error {
	status, err := supervisor.Status(ctx)
	if err != nil {
		return err
	}
	if status.Running {
		return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, status.State.PID)
	}

	// #nosec G204 - the executable path comes from locateAgentExecutable
	cmd := exec.CommandContext(ctx, daemon.ExecutablePath)
	cmd.Env = daemon.Environ
	cmd.Dir = daemon.WorkingDirectory
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = DefaultStopGrace

	slog.Info("Running agent in the foreground.", slog.String("executable", daemon.ExecutablePath))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &DaemonExitError{
				ExitCode: exitErr.ExitCode(),
				Cause:    err,
			}
		}
		return fmt.Errorf("run daemon: %w", err)
	}

	return nil
}

func (supervisor *Supervisor) waitForExit(ctx context.Context, state State, grace time.Duration) (bool, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	for {
		alive, err := supervisor.checkAlive(state)
		if err != nil {
			return false, fmt.Errorf("check daemon liveness: %w", err)
		}
		if !alive {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}

func signalPID(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

// checkPIDAlive reports whether the recorded pid still belongs to the agent
// daemon. The executable name is compared to guard against pid reuse.
func checkPIDAlive(state State) (bool, error) {
	exists, err := process.PidExists(int32(state.PID))
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	proc, err := process.NewProcess(int32(state.PID))
	if err != nil {
		return false, nil
	}

	name, err := proc.Name()
	if err != nil {
		// The process exists but is unreadable; assume it is ours.
		return true, nil
	}

	return name == filepath.Base(state.ExecutablePath), nil
}
