package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeAgent writes a shell script that stays alive until signalled, so
// lifecycle tests exercise real process handling. The loop keeps the script
// itself as the daemon process instead of replacing it with sleep.
func writeFakeAgent(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "fake-agent.sh")
	script := "#!/bin/sh\nwhile true; do sleep 1; done\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	return path
}

func newOsSupervisor(t *testing.T) *Supervisor {
	t.Helper()

	supervisor, err := New(filepath.Join(t.TempDir(), "state"), afero.NewOsFs())
	require.NoError(t, err)

	return supervisor
}

func TestSupervisor_StartStopLeavesNoRunningProcess(t *testing.T) {
	ctx := context.Background()
	supervisor := newOsSupervisor(t)

	daemon := Daemon{
		ExecutablePath:   writeFakeAgent(t, t.TempDir()),
		Environ:          []string{"PATH=/usr/bin:/bin"},
		WorkingDirectory: t.TempDir(),
	}

	state, err := supervisor.Start(ctx, daemon)
	require.NoError(t, err)
	assert.NotZero(t, state.PID)
	assert.NotEmpty(t, state.RunID)

	status, err := supervisor.Status(ctx)
	require.NoError(t, err)
	require.True(t, status.Running)
	assert.Equal(t, state.PID, status.State.PID)

	stopped, err := supervisor.Stop(ctx, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, stopped)

	status, err = supervisor.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)

	alive, err := checkPIDAlive(state)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestSupervisor_StartWhileRunning(t *testing.T) {
	ctx := context.Background()
	supervisor := newOsSupervisor(t)

	daemon := Daemon{
		ExecutablePath:   writeFakeAgent(t, t.TempDir()),
		Environ:          []string{"PATH=/usr/bin:/bin"},
		WorkingDirectory: t.TempDir(),
	}

	_, err := supervisor.Start(ctx, daemon)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = supervisor.Stop(ctx, 10*time.Second)
	})

	_, err = supervisor.Start(ctx, daemon)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestSupervisor_RestartReplacesTheDaemon(t *testing.T) {
	ctx := context.Background()
	supervisor := newOsSupervisor(t)

	daemon := Daemon{
		ExecutablePath:   writeFakeAgent(t, t.TempDir()),
		Environ:          []string{"PATH=/usr/bin:/bin"},
		WorkingDirectory: t.TempDir(),
	}

	first, err := supervisor.Start(ctx, daemon)
	require.NoError(t, err)

	second, err := supervisor.Restart(ctx, daemon, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = supervisor.Stop(ctx, 10*time.Second)
	})

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.NotEqual(t, first.PID, second.PID)

	alive, err := checkPIDAlive(first)
	require.NoError(t, err)
	assert.False(t, alive)

	status, err := supervisor.Status(ctx)
	require.NoError(t, err)
	require.True(t, status.Running)
	assert.Equal(t, second.PID, status.State.PID)
}

func TestSupervisor_RestartWhenNotRunning(t *testing.T) {
	ctx := context.Background()
	supervisor := newOsSupervisor(t)

	daemon := Daemon{
		ExecutablePath:   writeFakeAgent(t, t.TempDir()),
		Environ:          []string{"PATH=/usr/bin:/bin"},
		WorkingDirectory: t.TempDir(),
	}

	state, err := supervisor.Restart(ctx, daemon, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = supervisor.Stop(ctx, 10*time.Second)
	})

	assert.NotZero(t, state.PID)
}

func TestSupervisor_StopWhenNotRunning(t *testing.T) {
	ctx := context.Background()
	supervisor := newOsSupervisor(t)

	stopped, err := supervisor.Stop(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, stopped)
}

func TestSupervisor_StatusCleansUpStaleState(t *testing.T) {
	ctx := context.Background()

	supervisor, err := New("/var/lib/jobbergate-agent", afero.NewMemMapFs())
	require.NoError(t, err)
	supervisor.checkAlive = func(State) (bool, error) {
		return false, nil
	}

	require.NoError(t, supervisor.writeState(State{RunID: "stale", PID: 999999}))

	status, err := supervisor.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)

	_, found, err := supervisor.readState()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSupervisor_StopEscalatesToKill(t *testing.T) {
	ctx := context.Background()

	supervisor, err := New("/var/lib/jobbergate-agent", afero.NewMemMapFs())
	require.NoError(t, err)

	var signals []syscall.Signal
	alive := true
	supervisor.signalProcess = func(pid int, sig syscall.Signal) error {
		signals = append(signals, sig)
		if sig == syscall.SIGKILL {
			alive = false
		}
		return nil
	}
	supervisor.checkAlive = func(State) (bool, error) {
		return alive, nil
	}

	require.NoError(t, supervisor.writeState(State{RunID: "stuck", PID: 4242}))

	stopped, err := supervisor.Stop(ctx, 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.Equal(t, []syscall.Signal{syscall.SIGTERM, syscall.SIGKILL}, signals)

	_, found, err := supervisor.readState()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSupervisor_RunPropagatesExitCode(t *testing.T) {
	ctx := context.Background()
	supervisor := newOsSupervisor(t)

	scriptPath := filepath.Join(t.TempDir(), "failing-agent.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\nexit 7\n"), 0755))

	daemon := Daemon{
		ExecutablePath:   scriptPath,
		Environ:          []string{"PATH=/usr/bin:/bin"},
		WorkingDirectory: t.TempDir(),
	}

	err := supervisor.Run(ctx, daemon)
	require.Error(t, err)

	var exitErr *DaemonExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 7, exitErr.ExitCode)
}

func TestSupervisor_RunSucceeds(t *testing.T) {
	ctx := context.Background()
	supervisor := newOsSupervisor(t)

	scriptPath := filepath.Join(t.TempDir(), "oneshot-agent.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\nexit 0\n"), 0755))

	daemon := Daemon{
		ExecutablePath:   scriptPath,
		Environ:          []string{"PATH=/usr/bin:/bin"},
		WorkingDirectory: t.TempDir(),
	}

	require.NoError(t, supervisor.Run(ctx, daemon))
}

func TestSupervisor_StartWritesDaemonLog(t *testing.T) {
	ctx := context.Background()
	supervisor := newOsSupervisor(t)

	scriptPath := filepath.Join(t.TempDir(), "chatty-agent.sh")
	script := "#!/bin/sh\necho agent-says-hello\nwhile true; do sleep 1; done\n"
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0755))

	daemon := Daemon{
		ExecutablePath:   scriptPath,
		Environ:          []string{"PATH=/usr/bin:/bin"},
		WorkingDirectory: t.TempDir(),
	}

	state, err := supervisor.Start(ctx, daemon)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = supervisor.Stop(ctx, 10*time.Second)
	})

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(state.LogPath)
		return err == nil && len(data) > 0
	}, 5*time.Second, 50*time.Millisecond)

	data, err := os.ReadFile(state.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "agent-says-hello")
}
