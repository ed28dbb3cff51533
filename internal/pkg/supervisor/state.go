package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

const (
	stateFileName = "agent-state.yaml"
	logFileName   = "agent.log"
)

// State records a single supervised daemon instance. It exists exactly as
// long as the wrapper believes the daemon is running; a state file whose pid
// is gone is stale and gets cleaned up on the next observation.
type State struct {
	// RunID uniquely identifies one start of the daemon.
	RunID string `json:"run-id"`

	// PID is the process id of the detached daemon.
	PID int `json:"pid"`

	// StartedAt is when the daemon was spawned.
	StartedAt time.Time `json:"started-at"`

	// ExecutablePath is the agent executable the daemon was started from.
	ExecutablePath string `json:"executable-path"`

	// LogPath is the file receiving the daemon's stdout and stderr.
	LogPath string `json:"log-path"`
}

// Uptime returns how long the daemon has been running.
func (state State) Uptime(now time.Time) time.Duration {
	return now.Sub(state.StartedAt)
}

func (supervisor *Supervisor) statePath() string {
	return filepath.Join(supervisor.stateDir, stateFileName)
}

func (supervisor *Supervisor) readState() (State, bool, error) {
	data, err := afero.ReadFile(supervisor.fs, supervisor.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("unmarshal state file: %w", err)
	}

	return state, true, nil
}

// writeState persists the state file atomically: write to a temp file, then
// rename over the target.
func (supervisor *Supervisor) writeState(state State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	statePath := supervisor.statePath()
	tmpPath := statePath + "~"

	if err := afero.WriteFile(supervisor.fs, tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := supervisor.fs.Rename(tmpPath, statePath); err != nil {
		_ = supervisor.fs.Remove(tmpPath)
		return fmt.Errorf("rename temp state file: %w", err)
	}

	return nil
}

func (supervisor *Supervisor) removeState() error {
	if err := supervisor.fs.Remove(supervisor.statePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}

	return nil
}
