package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/omnivector/jobbergate-agentctl/internal/pkg/config"
	"github.com/omnivector/jobbergate-agentctl/internal/pkg/process"
)

const envAgentExecutable = "JOBBERGATE_AGENT_EXECUTABLE"

var defaultExecutableCandidates = []string{"jobbergate-agent"}

// Daemon is a fully resolved launch description for the agent process. It is
// built once from a configuration snapshot, so stop and start halves of a
// restart always see identical values.
type Daemon struct {
	// ExecutablePath is the absolute path of the agent executable.
	ExecutablePath string

	// Environ is the complete environment handed to the daemon.
	Environ []string

	// WorkingDirectory is where the daemon runs; the agent's cache dir.
	WorkingDirectory string
}

// NewDaemon resolves the agent executable and renders the daemon environment
// from the settings snapshot.
func NewDaemon(ctx context.Context, settings config.Settings) (Daemon, error) {
	executablePath, err := locateAgentExecutable(ctx)
	if err != nil {
		return Daemon{}, err
	}

	// The agent installs as <install>/bin/jobbergate-agent with bundled
	// libraries in <install>/lib.
	installDir := filepath.Dir(filepath.Dir(executablePath))

	if err := os.MkdirAll(settings.CacheDir, 0750); err != nil {
		return Daemon{}, fmt.Errorf("create cache dir: %w", err)
	}

	return Daemon{
		ExecutablePath:   executablePath,
		Environ:          settings.Environ(os.Environ(), installDir),
		WorkingDirectory: settings.CacheDir,
	}, nil
}

// locateAgentExecutable resolves the agent executable from the
// JOBBERGATE_AGENT_EXECUTABLE override or from PATH.
func locateAgentExecutable(ctx context.Context) (string, error) {
	if envPath := os.Getenv(envAgentExecutable); envPath != "" {
		absPath, err := filepath.Abs(envPath)
		if err != nil {
			return "", fmt.Errorf("resolve %s path: %w", envAgentExecutable, err)
		}

		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("executable from %s not found: %w", envAgentExecutable, err)
		}

		return absPath, nil
	}

	path, err := process.LookupExecutable(ctx, defaultExecutableCandidates)
	if err != nil {
		return "", fmt.Errorf("lookup agent executable: %w", err)
	}

	return path, nil
}
