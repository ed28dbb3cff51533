package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	envConfigPath = "JOBBERGATE_AGENT_CONFIG"
	envStateDir   = "JOBBERGATE_AGENT_STATE_DIR"

	defaultConfigPath = "~/.config/jobbergate-agent/agent.yaml"
	defaultStateDir   = "~/.local/state/jobbergate-agent"
)

// PathConfig carries the filesystem flags shared by every command.
type PathConfig struct {
	Config   string `help:"Agent configuration file. Defaults to ~/.config/jobbergate-agent/agent.yaml."`
	StateDir string `help:"Directory for supervisor state and daemon logs. Defaults to ~/.local/state/jobbergate-agent."`
	EnvFile  string `help:"Optional dotenv file loaded before the configuration is resolved."`
}

// ResolveConfigPath resolves the agent configuration file path from the
// override flag, the JOBBERGATE_AGENT_CONFIG environment variable, or the
// built-in default, in that order.
func ResolveConfigPath(override string) (string, error) {
	path := override
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path == "" {
		path = defaultConfigPath
	}

	return expandPath(path, "config")
}

// ResolveStateDir resolves the supervisor state directory from the override
// flag, the JOBBERGATE_AGENT_STATE_DIR environment variable, or the built-in
// default, in that order.
func ResolveStateDir(override string) (string, error) {
	dir := override
	if dir == "" {
		dir = os.Getenv(envStateDir)
	}
	if dir == "" {
		dir = defaultStateDir
	}

	return expandPath(dir, "state dir")
}

func expandPath(path string, label string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %s path: %w", label, err)
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve absolute %s path: %w", label, err)
	}

	return abs, nil
}
