package agentctl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omnivector/jobbergate-agentctl/internal/pkg/config"
	"github.com/omnivector/jobbergate-agentctl/internal/pkg/supervisor"
)

// RunCmd runs the agent daemon in the foreground, blocking for its lifetime.
type RunCmd struct{}

func (command *RunCmd) Run(ctx context.Context, loader *config.Loader, sup *supervisor.Supervisor) error {
	daemon, err := resolveDaemon(ctx, loader)
	if err != nil {
		return err
	}

	slog.Debug("Configuration resolved.", slog.String("executable", daemon.ExecutablePath))

	return sup.Run(ctx, daemon)
}

// resolveDaemon loads and validates one configuration snapshot and turns it
// into a launch description. Every lifecycle command goes through this, so
// configuration problems always surface before a process is touched.
func resolveDaemon(ctx context.Context, loader *config.Loader) (supervisor.Daemon, error) {
	settings, _, err := loader.Load()
	if err != nil {
		return supervisor.Daemon{}, fmt.Errorf("load configuration: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return supervisor.Daemon{}, fmt.Errorf("validate configuration: %w", err)
	}

	daemon, err := supervisor.NewDaemon(ctx, settings)
	if err != nil {
		return supervisor.Daemon{}, fmt.Errorf("prepare daemon: %w", err)
	}

	return daemon, nil
}
