package agentctl

import (
	"context"
	"time"

	"github.com/omnivector/jobbergate-agentctl/internal/pkg/config"
	"github.com/omnivector/jobbergate-agentctl/internal/pkg/supervisor"
)

// RestartCmd stops the daemon and starts it again. The configuration is
// resolved once up front, so both halves of the restart see the same
// snapshot even if the file changes in between.
type RestartCmd struct {
	Grace time.Duration `default:"30s" help:"How long to wait after SIGTERM before killing the daemon."`
}

func (command *RestartCmd) Run(ctx context.Context, loader *config.Loader, sup *supervisor.Supervisor) error {
	daemon, err := resolveDaemon(ctx, loader)
	if err != nil {
		return err
	}

	_, err = sup.Restart(ctx, daemon, command.Grace)
	return err
}
