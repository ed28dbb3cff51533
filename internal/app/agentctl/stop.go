package agentctl

import (
	"context"
	"time"

	"github.com/omnivector/jobbergate-agentctl/internal/pkg/supervisor"
)

// StopCmd stops the background agent daemon. Stopping a daemon that is not
// running is a no-op.
type StopCmd struct {
	Grace time.Duration `default:"30s" help:"How long to wait after SIGTERM before killing the daemon."`
}

func (command *StopCmd) Run(ctx context.Context, sup *supervisor.Supervisor) error {
	_, err := sup.Stop(ctx, command.Grace)
	return err
}
