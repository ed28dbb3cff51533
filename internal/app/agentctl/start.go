package agentctl

import (
	"context"

	"github.com/omnivector/jobbergate-agentctl/internal/pkg/config"
	"github.com/omnivector/jobbergate-agentctl/internal/pkg/supervisor"
)

// StartCmd starts the agent daemon detached from the calling process.
type StartCmd struct{}

func (command *StartCmd) Run(ctx context.Context, loader *config.Loader, sup *supervisor.Supervisor) error {
	daemon, err := resolveDaemon(ctx, loader)
	if err != nil {
		return err
	}

	_, err = sup.Start(ctx, daemon)
	return err
}
