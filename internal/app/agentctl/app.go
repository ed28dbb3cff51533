package agentctl

import "github.com/omnivector/jobbergate-agentctl/internal/pkg/cli"

// Command is the root of the jobbergate-agentctl command tree.
type Command struct {
	Log   cli.LogConfig  `embed:"" prefix:"log-"`
	Paths cli.PathConfig `embed:""`

	Run     RunCmd     `cmd:"" help:"Run the agent daemon in the foreground."`
	Start   StartCmd   `cmd:"" help:"Start the agent daemon in the background."`
	Stop    StopCmd    `cmd:"" help:"Stop the background agent daemon."`
	Restart RestartCmd `cmd:"" help:"Restart the background agent daemon with a fresh configuration snapshot."`
	Status  StatusCmd  `cmd:"" help:"Show whether the agent daemon is running."`
	Config  ConfigCmd  `cmd:"" help:"Inspect the resolved agent configuration."`
}
