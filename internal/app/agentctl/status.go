package agentctl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/omnivector/jobbergate-agentctl/internal/pkg/supervisor"
)

// StatusOutput is the JSON payload for the status command.
type StatusOutput struct {
	Running   bool   `json:"running"`
	PID       int    `json:"pid,omitempty"`
	RunID     string `json:"runId,omitempty"`
	StartedAt string `json:"startedAt,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
	LogPath   string `json:"logPath,omitempty"`
}

// StatusCmd reports whether the agent daemon is running.
type StatusCmd struct {
	JSON bool `help:"Output status as JSON."`
}

func (command *StatusCmd) Run(ctx context.Context, sup *supervisor.Supervisor) error {
	status, err := sup.Status(ctx)
	if err != nil {
		return fmt.Errorf("get agent status: %w", err)
	}

	output := StatusOutput{Running: status.Running}
	if status.Running {
		output.PID = status.State.PID
		output.RunID = status.State.RunID
		output.StartedAt = status.State.StartedAt.Format(time.RFC3339)
		output.Uptime = status.State.Uptime(time.Now().UTC()).Round(time.Second).String()
		output.LogPath = status.State.LogPath
	}

	if command.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			return fmt.Errorf("encode status output: %w", err)
		}
		return nil
	}

	if !status.Running {
		fmt.Println("Agent is not running")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Status", "PID", "Run ID", "Started At", "Uptime", "Log")
	table.Append(
		"running",
		fmt.Sprintf("%d", output.PID),
		output.RunID,
		output.StartedAt,
		output.Uptime,
		output.LogPath,
	)
	table.Render()

	return nil
}
