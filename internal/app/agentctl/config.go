package agentctl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/omnivector/jobbergate-agentctl/internal/pkg/config"
)

// ConfigCmd groups the configuration inspection commands.
type ConfigCmd struct {
	List     ConfigListCmd     `cmd:"" help:"List every option with its effective value, default, and source."`
	Render   ConfigRenderCmd   `cmd:"" help:"Print the environment variables the daemon would receive."`
	Validate ConfigValidateCmd `cmd:"" help:"Resolve and validate the configuration without touching the daemon."`
}

// ConfigListCmd lists the resolved configuration options.
type ConfigListCmd struct {
	Reveal bool `help:"Show secret values instead of masking them."`
	JSON   bool `help:"Output the option table as JSON."`
}

func (command *ConfigListCmd) Run(ctx context.Context, loader *config.Loader) error {
	settings, sources, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	report := settings.Report(sources, command.Reveal)

	if command.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("encode option report: %w", err)
		}
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Option", "Value", "Default", "Source")
	for _, optionValue := range report {
		table.Append(optionValue.Name, optionValue.Value, optionValue.Default, string(optionValue.Source))
	}
	table.Render()

	return nil
}

// ConfigRenderCmd prints the daemon environment block, one variable per
// line, in the form the agent process would receive it.
type ConfigRenderCmd struct {
	Reveal bool `help:"Show secret values instead of masking them."`
}

func (command *ConfigRenderCmd) Run(ctx context.Context, loader *config.Loader) error {
	settings, sources, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	for _, optionValue := range settings.Report(sources, command.Reveal) {
		if !optionValue.Set {
			continue
		}

		fmt.Printf("%s=%s\n", optionValue.EnvVar, optionValue.Value)
	}

	return nil
}

// ConfigValidateCmd resolves the configuration and runs the joint validity
// checks, without starting anything.
type ConfigValidateCmd struct{}

func (command *ConfigValidateCmd) Run(ctx context.Context, loader *config.Loader) error {
	settings, _, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}

	slog.Info("Configuration is valid.")

	return nil
}
