package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/omnivector/jobbergate-agentctl/internal/app/agentctl"
	"github.com/omnivector/jobbergate-agentctl/internal/pkg/cli"
	"github.com/omnivector/jobbergate-agentctl/internal/pkg/config"
	"github.com/omnivector/jobbergate-agentctl/internal/pkg/supervisor"
)

func main() {
	var command agentctl.Command

	kctx := kong.Parse(&command,
		kong.Name("jobbergate-agentctl"),
		kong.Description("Configuration and lifecycle wrapper for the Jobbergate agent daemon."),
		kong.UsageOnError(),
	)

	kctx.FatalIfErrorf(cli.SetupDefaultLogger(command.Log))

	if command.Paths.EnvFile != "" {
		if err := godotenv.Load(command.Paths.EnvFile); err != nil {
			kctx.FatalIfErrorf(fmt.Errorf("load env file: %w", err))
		}
	}

	configPath, err := cli.ResolveConfigPath(command.Paths.Config)
	kctx.FatalIfErrorf(err)

	stateDir, err := cli.ResolveStateDir(command.Paths.StateDir)
	kctx.FatalIfErrorf(err)

	fs := afero.NewOsFs()

	loader := config.NewLoader(fs, configPath)

	sup, err := supervisor.New(stateDir, fs)
	kctx.FatalIfErrorf(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(loader)
	kctx.Bind(sup)

	err = kctx.Run()

	// The wrapper owns no exit code taxonomy: a foreground daemon's code is
	// propagated untouched.
	var exitErr *supervisor.DaemonExitError
	if errors.As(err, &exitErr) {
		cancel()
		os.Exit(exitErr.ExitCode)
	}

	kctx.FatalIfErrorf(err)
}
