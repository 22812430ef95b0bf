/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/framecore/engine"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/testbed"
)

type flags struct {
	config   string
	backend  string
	frames   uint64
	logLevel string
	assetDir string
}

func main() {
	f := &flags{}
	root := &cobra.Command{
		Use:           "framecore",
		Short:         "Runs the framecore testbed",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}
	root.Flags().StringVarP(&f.config, "config", "c", "", "path to a TOML application config")
	root.Flags().StringVar(&f.backend, "backend", "", "renderer backend, vulkan or software")
	root.Flags().Uint64Var(&f.frames, "frames", 0, "stop after this many frames")
	root.Flags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	root.Flags().StringVar(&f.assetDir, "assets", "", "asset directory to watch")

	if err := root.Execute(); err != nil {
		core.LogFatal("%s", err)
	}
}

func loadConfig(cmd *cobra.Command, f *flags) (*engine.ApplicationConfig, error) {
	config := engine.DefaultApplicationConfig()
	if f.config != "" {
		c, err := engine.LoadApplicationConfig(f.config)
		if err != nil {
			return nil, err
		}
		config = c
	}
	// flags win over the file
	if cmd.Flags().Changed("backend") {
		config.Renderer.Backend = renderer.BackendType(f.backend)
	}
	if cmd.Flags().Changed("frames") {
		config.MaxFrames = f.frames
	}
	if cmd.Flags().Changed("log-level") {
		config.LogLevel = f.logLevel
	}
	if cmd.Flags().Changed("assets") {
		config.AssetDir = f.assetDir
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func run(cmd *cobra.Command, f *flags) error {
	config, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	tb := testbed.NewTestGame(config)
	e, err := engine.New(tb.Game)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		return errors.Join(err, e.Shutdown())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown failed: %s", err)
	}
	if runErr != nil {
		return runErr
	}
	core.LogInfo("stopped after %d frames", e.Ticks())
	return nil
}
