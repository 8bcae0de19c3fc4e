package main

import (
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video-pipeline/internal/config"
	"github.com/codebuildervaibhav/video-pipeline/internal/logging"
)

type commandContext struct {
	configFlag  string
	verboseFlag bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logBuffer *logging.LogBuffer
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "video-pipeline",
		Short:         "Automated video post-production service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load() // best-effort: load .env if present

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ctx.logBuffer = logging.NewLogBuffer(cfg.Logging.BufferLines)
			logging.Init(ctx.verboseFlag || cfg.Logging.Verbose, ctx.logBuffer)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newTimelineCommand(ctx))
	rootCmd.AddCommand(newCaptionsCommand(ctx))
	rootCmd.AddCommand(newClipCommand(ctx))
	rootCmd.AddCommand(newDriveAuthCommand(ctx))

	return rootCmd
}
