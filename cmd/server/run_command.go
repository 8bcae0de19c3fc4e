package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video-pipeline/internal/handlers"
	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

func loadRecipe(path string) (types.Recipe, error) {
	if path == "" {
		return types.DefaultRecipe(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Recipe{}, fmt.Errorf("read recipe: %w", err)
	}
	recipe, err := handlers.ParseRecipe(data)
	if err != nil {
		return types.Recipe{}, fmt.Errorf("parse recipe %s: %w", path, err)
	}
	return recipe, nil
}

// localSourceDir is the directory of a local file named on the command
// line, so the operator can process it without listing it in local_roots
func localSourceDir(locator string) []string {
	path := strings.TrimPrefix(locator, "file://")
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	return []string{filepath.Dir(path)}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var recipePath string

	cmd := &cobra.Command{
		Use:   "run <video_url>",
		Short: "Process one video in the foreground and print the final task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			recipe, err := loadRecipe(recipePath)
			if err != nil {
				return err
			}

			svc, err := newServices(cmd.Context(), cfg, localSourceDir(args[0])...)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			id := svc.pool.Submit(args[0], recipe)
			log := svc.logger.With().Str("task_id", id).Logger()

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()

			lastStatus := ""
		wait:
			for {
				select {
				case <-sigCtx.Done():
					log.Warn().Msg("interrupted, cancelling task")
					break wait
				case <-ticker.C:
					task, ok := svc.registry.Get(id)
					if !ok {
						break wait
					}
					if task.Status != lastStatus {
						lastStatus = task.Status
						log.Info().Str("status", task.Status).Int("progress", task.Progress).Msg(task.Message)
					}
					if types.IsTerminal(task.Status) {
						break wait
					}
				}
			}

			timeout := cfg.ShutdownTimeout()
			if sigCtx.Err() != nil {
				timeout = 0
			}
			svc.Close(timeout)

			task, ok := svc.registry.Get(id)
			if !ok {
				return fmt.Errorf("task %s disappeared", id)
			}
			out, err := json.MarshalIndent(task, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if task.Status != types.StatusCompleted {
				return fmt.Errorf("task %s did not complete: %s", id, task.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&recipePath, "recipe", "r", "", "JSON recipe file (default recipe when omitted)")
	return cmd
}
