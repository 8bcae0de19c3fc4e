package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/video-pipeline/internal/cleanup"
	"github.com/codebuildervaibhav/video-pipeline/internal/handlers"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			svc, err := newServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			log := svc.logger

			// Cleanup scheduler
			scheduler := cleanup.NewScheduler(cleanup.Config{
				Dirs:          []string{cfg.Storage.TempDir, cfg.Storage.UploadDir},
				Interval:      time.Duration(cfg.Cleanup.IntervalMinutes) * time.Minute,
				MaxAge:        time.Duration(cfg.Cleanup.MaxAgeHours) * time.Hour,
				TaskRetention: time.Duration(cfg.Cleanup.TaskRetentionHours) * time.Hour,
			}, svc.registry, log)
			scheduler.Start()
			defer scheduler.Stop()

			// Create Fiber app
			app := fiber.New(fiber.Config{
				BodyLimit:             cfg.Limits.MaxFileSizeMB * 1024 * 1024,
				DisableStartupMessage: true,
			})

			// Middleware
			app.Use(recover.New())
			app.Use(logger.New(logger.Config{Output: io.MultiWriter(os.Stdout, ctx.logBuffer)}))
			app.Use(cors.New(cors.Config{
				AllowOrigins: "*",
				AllowHeaders: "Origin, Content-Type, Accept",
			}))

			tasks := handlers.NewTaskHandler(svc.pool, svc.registry, svc.db, log)
			routes := &handlers.Routes{
				Tasks:   tasks,
				Upload:  handlers.NewUploadHandler(svc.pool, cfg.Storage.UploadDir, cfg.Limits.MaxFileSizeMB, log),
				Logs:    ctx.logBuffer,
				Running: svc.pool,
			}
			routes.Register(app)

			// Graceful shutdown
			sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-sigCtx.Done()
				log.Info().Msg("shutting down gracefully")
				if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
					log.Warn().Err(err).Msg("http shutdown incomplete")
				}
			}()

			log.Info().
				Str("addr", cfg.Addr()).
				Int("workers", cfg.Workers.Count).
				Msg("server starting")
			log.Info().Msg("endpoints: POST /process_video, GET /task_status/:id, POST /upload, GET /tasks, GET /tasks/:id/timeline, GET /ws/tasks/:id, GET /logs, GET /health")

			listenErr := app.Listen(cfg.Addr())

			svc.Close(cfg.ShutdownTimeout())
			log.Info().Msg("server stopped")
			return listenErr
		},
	}
}
