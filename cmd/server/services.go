package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/ai"
	"github.com/codebuildervaibhav/video-pipeline/internal/cleanup"
	"github.com/codebuildervaibhav/video-pipeline/internal/config"
	"github.com/codebuildervaibhav/video-pipeline/internal/download"
	"github.com/codebuildervaibhav/video-pipeline/internal/logging"
	"github.com/codebuildervaibhav/video-pipeline/internal/media"
	"github.com/codebuildervaibhav/video-pipeline/internal/pipeline"
	"github.com/codebuildervaibhav/video-pipeline/internal/queue"
	"github.com/codebuildervaibhav/video-pipeline/internal/storage"
	"github.com/codebuildervaibhav/video-pipeline/internal/transcription"
)

// services is the wired processing stack shared by serve and run
type services struct {
	registry *queue.Registry
	pool     *queue.WorkerPool
	db       *storage.TaskDB
	logger   zerolog.Logger
}

func newMediaEngine(cfg *config.Config) (*media.Executor, error) {
	return media.New(logging.WithComponent("media"), media.Options{
		FFmpegPath:     cfg.FFmpeg.FFmpegPath,
		FFprobePath:    cfg.FFmpeg.FFprobePath,
		Threads:        cfg.FFmpeg.Threads,
		VideoCodec:     cfg.FFmpeg.VideoCodec,
		Preset:         cfg.FFmpeg.Preset,
		CRF:            cfg.FFmpeg.CRF,
		AudioCodec:     cfg.FFmpeg.AudioCodec,
		DenoiseTimeout: time.Duration(cfg.FFmpeg.DenoiseTimeoutSeconds) * time.Second,
	})
}

// newServices wires the worker pool. Local sources are read only from the
// upload directory, download.local_roots and extraRoots.
func newServices(ctx context.Context, cfg *config.Config, extraRoots ...string) (*services, error) {
	logger := logging.WithComponent("server")

	if err := cleanup.EnsureDirs(cfg.Storage.TempDir, cfg.Storage.UploadDir, cfg.Storage.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create storage directories: %w", err)
	}

	engine, err := newMediaEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	// AI analyzer and transcriber
	var (
		analyzer    pipeline.Analyzer
		transcriber pipeline.Transcriber
		aiService   *ai.Service
	)
	if cfg.AI.APIKey != "" {
		client, err := ai.NewClient(ai.ClientConfig{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			Timeout:     time.Duration(cfg.AI.TimeoutMinutes) * time.Minute,
			MaxRetries:  cfg.AI.MaxRetries,
			Temperature: cfg.AI.Temperature,
		}, logging.WithComponent("ai"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AI client: %w", err)
		}
		aiService = ai.NewService(client, logging.WithComponent("ai"))
		analyzer = aiService
	} else {
		logger.Warn().Msg("no AI API key configured, AI stages will be skipped")
	}

	if cfg.Transcription.Backend == config.TranscriberWhisper || aiService == nil {
		transcriber = transcription.NewWhisperTranscriber(
			cfg.Transcription.WhisperModel,
			cfg.Transcription.Language,
			cfg.Storage.TempDir,
			logging.WithComponent("transcription"),
		)
	} else {
		transcriber = aiService
	}

	// Google Drive client (optional)
	var uploader storage.Uploader
	if cfg.GoogleDrive.Enabled {
		driveClient, err := storage.NewDriveClient(ctx,
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Google Drive not available, results will only be saved locally")
		} else {
			uploader = driveClient
			logger.Info().Str("folder", cfg.GoogleDrive.FolderName).Msg("Google Drive integration enabled")
		}
	}

	db, err := storage.NewTaskDB(cfg.Storage.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	downloader := download.New(download.Config{
		Timeout:        time.Duration(cfg.Download.TimeoutMinutes) * time.Minute,
		MaxAttempts:    cfg.Download.MaxAttempts,
		YtDlpPath:      cfg.Download.YtDlpPath,
		VideoSiteHosts: cfg.Download.VideoSiteHosts,
		Browser:        cfg.Download.Browser,
		BrowserTimeout: time.Duration(cfg.Download.BrowserTimeoutSeconds) * time.Second,
		LocalRoots:     localRoots(cfg, extraRoots),
	}, logging.WithComponent("download"))

	registry := queue.NewRegistry()
	publisher := storage.NewPublisher(storage.NewLocalStorage(cfg.Storage.OutputDir), uploader, logging.WithComponent("storage"))

	style := cfg.Captions.DefaultStyle
	pipe, err := pipeline.New(pipeline.Deps{
		Fetcher:     downloader,
		Media:       engine,
		Transcriber: transcriber,
		Analyzer:    analyzer,
		Publisher:   publisher,
		Tracker:     registry,
	}, pipeline.Options{
		WorkDir:            cfg.Storage.TempDir,
		Crossfade:          cfg.FFmpeg.Crossfade,
		SilenceNoiseDB:     cfg.FFmpeg.SilenceNoiseDB,
		SilenceMinDuration: cfg.FFmpeg.SilenceMinDuration,
		DefaultStyle:       &style,
	}, logging.WithComponent("pipeline"))
	if err != nil {
		db.Close()
		return nil, err
	}

	pool := queue.NewWorkerPool(cfg.Workers.Count, registry, pipe, db, logging.WithComponent("queue"))

	return &services{
		registry: registry,
		pool:     pool,
		db:       db,
		logger:   logger,
	}, nil
}

// Close waits for running tasks up to timeout and closes the database
func (s *services) Close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.pool.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("tasks cancelled at shutdown")
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close database")
	}
}

func localRoots(cfg *config.Config, extra []string) []string {
	roots := append([]string{cfg.Storage.UploadDir}, cfg.Download.LocalRoots...)
	return append(roots, extra...)
}
