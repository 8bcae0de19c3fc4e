package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/pipeline"
)

// Uploader copies finished files to remote storage
type Uploader interface {
	UploadFiles(ctx context.Context, paths []string) (string, error)
}

// Publisher saves artifacts locally and mirrors them to an optional
// Uploader. A failed upload is logged and the local copy stands.
type Publisher struct {
	local       *LocalStorage
	uploader    Uploader
	maxAttempts int
	retryDelay  time.Duration
	logger      zerolog.Logger
}

// NewPublisher creates a publisher. uploader may be nil.
func NewPublisher(local *LocalStorage, uploader Uploader, logger zerolog.Logger) *Publisher {
	return &Publisher{
		local:       local,
		uploader:    uploader,
		maxAttempts: 3,
		retryDelay:  time.Second,
		logger:      logger.With().Str("component", "publisher").Logger(),
	}
}

// Publish implements pipeline.Publisher
func (p *Publisher) Publish(ctx context.Context, a pipeline.Artifacts) (pipeline.Artifacts, error) {
	saved, err := p.local.SaveArtifacts(a)
	if err != nil {
		return a, err
	}
	log := p.logger.With().Str("task_id", a.TaskID).Logger()
	log.Info().Str("video", saved.Video).Msg("artifacts saved")

	if p.uploader == nil {
		return saved, nil
	}

	var paths []string
	for _, f := range []string{saved.Video, saved.SRT, saved.Timeline} {
		if f != "" {
			paths = append(paths, f)
		}
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		url, err := p.uploader.UploadFiles(ctx, paths)
		if err == nil {
			saved.RemoteURL = url
			log.Info().Str("url", url).Msg("artifacts uploaded to Google Drive")
			return saved, nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", p.maxAttempts).Msg("Google Drive upload failed")
		if attempt < p.maxAttempts {
			select {
			case <-ctx.Done():
				return saved, nil
			case <-time.After(time.Duration(attempt*attempt) * p.retryDelay):
			}
		}
	}

	log.Warn().Msg("Google Drive upload failed after retries, continuing with local save only")
	return saved, nil
}
