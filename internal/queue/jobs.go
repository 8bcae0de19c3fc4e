package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Job is one submitted video processing request
type Job struct {
	ID        string
	VideoURL  string
	Recipe    types.Recipe
	CreatedAt time.Time
}

// NewJob creates a job with a fresh task id
func NewJob(videoURL string, recipe types.Recipe) *Job {
	return &Job{
		ID:        uuid.New().String(),
		VideoURL:  videoURL,
		Recipe:    recipe,
		CreatedAt: time.Now(),
	}
}
