package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/codebuildervaibhav/video-pipeline/internal/pipeline"
)

// LocalStorage keeps finished artifacts under a dated output tree
type LocalStorage struct {
	outputDir string
	now       func() time.Time
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		now:       time.Now,
	}
}

// OutputDir returns the root of the output tree
func (ls *LocalStorage) OutputDir() string { return ls.outputDir }

// SaveArtifacts moves a task's artifacts out of its workspace into
// outputs/2025/01/23/ and writes a _meta.json with the final result. The
// returned artifacts carry the new paths.
func (ls *LocalStorage) SaveArtifacts(a pipeline.Artifacts) (pipeline.Artifacts, error) {
	now := ls.now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return a, fmt.Errorf("failed to create date directory: %w", err)
	}

	// 20250123_143022_interview_3f2a9c1d
	baseFilename := fmt.Sprintf("%s_%s_%s", now.Format("20060102_150405"), sanitizeFilename(requestName(a.SourceURL)), shortID(a.TaskID))

	out := a
	moves := []struct {
		src  string
		dst  *string
		name string
	}{
		{a.Video, &out.Video, baseFilename + strings.ToLower(filepath.Ext(a.Video))},
		{a.SRT, &out.SRT, baseFilename + ".srt"},
		{a.Timeline, &out.Timeline, baseFilename + "_timeline.xml"},
	}
	for _, m := range moves {
		if m.src == "" {
			continue
		}
		dst := filepath.Join(dateDir, m.name)
		if err := moveFile(m.src, dst); err != nil {
			return a, fmt.Errorf("failed to save %s: %w", filepath.Base(m.src), err)
		}
		*m.dst = dst
	}

	if a.Result != nil {
		res := *a.Result
		res.FinalVideoPath = out.Video
		res.SRTPath = out.SRT
		res.TimelinePath = out.Timeline

		metadata := map[string]interface{}{
			"task_id":    a.TaskID,
			"video_url":  a.SourceURL,
			"created_at": now,
			"result":     res,
		}
		metaJSON, err := json.MarshalIndent(metadata, "", "  ")
		if err != nil {
			return a, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dateDir, baseFilename+"_meta.json"), metaJSON, 0644); err != nil {
			return a, fmt.Errorf("failed to save metadata: %w", err)
		}
	}

	return out, nil
}

// moveFile renames src to dst, copying when they are on different devices
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// requestName derives a readable name from a source locator
func requestName(locator string) string {
	name := locator
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" {
		name = u.Path
	}
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if name == "" || name == "." || name == "/" {
		return "video"
	}
	return name
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var invalidFilenameChars = regexp.MustCompile(`[/\\:*?"<>|\s]+`)

// sanitizeFilename removes invalid characters from filename
func sanitizeFilename(name string) string {
	result := strings.Trim(invalidFilenameChars.ReplaceAllString(name, "_"), "_.")
	if len(result) > 100 {
		result = result[:100]
	}
	if result == "" {
		return "untitled"
	}
	return result
}
