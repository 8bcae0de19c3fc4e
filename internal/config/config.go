// Package config loads the service configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Transcription backends
const (
	TranscriberAI      = "ai"
	TranscriberWhisper = "whisper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Workers       WorkersConfig       `yaml:"workers"`
	Storage       StorageConfig       `yaml:"storage"`
	Cleanup       CleanupConfig       `yaml:"cleanup"`
	GoogleDrive   GoogleDriveConfig   `yaml:"google_drive"`
	FFmpeg        FFmpegConfig        `yaml:"ffmpeg"`
	AI            AIConfig            `yaml:"ai"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Download      DownloadConfig      `yaml:"download"`
	Logging       LoggingConfig       `yaml:"logging"`
	Captions      CaptionsConfig      `yaml:"captions"`
	Limits        LimitsConfig        `yaml:"limits"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeoutSeconds bounds how long running tasks may finish
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
}

type WorkersConfig struct {
	// Count bounds concurrent tasks; 0 is unbounded
	Count int `yaml:"count"`
}

type StorageConfig struct {
	TempDir   string `yaml:"temp_dir"`
	UploadDir string `yaml:"upload_dir"`
	OutputDir string `yaml:"output_dir"`
	Database  string `yaml:"database"`
}

type CleanupConfig struct {
	IntervalMinutes    int `yaml:"interval_minutes"`
	MaxAgeHours        int `yaml:"max_age_hours"`
	TaskRetentionHours int `yaml:"task_retention_hours"`
}

type GoogleDriveConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderName      string `yaml:"folder_name"`
}

type FFmpegConfig struct {
	FFmpegPath            string  `yaml:"ffmpeg_path"`
	FFprobePath           string  `yaml:"ffprobe_path"`
	Threads               int     `yaml:"threads"`
	VideoCodec            string  `yaml:"video_codec"`
	Preset                string  `yaml:"preset"`
	CRF                   int     `yaml:"crf"`
	AudioCodec            string  `yaml:"audio_codec"`
	DenoiseTimeoutSeconds int     `yaml:"denoise_timeout_seconds"`
	SilenceNoiseDB        float64 `yaml:"silence_noise_db"`
	SilenceMinDuration    float64 `yaml:"silence_min_duration"`
	// Crossfade between kept segments in seconds; 0 joins with concat
	Crossfade float64 `yaml:"crossfade"`
}

type AIConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	TimeoutMinutes int     `yaml:"timeout_minutes"`
	MaxRetries     int     `yaml:"max_retries"`
	Temperature    float64 `yaml:"temperature"`
}

type TranscriptionConfig struct {
	Backend      string `yaml:"backend"`
	WhisperModel string `yaml:"whisper_model"`
	Language     string `yaml:"language"`
}

type DownloadConfig struct {
	TimeoutMinutes        int      `yaml:"timeout_minutes"`
	MaxAttempts           int      `yaml:"max_attempts"`
	YtDlpPath             string   `yaml:"ytdlp_path"`
	Browser               bool     `yaml:"browser"`
	BrowserTimeoutSeconds int      `yaml:"browser_timeout_seconds"`
	VideoSiteHosts        []string `yaml:"video_site_hosts"`
	// LocalRoots are read as local sources besides the upload directory
	LocalRoots []string `yaml:"local_roots"`
}

type LoggingConfig struct {
	Verbose     bool `yaml:"verbose"`
	BufferLines int  `yaml:"buffer_lines"`
}

type CaptionsConfig struct {
	DefaultStyle types.StyleConfig `yaml:"default_style"`
}

type LimitsConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

// Load reads configuration from file over the defaults. An empty path
// searches the usual locations; no file at all yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8000,
			ShutdownTimeoutSeconds: 30,
		},
		Workers: WorkersConfig{Count: 2},
		Storage: StorageConfig{
			TempDir:   "./temp",
			UploadDir: "./uploads",
			OutputDir: "./outputs",
			Database:  "./outputs/tasks.db",
		},
		Cleanup: CleanupConfig{
			IntervalMinutes:    30,
			MaxAgeHours:        24,
			TaskRetentionHours: 24,
		},
		GoogleDrive: GoogleDriveConfig{
			CredentialsFile: "./config/credentials.json",
			TokenFile:       "./config/token.json",
			FolderName:      "Video Pipeline",
		},
		FFmpeg: FFmpegConfig{
			FFmpegPath:            "ffmpeg",
			FFprobePath:           "ffprobe",
			VideoCodec:            "libx264",
			Preset:                "medium",
			CRF:                   23,
			AudioCodec:            "aac",
			DenoiseTimeoutSeconds: 300,
			SilenceNoiseDB:        -50,
			SilenceMinDuration:    1,
			Crossfade:             0.05,
		},
		AI: AIConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:          "gemini-2.5-pro",
			TimeoutMinutes: 20,
			MaxRetries:     2,
		},
		Transcription: TranscriptionConfig{
			Backend:      TranscriberAI,
			WhisperModel: "small",
		},
		Download: DownloadConfig{
			TimeoutMinutes:        30,
			MaxAttempts:           3,
			YtDlpPath:             "yt-dlp",
			BrowserTimeoutSeconds: 60,
		},
		Logging: LoggingConfig{BufferLines: 1000},
		Captions: CaptionsConfig{
			DefaultStyle: *types.DefaultRecipe().ASSStyle,
		},
		Limits: LimitsConfig{MaxFileSizeMB: 2048},
	}
}

// applyEnv fills secrets from the environment
func (c *Config) applyEnv() {
	if c.AI.APIKey == "" {
		for _, key := range []string{"VIDEO_PIPELINE_AI_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"} {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				c.AI.APIKey = v
				break
			}
		}
	}
	if v := os.Getenv("VIDEO_PIPELINE_AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("VIDEO_PIPELINE_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Workers.Count < 0:
		return fmt.Errorf("workers.count must not be negative")
	case c.FFmpeg.Crossfade < 0:
		return fmt.Errorf("ffmpeg.crossfade must not be negative")
	case c.Transcription.Backend != TranscriberAI && c.Transcription.Backend != TranscriberWhisper:
		return fmt.Errorf("transcription.backend must be %q or %q", TranscriberAI, TranscriberWhisper)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ShutdownTimeout returns the grace period for running tasks
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func findConfigFile() string {
	candidates := []string{
		"./config/config.yaml",
		"./config.yaml",
		"./config.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".video-pipeline", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
