package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VIDEO_PIPELINE_AI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8000 || cfg.FFmpeg.Crossfade != 0.05 || cfg.AI.Model != "gemini-2.5-pro" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Captions.DefaultStyle.WordsPerLine != 10 || cfg.Captions.DefaultStyle.Position != "Bottom" {
		t.Fatalf("unexpected default style %+v", cfg.Captions.DefaultStyle)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
workers:
  count: 0
ffmpeg:
  crossfade: 0
captions:
  default_style:
    position: Top
    fontsize: 48
transcription:
  backend: whisper
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Workers.Count != 0 || cfg.FFmpeg.Crossfade != 0 {
		t.Fatalf("overrides not applied %+v", cfg)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.FFmpeg.Preset != "medium" {
		t.Fatal("defaults lost for unset keys")
	}
	style := cfg.Captions.DefaultStyle
	if style.Position != "Top" || style.Fontsize.Or("") != "48" || style.Fontname != "Arial" {
		t.Fatalf("unexpected style %+v", style)
	}
	if cfg.Transcription.Backend != TranscriberWhisper {
		t.Fatalf("unexpected backend %q", cfg.Transcription.Backend)
	}
}

func TestLoad_EnvAPIKey(t *testing.T) {
	t.Setenv("VIDEO_PIPELINE_AI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.APIKey != "gemini-key" {
		t.Fatalf("expected GEMINI_API_KEY to win, got %q", cfg.AI.APIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"port":      "server:\n  port: 0\n",
		"workers":   "workers:\n  count: -1\n",
		"crossfade": "ffmpeg:\n  crossfade: -0.5\n",
		"backend":   "transcription:\n  backend: carrier-pigeon\n",
		"yaml":      "server: [",
	}
	for name, data := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		os.WriteFile(path, []byte(data), 0644)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Server.Port = 7000
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "port: 7000") {
		t.Fatalf("unexpected yaml:\n%s", data)
	}
	loaded, err := Load(path)
	if err != nil || loaded.Server.Port != 7000 {
		t.Fatalf("reload failed: %v", err)
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Fatalf("unexpected addr %s", cfg.Addr())
	}
}
