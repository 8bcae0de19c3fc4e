package transcription

import (
	"testing"
)

func TestParseWhisperOutput(t *testing.T) {
	data := []byte(`{
		"text": "hello there general kenobi",
		"language": "en",
		"segments": [
			{"id": 0, "start": 0, "end": 1, "text": " hello there",
			 "words": [{"word": " hello", "start": 0, "end": 0.4}, {"word": " there", "start": 0.5, "end": 0.9}]},
			{"id": 1, "start": 2, "end": 3, "text": " general kenobi"}
		]
	}`)
	words, err := parseWhisperOutput(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(words) != 4 {
		t.Fatalf("expected 4 words, got %+v", words)
	}
	if words[0].Word != "hello" || words[0].Speaker != DefaultSpeaker {
		t.Fatalf("unexpected first word: %+v", words[0])
	}
	if words[2].Start != 2 || words[2].End != 2.5 || words[3].End != 3 {
		t.Fatalf("segment without word timings not spread evenly: %+v", words[2:])
	}
}

func TestParseWhisperOutput_Errors(t *testing.T) {
	if _, err := parseWhisperOutput([]byte("nope")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := parseWhisperOutput([]byte(`{"segments":[]}`)); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestModelNameFrom(t *testing.T) {
	for in, want := range map[string]string{
		"models/ggml-medium.bin": "medium",
		"tiny":                   "tiny",
		"":                       "small",
		"LARGE-v3":               "large",
	} {
		if got := modelNameFrom(in); got != want {
			t.Errorf("modelNameFrom(%q) = %q, want %q", in, got, want)
		}
	}
}
