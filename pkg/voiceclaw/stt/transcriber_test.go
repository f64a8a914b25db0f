package stt

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/config"
)

func writeTestWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "utterance.wav")
	if err := os.WriteFile(path, []byte("RIFFfakewavdata"), 0o644); err != nil {
		t.Fatalf("writing test wav: %v", err)
	}
	return path
}

func TestWhisperClient_TranscribeFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("request path = %q, want /audio/transcriptions", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-small.en" {
			t.Errorf("model field = %q, want whisper-small.en", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language field = %q, want en", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file field missing: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "  hello there  "})
	}))
	t.Cleanup(server.Close)

	client := NewWhisperClient(config.STTConfig{
		BaseURL:  server.URL,
		Model:    "whisper-small.en",
		Language: "en",
	}, slog.Default())

	got, err := client.TranscribeFile(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("TranscribeFile() error = %v", err)
	}
	if got != "hello there" {
		t.Errorf("TranscribeFile() = %q, want trimmed %q", got, "hello there")
	}
}

func TestWhisperClient_BackendError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := NewWhisperClient(config.STTConfig{BaseURL: server.URL}, slog.Default())
	if _, err := client.TranscribeFile(context.Background(), writeTestWAV(t)); err == nil {
		t.Error("TranscribeFile() succeeded, want error for 503 backend")
	}
}

func TestWhisperClient_MissingFile(t *testing.T) {
	t.Parallel()

	client := NewWhisperClient(config.STTConfig{BaseURL: "http://127.0.0.1:1"}, slog.Default())
	if _, err := client.TranscribeFile(context.Background(), "/nonexistent.wav"); err == nil {
		t.Error("TranscribeFile() succeeded for a missing file, want error")
	}
}
