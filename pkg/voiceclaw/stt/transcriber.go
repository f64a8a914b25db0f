// Package stt provides speech-to-text over an OpenAI-compatible
// transcription endpoint (whisper.cpp server, faster-whisper-server
// and similar local backends speak the same API).
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/config"
)

// Transcriber converts a WAV file into text.
type Transcriber interface {
	TranscribeFile(ctx context.Context, wavPath string) (string, error)
}

// WhisperClient talks to an OpenAI-style /audio/transcriptions endpoint.
type WhisperClient struct {
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWhisperClient creates a transcription client from config.
func NewWhisperClient(cfg config.STTConfig, logger *slog.Logger) *WhisperClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &WhisperClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "stt"),
	}
}

// transcriptionResponse is the JSON body of a successful request.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// TranscribeFile uploads a WAV file and returns the trimmed transcript.
func (c *WhisperClient) TranscribeFile(ctx context.Context, wavPath string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", fmt.Errorf("opening wav file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return "", fmt.Errorf("building multipart request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading wav file: %w", err)
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("building multipart request: %w", err)
	}
	if c.language != "" {
		if err := writer.WriteField("language", c.language); err != nil {
			return "", fmt.Errorf("building multipart request: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("building multipart request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building multipart request: %w", err)
	}

	url := c.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription backend returned status %d: %s",
			resp.StatusCode, truncate(string(body), 200))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing transcription response: %w", err)
	}

	text := strings.TrimSpace(parsed.Text)
	c.logger.Info("transcription complete",
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len(text),
	)
	return text, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
