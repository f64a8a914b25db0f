// Package config defines all configuration structures for the VoiceClaw
// voice session engine.
package config

// Config holds the full engine configuration.
type Config struct {
	// Server configures the websocket control channel.
	Server ServerConfig `yaml:"server"`

	// Audio configures capture and VAD endpointing.
	Audio AudioConfig `yaml:"audio"`

	// STT configures the transcription backend.
	STT STTConfig `yaml:"stt"`

	// TTS configures the speech output.
	TTS TTSConfig `yaml:"tts"`

	// LLM configures the assistant completion backend.
	LLM LLMConfig `yaml:"llm"`

	// Agent configures the tool-calling loop.
	Agent AgentConfig `yaml:"agent"`

	// Memory configures the conversation store.
	Memory MemoryConfig `yaml:"memory"`

	// Sandbox configures the tool filesystem sandbox.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the control channel listener.
type ServerConfig struct {
	// Host is the bind address (default "127.0.0.1").
	Host string `yaml:"host"`

	// Port is the listen port (default 8765).
	Port int `yaml:"port"`
}

// AudioConfig configures PCM capture and the VAD segmenter.
type AudioConfig struct {
	// SampleRate is the capture sample rate in Hz (default 16000).
	SampleRate int `yaml:"sample_rate"`

	// FrameMs is the VAD frame duration; must be 10, 20 or 30.
	FrameMs int `yaml:"frame_ms"`

	// VADAggressiveness selects how eagerly frames are classified as
	// speech, 0 (lenient) to 3 (strict).
	VADAggressiveness int `yaml:"vad_aggressiveness"`

	// MaxSilenceMs is the trailing silence that ends an utterance.
	MaxSilenceMs int `yaml:"max_silence_ms"`

	// MaxRecordMs is the hard recording ceiling.
	MaxRecordMs int `yaml:"max_record_ms"`

	// MinRecordMs is the minimum duration before silence can end capture.
	MinRecordMs int `yaml:"min_record_ms"`

	// CaptureCommand is the external command that delivers raw S16LE
	// mono PCM on stdout. Arguments may reference the sample rate.
	CaptureCommand []string `yaml:"capture_command"`
}

// STTConfig configures the transcription backend.
type STTConfig struct {
	// BaseURL is the OpenAI-style endpoint of the local whisper server.
	BaseURL string `yaml:"base_url"`

	// Model is the transcription model name.
	Model string `yaml:"model"`

	// Language is the fixed transcription language.
	Language string `yaml:"language"`

	// TimeoutSeconds bounds a single transcription request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// TTSConfig configures speech output.
type TTSConfig struct {
	// Enabled turns speech output on/off.
	Enabled bool `yaml:"enabled"`

	// Command is the external speech command; text is piped to stdin.
	Command []string `yaml:"command"`

	// TimeoutSeconds is the hard wall-clock cap per utterance.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	// BaseURL is the OpenAI-compatible API base (e.g. a local LM Studio
	// server at http://127.0.0.1:1234/v1).
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the backend. Usually resolved from
	// the OS keyring or environment, not stored here.
	APIKey string `yaml:"api_key"`

	// Model is the chat model name.
	Model string `yaml:"model"`

	// Temperature is the sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// TimeoutSeconds bounds a single completion request.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// HealthTimeoutSeconds bounds the reachability probe.
	HealthTimeoutSeconds int `yaml:"health_timeout_seconds"`
}

// AgentConfig configures the tool-calling loop.
type AgentConfig struct {
	// SystemPrompt is the base system preamble.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxToolLoops is the max completion round-trips per run.
	MaxToolLoops int `yaml:"max_tool_loops"`

	// MaxContextMessages is how many stored messages are replayed.
	MaxContextMessages int `yaml:"max_context_messages"`
}

// MemoryConfig configures the conversation store.
type MemoryConfig struct {
	// Path is the sqlite database file path.
	Path string `yaml:"path"`
}

// SandboxConfig configures the tool filesystem sandbox.
type SandboxConfig struct {
	// Root is the only directory tools may touch.
	Root string `yaml:"root"`

	// MaxReadBytes caps file reads (and search scan size).
	MaxReadBytes int `yaml:"max_read_bytes"`

	// MaxWriteBytes caps created file content.
	MaxWriteBytes int `yaml:"max_write_bytes"`

	// MaxSearchResults caps search hits per query.
	MaxSearchResults int `yaml:"max_search_results"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// Default returns the default engine configuration, tuned for
// push-to-talk command usage against local backends.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8765,
		},
		Audio: AudioConfig{
			SampleRate:        16000,
			FrameMs:           30,
			VADAggressiveness: 2,
			MaxSilenceMs:      5000,
			MaxRecordMs:       30000,
			MinRecordMs:       5000,
			CaptureCommand:    []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"},
		},
		STT: STTConfig{
			BaseURL:        "http://127.0.0.1:8080/v1",
			Model:          "whisper-small.en",
			Language:       "en",
			TimeoutSeconds: 120,
		},
		TTS: TTSConfig{
			Enabled:        true,
			Command:        []string{"espeak-ng", "--stdin"},
			TimeoutSeconds: 120,
		},
		LLM: LLMConfig{
			BaseURL:              "http://127.0.0.1:1234/v1",
			Model:                "meta-llama-3-8b-instruct",
			Temperature:          0.7,
			TimeoutSeconds:       60,
			HealthTimeoutSeconds: 3,
		},
		Agent: AgentConfig{
			SystemPrompt: "You are a helpful local voice assistant. " +
				"Be concise. Ask for clarification when needed.",
			MaxToolLoops:       4,
			MaxContextMessages: 24,
		},
		Memory: MemoryConfig{
			Path: "./data/memory.db",
		},
		Sandbox: SandboxConfig{
			Root:             "./sandbox",
			MaxReadBytes:     200_000,
			MaxWriteBytes:    200_000,
			MaxSearchResults: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
