package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/agent"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/config"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/memory"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/session"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/stt"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/tools"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/tts"
)

// newServeCmd creates the `voiceclaw serve` command that starts the engine.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the voice engine and its websocket control channel",
		Long: `Start VoiceClaw as a daemon: opens the websocket control channel,
probes the LLM backend, and waits for start/stop commands from a client.

Examples:
  voiceclaw serve
  voiceclaw serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := buildLogger(cmd, cfg)
	config.ResolveAPIKey(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := memory.Open(cfg.Memory.Path)
	if err != nil {
		return fmt.Errorf("opening memory store: %w", err)
	}
	defer store.Close()

	sandbox, err := tools.NewSandboxFS(tools.SandboxConfig{
		Root:             cfg.Sandbox.Root,
		MaxReadBytes:     cfg.Sandbox.MaxReadBytes,
		MaxWriteBytes:    cfg.Sandbox.MaxWriteBytes,
		MaxSearchResults: cfg.Sandbox.MaxSearchResults,
	})
	if err != nil {
		return err
	}

	executor := tools.BuildExecutor(sandbox, store, logger)
	llm := agent.NewLLMClient(cfg.LLM, logger)
	assistant := agent.New(llm, executor, store, cfg.Agent, logger)

	recorder, err := session.NewCommandRecorder(cfg.Audio, logger)
	if err != nil {
		return err
	}

	transcriber := stt.NewWhisperClient(cfg.STT, logger)

	var speaker tts.Provider
	if p := tts.NewCommandProvider(cfg.TTS, logger); p != nil {
		speaker = p
	}

	ctrl := session.NewController(ctx, recorder, transcriber, assistant,
		speaker, llm, cfg.Audio.SampleRate, logger)

	if available, _ := ctrl.CheckLLM(ctx); available {
		logger.Info("LLM backend is available", "base_url", cfg.LLM.BaseURL)
	} else {
		logger.Warn("LLM backend not reachable, assistant mode will be disabled",
			"base_url", cfg.LLM.BaseURL)
	}

	server := session.NewServer(ctrl, cfg.Server, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received, stopping...")
		cancel()
	}()

	return server.ListenAndServe(ctx)
}

// buildLogger configures slog from the logging config and --verbose.
func buildLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}

// resolveConfig loads the config file or falls back to defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := config.FindFile(); found != "" {
		cfg, err := config.LoadFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		slog.Info("config loaded", "path", found)
		return cfg, nil
	}

	slog.Info("no config file found, using defaults")
	return config.Default(), nil
}
