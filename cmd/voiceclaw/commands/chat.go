package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/agent"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/config"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/memory"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/tools"
)

// newChatCmd creates the `voiceclaw chat` command: the same assistant
// the voice path uses, driven from the keyboard instead of the mic.
func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the assistant by text",
		Long: `Send one message to the assistant, or start an interactive
session when no message is given. Uses the same tools and memory as
voice sessions.

Examples:
  voiceclaw chat "what did I ask you yesterday?"
  voiceclaw chat`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := buildLogger(cmd, cfg)
	config.ResolveAPIKey(cfg, logger)

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

	ctx := context.Background()

	if !llm.CheckHealth(ctx) {
		return fmt.Errorf("LLM backend not reachable at %s", cfg.LLM.BaseURL)
	}

	if len(args) > 0 {
		answer, err := assistant.Run(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	}

	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("starting interactive session: %w", err)
	}
	defer rl.Close()

	fmt.Println("Interactive session. Ctrl+D or 'exit' to leave.")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		answer, err := assistant.Run(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("voiceclaw> %s\n", answer)
	}
}
