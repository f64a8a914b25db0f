// Package commands implements the VoiceClaw CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voiceclaw",
		Short: "VoiceClaw - local voice assistant engine",
		Long: `VoiceClaw is a local push-to-talk voice engine: it records speech,
transcribes it, and optionally answers through a tool-calling LLM
assistant, all driven over a websocket control channel.

Examples:
  voiceclaw serve
  voiceclaw chat "what files are in my notes folder?"
  voiceclaw config init`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
