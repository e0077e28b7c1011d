// Package cmd provides the CLI commands for the retriever chat client.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/myretriever/retriever/internal/config"
	"github.com/myretriever/retriever/internal/debug"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retriever",
		Short: "Lost-and-found chat client",
		Long: `Retriever is a terminal client for the lost-and-found chat service.

It keeps a session list and a chat panel in sync, remembers your drafts
per conversation, and resumes your last guest session across restarts.`,
		RunE: runChat,
	}

	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging under the data directory")
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig loads configuration and enables debug logging when requested.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	debugMode, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, fmt.Errorf("getting debug flag: %w", err)
	}
	if debugMode || cfg.Debug {
		if debugErr := debug.Enable(cfg.LogPath()); debugErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to enable debug logging: %v\n", debugErr)
		} else {
			fmt.Fprintf(os.Stderr, "Debug: %s\n", cfg.LogPath())
		}
	}

	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	defer debug.Disable()
	return newRootCmd().Execute()
}
