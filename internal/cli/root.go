// Package cli implements the salon command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-salon/backend/internal/config"
)

// cliEnv is shared by every subcommand once the root pre-run has loaded the
// configuration.
type cliEnv struct {
	cfg     *config.Config
	verbose bool
	in      io.Reader
	out     io.Writer
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	env := &cliEnv{in: os.Stdin, out: os.Stdout}

	root := &cobra.Command{
		Use:           "salon",
		Short:         "Chat with personas and stage philosopher dialogues",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && env.verbose {
				log.Printf("warning: failed to load .env file: %v", err)
			}
			if !env.verbose {
				log.SetOutput(io.Discard)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if keys, _ := cmd.Flags().GetString("keys"); keys != "" {
				cfg.AI.KeysFile = keys
			}
			env.cfg = cfg
			env.in = cmd.InOrStdin()
			env.out = cmd.OutOrStdout()
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "Log service activity to stderr")
	root.PersistentFlags().String("keys", "", "Path to the YAML key file (defaults to OPENAI_KEYS_FILE)")

	root.AddCommand(
		newChatCommand(env),
		newSimulateCommand(env),
		newTranscribeCommand(env),
		newVaryCommand(env),
		newPersonasCommand(env),
	)
	return root
}

// Execute runs the CLI with signal-aware cancellation.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
