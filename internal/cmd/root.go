package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BelikanM/cub/pkg/config"
	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/output"
)

var (
	verbose    bool
	configPath string
	outputFmt  string
	backend    string
)

var rootCmd = &cobra.Command{
	Use:   "cub",
	Short: "cub - posts, media and follows from the terminal",
	Long: `cub is a command-line client for the cub social backend.
Publish posts, like and delete them, manage uploaded media and follow
other users. Lists can be watched live over the realtime channel.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		logger.Init(verbose)

		if !output.ValidateOutputFormat(outputFmt) {
			return cuberrors.ValidationError("output", "must be text, json or table")
		}
		config.Set("output.format", outputFmt)
		if backend != "" {
			if backend != config.BackendREST && backend != config.BackendRealtime {
				return cuberrors.ValidationError("backend", "must be rest or realtime")
			}
			config.Set("api.backend", backend)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cuberrors.FormatError(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/cub/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text, json, table")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Backend: rest or realtime (default from config)")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(versionCmd)
}
