package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/printshop-tools/kdpcover/internal/config"
)

var (
	configPath string
	verbose    bool
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kdpcover",
		Short: "KDP paperback cover dimension calculator and full-wrap compositor",
		Long: `kdpcover computes Amazon KDP paperback cover geometry (trim, spine, bleed)
and assembles print-ready full-wrap covers from a front image, an optional back
image and interior previews.

It can run as a web service for the cover editor or be used from the command line.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to YAML config file")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDimensionsCmd())
	cmd.AddCommand(newTrimSizesCmd())
	cmd.AddCommand(newAssembleCmd())
	cmd.AddCommand(newColorsCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}
