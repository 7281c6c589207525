package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/notepad/internal/client"
	"example.com/notepad/internal/logging"
)

var (
	verbose    bool
	configPath string
	serverURL  string
	quiet      string

	log *zap.SugaredLogger
	cfg settings
)

var rootCmd = &cobra.Command{
	Use:   "notes",
	Short: "Command-line client for the notes API",
	Long: `notes lists, reads and edits notes stored by the notes API.
Edits are saved automatically after a short quiet period.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if log, err = logging.NewDevelopment(verbose); err != nil {
			return err
		}

		if cfg, err = loadSettings(configPath); err != nil {
			return err
		}
		if cmd.Flags().Changed("server") {
			cfg.Server = serverURL
		}
		if cmd.Flags().Changed("quiet") {
			if err := cfg.setQuiet(quiet); err != nil {
				return err
			}
		}
		log.Debugw("settings", "server", cfg.Server, "quiet", cfg.QuietPeriod)
		return nil
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(cfg.Server, client.WithLogger(log))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Config file")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "Notes API base URL")
	rootCmd.PersistentFlags().StringVar(&quiet, "quiet", "", "Auto-save quiet period, e.g. 500ms")
}
