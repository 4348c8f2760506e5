package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/weavesync/internal/client"
	"github.com/MKhiriev/weavesync/internal/config"
	"github.com/MKhiriev/weavesync/internal/logger"
	"github.com/MKhiriev/weavesync/internal/workers"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

// CLI flag values, merged over env/JSON configuration.
var (
	flagConfig   string
	flagUsername string
	flagNodeURL  string
	flagRegistry string
	flagPrefs    string
	flagInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:     "weavesync",
	Short:   "Encrypted browser-data sync client",
	Long:    "weavesync synchronizes encrypted browser collections (clients, bookmarks, history, tabs) against a Weave-compatible storage service.",
	Version: version(),
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync attempt and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, log, err := buildApp(cmd.Context(), logger.NewLogger("weavesync"))
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.RunSync(cmd.Context()); err != nil {
			log.Error().Err(err).Msg("sync attempt failed")
			return err
		}
		log.Info().Msg("sync finished")
		return nil
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Sync periodically until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewDaemonLogger("weavesync")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		app, err := client.NewApp(cmd.Context(), cfg, log)
		if err != nil {
			return fmt.Errorf("init client app: %w", err)
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// One immediate attempt, then the ticker takes over.
		if err := app.RunSync(ctx); err != nil {
			log.Warn().Err(err).Msg("initial sync attempt failed")
		}

		job := workers.NewSyncJob(app, log)
		job.Start(ctx, cfg.Sync.Interval)
		defer job.Stop()

		log.Info().Dur("interval", cfg.Sync.Interval).Msg("daemon started")
		<-ctx.Done()
		log.Info().Msg("daemon stopping")
		return nil
	},
}

var wipeClientsCmd = &cobra.Command{
	Use:   "wipe-clients",
	Short: "Clear the local client registry and reset its sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, log, err := buildApp(cmd.Context(), logger.NewLogger("weavesync"))
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.WipeClients(cmd.Context()); err != nil {
			log.Error().Err(err).Msg("wiping client registry")
			return err
		}
		log.Info().Msg("client registry wiped")
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to JSON configuration file")
	rootCmd.PersistentFlags().StringVarP(&flagUsername, "username", "u", "", "sync account username")
	rootCmd.PersistentFlags().StringVar(&flagNodeURL, "node-url", "", "node-assignment service base URL")
	rootCmd.PersistentFlags().StringVar(&flagRegistry, "registry", "", "client registry SQLite DSN")
	rootCmd.PersistentFlags().StringVar(&flagPrefs, "prefs", "", "preference file path")
	daemonCmd.Flags().DurationVar(&flagInterval, "interval", 0, "sync interval (default 5m)")

	rootCmd.AddCommand(syncCmd, daemonCmd, wipeClientsCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// overrides assembles the CLI flag values into a config layer that wins over
// environment variables and the JSON file.
func overrides() *config.StructuredConfig {
	cfg := &config.StructuredConfig{JSONFilePath: flagConfig}
	cfg.Account.Username = flagUsername
	cfg.Adapter.NodeURL = flagNodeURL
	cfg.Storage.RegistryDSN = flagRegistry
	cfg.Storage.PrefsPath = flagPrefs
	cfg.Sync.Interval = flagInterval
	return cfg
}

func loadConfig() (*config.ClientConfig, error) {
	cfg, err := config.GetClientConfig(overrides())
	if err != nil {
		return nil, fmt.Errorf("error getting configs: %w", err)
	}
	return cfg, nil
}

func buildApp(ctx context.Context, log *logger.Logger) (*client.App, *logger.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	app, err := client.NewApp(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init client app: %w", err)
	}
	return app, log, nil
}

func version() string {
	v, d, c := buildVersion, buildDate, buildCommit
	if v == "" {
		v = "N/A"
	}
	if d == "" {
		d = "N/A"
	}
	if c == "" {
		c = "N/A"
	}
	return fmt.Sprintf("%s (built %s, commit %s)", v, d, c)
}
