package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/labdesc/pkg/config"
	"github.com/ethpandaops/labdesc/pkg/observability"
)

var (
	cfgFile  string
	logLevel string
	log      = logrus.New()
	appCfg   = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "labdesc",
	Short: "Load, validate and serve interactive lab descriptors",
	Long: `labdesc reads lab exercise descriptors (index.json), validates their
schema and file references, and serves a catalog of scenarios to external
runners.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfigOrDefaults(cfgFile)
		if err != nil {
			return err
		}

		appCfg = cfg
		loggerCfg := cfg.Observability.Logging

		// CLI flag overrides config file.
		if cmd.Flags().Changed("log-level") {
			loggerCfg.Level = observability.LogLevel(logLevel)
		}

		configured, err := observability.ConfigureLogger(loggerCfg)
		if err != nil {
			return err
		}

		log.SetLevel(configured.Level)
		log.SetFormatter(configured.Formatter)
		log.SetOutput(configured.Out)

		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.yaml or $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
