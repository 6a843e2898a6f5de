package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "indexer — build and verify the counseling case vector indexes",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flags override environment, environment overrides defaults.
		return ensureConfigLoaded(cmd)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("cases", "data/counseling_cases.json", "source dataset file")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory for the persisted corpus")
	rootCmd.PersistentFlags().String("index-dir", "data/indices", "directory for the persisted indexes")
	rootCmd.PersistentFlags().String("provider", "local", "embedding provider (local or openai)")
	rootCmd.PersistentFlags().String("model", "", "embedding model name (openai provider)")
	rootCmd.PersistentFlags().Int("dimension", 0, "embedding dimension (0 uses the provider default)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	for _, name := range []string{"cases", "data-dir", "index-dir", "provider", "model", "dimension", "verbose"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func ensureConfigLoaded(cmd *cobra.Command) error {
	viper.SetEnvPrefix("INDEXER")
	viper.AutomaticEnv()

	viper.SetDefault("cases", "data/counseling_cases.json")
	viper.SetDefault("data-dir", "data")
	viper.SetDefault("index-dir", "data/indices")
	viper.SetDefault("provider", "local")
	return nil
}

func newCLILogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if viper.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return cfg.Build()
}
