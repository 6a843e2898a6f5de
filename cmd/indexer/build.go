package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/casecoach/backend/internal/dataset"
	"github.com/casecoach/backend/services/indexstore"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the dual vector indexes from the source dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newCLILogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		casesPath := viper.GetString("cases")
		cases, err := dataset.Load(casesPath)
		if err != nil {
			return fmt.Errorf("failed to load dataset %s: %w", casesPath, err)
		}
		fmt.Fprintf(os.Stdout, "loaded %s from %s\n",
			color.CyanString("%d cases", len(cases)), casesPath)

		provider, err := newProvider()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "embedding with %s (%s, dim %d)\n",
			viper.GetString("provider"), provider.Model(), provider.Dimension())

		store := indexstore.New(
			viper.GetString("index-dir"),
			filepath.Join(viper.GetString("data-dir"), indexstore.CasesFile),
			logger,
		)

		manifest, err := store.Build(cmd.Context(), cases, provider)
		if err != nil {
			return fmt.Errorf("index build failed: %w", err)
		}

		fmt.Fprintf(os.Stdout, "%s cases=%d model=%s dim=%d\n",
			color.GreenString("index built"),
			manifest.CaseCount, manifest.EmbeddingModel, manifest.VectorDimension)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Load the persisted indexes and report their manifest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newCLILogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		provider, err := newProvider()
		if err != nil {
			return err
		}

		store := indexstore.New(
			viper.GetString("index-dir"),
			filepath.Join(viper.GetString("data-dir"), indexstore.CasesFile),
			logger,
		)

		if !store.PersistedIndexExists() {
			return fmt.Errorf("no persisted index under %s", viper.GetString("index-dir"))
		}
		if err := store.Load(context.Background(), provider); err != nil {
			return fmt.Errorf("index failed verification: %w", err)
		}

		snap, err := store.Snapshot()
		if err != nil {
			return err
		}
		m := snap.Manifest
		fmt.Fprintf(os.Stdout, "%s cases=%d model=%s dim=%d built=%s\n",
			color.GreenString("index ok"),
			m.CaseCount, m.EmbeddingModel, m.VectorDimension,
			m.BuildTimestamp.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(verifyCmd)
}
