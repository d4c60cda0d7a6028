// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the scielo-harvest CLI. It collects
// the documents matching a SciELO search and prints their metadata as CSV.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scielo-harvest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds values loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd harvests the search given by --search_query_url.
var rootCmd = &cobra.Command{
	Use:   "scielo-harvest",
	Short: "Export SciELO search results with their ArticleMeta metadata as CSV",
	Long: `scielo-harvest takes a URL copied from the search.scielo.org website, pages
through the search engine's XML output to collect the matching document
identifiers, looks each one up in the ArticleMeta API and prints one CSV row per
document to standard output. Progress and diagnostics go to standard error.`,
	Example: `  scielo-harvest -s 'https://search.scielo.org/?q=zika&filter[in][]=scl' > zika.csv`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(viper.GetString("log_level")); err != nil {
			return err
		}
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logrus.Debugf("loaded secrets: %v", s.Keys())
		}
		return nil
	},
	RunE: runHarvest,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./scielo-harvest.yaml or ~/.config/scielo-harvest/scielo-harvest.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	registerHarvestFlags(rootCmd)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scielo-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scielo-harvest"))
		}
	}

	viper.SetEnvPrefix("SCIELO_HARVEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setupLogging sends logrus output to stderr at the given level.
func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(lvl)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
