// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scielo-harvest/internal/articlemeta"
	"github.com/pdiddy/scielo-harvest/internal/cache"
	"github.com/pdiddy/scielo-harvest/internal/harvest"
	"github.com/pdiddy/scielo-harvest/internal/report"
	"github.com/pdiddy/scielo-harvest/internal/search"
	"github.com/pdiddy/scielo-harvest/internal/secrets"
	"github.com/pdiddy/scielo-harvest/pkg/types"
)

const (
	defaultSearchTimeout      = 10 * time.Second
	defaultArticleMetaTimeout = 60 * time.Second
	defaultCacheTTL           = 7 * 24 * time.Hour
)

func registerHarvestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("search_query_url", "s", "", "Full URL from the search.scielo.org website containing your filters and query")
	f.Int("page-size", search.DefaultPageSize, "identifiers requested per search page")
	f.String("on-bad-status", string(types.PolicyRetry), "non-200 search responses: retry the same page or skip to the next")
	f.Int("max-attempts", 5, "consecutive failed requests allowed for one page")
	f.Bool("cache", false, "cache ArticleMeta records in a local SQLite database")
	f.String("cache-path", "", "cache database file (default: XDG cache dir)")
	f.String("summary", "", "write a YAML run summary to this file")
	cmd.MarkFlagRequired("search_query_url")

	viper.BindPFlag("search.page_size", f.Lookup("page-size"))
	viper.BindPFlag("search.on_bad_status", f.Lookup("on-bad-status"))
	viper.BindPFlag("search.max_attempts", f.Lookup("max-attempts"))
	viper.BindPFlag("cache.enabled", f.Lookup("cache"))
	viper.BindPFlag("cache.path", f.Lookup("cache-path"))

	viper.SetDefault("search.base_url", search.DefaultBaseURL)
	viper.SetDefault("search.timeout", defaultSearchTimeout)
	viper.SetDefault("articlemeta.base_url", articlemeta.DefaultBaseURL)
	viper.SetDefault("articlemeta.timeout", defaultArticleMetaTimeout)
	viper.SetDefault("articlemeta.max_retries", 3)
	viper.SetDefault("cache.ttl", defaultCacheTTL)
	viper.SetDefault("user_agent", "scielo-harvest/"+version)
}

// loadConfig assembles the run configuration from flags, environment,
// config file and defaults, in that order of precedence.
func loadConfig() types.Config {
	ua := userAgent(viper.GetString("user_agent"), loadedSecrets[secrets.ContactEmail])
	return types.Config{
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("search.timeout"),
				UserAgent: ua,
			},
			BaseURL:     viper.GetString("search.base_url"),
			PageSize:    viper.GetInt("search.page_size"),
			OnBadStatus: types.BadStatusPolicy(viper.GetString("search.on_bad_status")),
			MaxAttempts: viper.GetInt("search.max_attempts"),
		},
		ArticleMeta: types.ArticleMetaConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("articlemeta.timeout"),
				UserAgent: ua,
			},
			BaseURL:    viper.GetString("articlemeta.base_url"),
			MaxRetries: viper.GetInt("articlemeta.max_retries"),
		},
		Cache: types.CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			Path:    viper.GetString("cache.path"),
			TTL:     viper.GetDuration("cache.ttl"),
		},
		LogLevel: viper.GetString("log_level"),
	}
}

// userAgent appends a contact address when one is configured.
func userAgent(base, email string) string {
	if email == "" {
		return base
	}
	return fmt.Sprintf("%s (mailto:%s)", base, email)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	searchURL, _ := cmd.Flags().GetString("search_query_url")
	summaryPath, _ := cmd.Flags().GetString("summary")
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var fetcher articlemeta.Fetcher = articlemeta.NewClient(cfg.ArticleMeta)
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close()
		fetcher = &cache.CachedFetcher{Store: store, Next: fetcher, Logger: logrus.StandardLogger()}
	}

	pages := &search.Client{
		HTTP:      &http.Client{Timeout: cfg.Search.Timeout},
		BaseURL:   cfg.Search.BaseURL,
		UserAgent: cfg.Search.UserAgent,
	}

	h, err := harvest.New(searchURL, pages, &articlemeta.Service{Fetcher: fetcher}, cfg.Search, logrus.StandardLogger())
	if err != nil {
		return err
	}

	rows, runErr := report.WriteCSV(ctx, h, cmd.OutOrStdout())

	stats := h.Stats()
	logrus.WithFields(logrus.Fields{
		"rows":      rows,
		"pages":     stats.Pages,
		"not_found": stats.NotFound,
		"failed":    stats.FailedRequests,
	}).Info("harvest finished")

	if summaryPath != "" {
		s := report.NewSummary(searchURL, h.Query(), cfg.Search, stats, rows, runErr)
		if err := report.WriteSummary(summaryPath, s); err != nil {
			logrus.WithError(err).Error("writing summary")
			if runErr == nil {
				return err
			}
		}
	}
	return runErr
}
