package main

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/verdantio/trefle-fetch/internal/config"
	"github.com/verdantio/trefle-fetch/pkg/api"
	"github.com/verdantio/trefle-fetch/pkg/batch"
	"github.com/verdantio/trefle-fetch/pkg/cache"
	"github.com/verdantio/trefle-fetch/pkg/fetcher"
	"github.com/verdantio/trefle-fetch/pkg/fileio"
	"github.com/verdantio/trefle-fetch/pkg/logging"
	"github.com/verdantio/trefle-fetch/pkg/ratelimit"
)

// app carries the process-wide collaborators built once in the persistent
// pre-run: settings, the root logger, and the fetch service.
type app struct {
	v        *viper.Viper
	settings *config.Settings
	logger   zerolog.Logger
	svc      *fetcher.Service
}

func newApp() *app {
	return &app{
		v:      viper.New(),
		logger: logging.New(logging.DefaultConfig()),
	}
}

// newRootCommand builds the root command and wires all subcommands.
func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trefle-fetch",
		Short:         "Batch-fetch CLI for the Trefle plant API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, a.v)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.initialize()
	}

	rootCmd.AddCommand(
		plantsCommand(a),
		plantCommand(a),
		searchCommand(a),
		speciesCommand(a),
		taxonomyCommand(a),
		zonesCommand(a),
		correctionsCommand(a),
	)

	return rootCmd
}

// setupFlags defines the global flags and binds them to viper keys.
func setupFlags(rootCmd *cobra.Command, v *viper.Viper) {
	pf := rootCmd.PersistentFlags()
	pf.String("token", "", "API token (or TREFLE_TOKEN)")
	pf.String("base-url", "", "API base URL")
	pf.StringP("output-dir", "o", "", "Directory for output files")
	pf.StringP("format", "f", "", "Output format: json, json.gz, csv, txt, auto")
	pf.BoolP("enrich", "e", false, "Fetch and flatten the detail record for each plant")
	pf.IntP("pages", "p", 0, "Maximum number of pages to fetch (0: all)")
	pf.Int("start-page", 0, "First page to fetch")
	pf.Bool("dry-run", false, "Log the narrative without network or file effects")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.Bool("pretty", false, "Human-readable console logs")
	pf.String("redis", "", "Redis address enabling the detail-record cache")
	pf.Int("pages-per-batch", 0, "Pages per output batch (default: 5 enriched, 10 plain)")

	bindings := map[string]string{
		"token":           "token",
		"base_url":        "base-url",
		"output_dir":      "output-dir",
		"format":          "format",
		"enrich":          "enrich",
		"pages":           "pages",
		"start_page":      "start-page",
		"dry_run":         "dry-run",
		"log_level":       "log-level",
		"pretty":          "pretty",
		"redis_addr":      "redis",
		"pages_per_batch": "pages-per-batch",
	}
	for key, flag := range bindings {
		// BindPFlag only errors on a nil flag; the names above are
		// defined just before.
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}
}

// initialize loads settings and builds the logger and fetch service.
func (a *app) initialize() error {
	settings, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.settings = settings

	a.logger = logging.New(logging.Config{
		Level:  logging.LogLevel(settings.LogLevel),
		Pretty: settings.Pretty,
	})

	if _, err := fileio.ParseFormat(settings.Format); err != nil {
		return err
	}

	var client *api.Client
	if settings.Token != "" {
		client, err = api.New(api.Config{
			BaseURL: settings.BaseURL,
			Token:   settings.Token,
			Logger:  a.logger,
		})
		if err != nil {
			return err
		}
	} else if !settings.DryRun {
		return &api.ValidationError{Field: "token", Reason: "must not be empty (set --token or TREFLE_TOKEN)"}
	}

	limiter := ratelimit.NewLimiter(settings.RateMinSeconds, settings.RateMaxSeconds, a.logger)

	var detailCache batch.DetailCache
	if settings.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
		detailCache = cache.NewManager(redisClient, settings.CacheTTL, a.logger)
		a.logger.Info().Str("redis", settings.RedisAddr).Msg("Detail-record cache enabled")
	}

	a.svc = fetcher.New(client, limiter, detailCache, a.logger)
	return nil
}

// opts materializes fetcher options from the loaded settings.
func (a *app) opts() fetcher.Options {
	format, _ := fileio.ParseFormat(a.settings.Format)
	return fetcher.Options{
		OutputDir:     a.settings.OutputDir,
		Format:        format,
		Enrich:        a.settings.Enrich,
		StartPage:     a.settings.StartPage,
		MaxPages:      a.settings.Pages,
		PagesPerBatch: a.settings.PagesPerBatch,
		DryRun:        a.settings.DryRun,
	}
}

// parseKVs turns repeated key=value flags into a map for filter objects.
func parseKVs(pairs []string, flag string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, &api.ValidationError{
				Field:  flag,
				Reason: fmt.Sprintf("expected key=value, got %q", p),
			}
		}
		out[k] = v
	}
	return out, nil
}
