// Package cmd defines and implements the CLI commands for the comicdl
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/cache"
	"github.com/comicdl/comicdl/internal/clock/system"
	"github.com/comicdl/comicdl/internal/comicbook"
	"github.com/comicdl/comicdl/internal/config"
	"github.com/comicdl/comicdl/internal/download"
	"github.com/comicdl/comicdl/internal/logging"
	"github.com/comicdl/comicdl/internal/pool"
	"github.com/comicdl/comicdl/internal/session"
)

var (
	cfgFile string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
	svc    *comicbook.Service
)

// newRootCmd creates and configures the root command. Subcommands use the
// package-level service built in PersistentPreRunE.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comicdl",
		Short: "Download comics from supported sites",
		Long: `comicdl crawls supported comic sites, normalizes their chapter
indexes and downloads chapter images, optionally packaging them as PDF
or zip archives.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = logging.New(verbose || cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			svc = buildService(cfg, logger)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newSitesCmd())

	return cmd
}

// buildService assembles the façade from configuration.
func buildService(cfg config.Config, logger *zap.Logger) *comicbook.Service {
	sessions := session.NewManager(session.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		Timeout:        cfg.HTTPTimeout(),
		RequestsPerSec: cfg.Crawler.RequestsPerSec,
		Burst:          cfg.Crawler.Burst,
		Proxies:        cfg.Crawler.Proxies,
	}, logger)
	runner := pool.New(cfg.Crawler.Concurrency, logger)
	downloader := download.New(runner, download.Config{
		MaxRetries: cfg.Download.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
	}, logger)

	clock := system.New()
	return comicbook.NewService(comicbook.Options{
		Sessions:   sessions,
		Runner:     runner,
		Cache:      cache.New(cfg.CacheTTL(), clock),
		Clock:      clock,
		Logger:     logger,
		Downloader: downloader,
	})
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
