package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/spider/internal/config"
	"github.com/nao1215/spider/internal/crawler"
	"github.com/nao1215/spider/internal/database"
	spiderlog "github.com/nao1215/spider/internal/log"
	"github.com/nao1215/spider/internal/model"
	"github.com/nao1215/spider/internal/report"
	"github.com/nao1215/spider/internal/transport"
	"github.com/spf13/cobra"
)

// runCrawlCmd executes a crawl for the root command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, getPersistentBool(cmd, "log-json"))
	slog.SetDefault(logger)

	// Interrupts stop the crawl the same way the deadline does: no new
	// pages are started and the partial summary is still recorded.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getPersistentBool(cmd, "verbose")
}

// getPersistentBool reads a boolean flag that may be defined on the root.
func getPersistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// buildConfig creates a Config from cobra command flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.Recursive, err = flags.GetBool("recursive"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("level"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("path"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.DownloadTimeout, err = flags.GetDuration("download-timeout"); err != nil {
		return nil, err
	}
	if cfg.Deadline, err = flags.GetDuration("deadline"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if len(args) > 0 {
		cfg.URL = args[0]
	}

	// If the user named a config file it must exist; otherwise a missing
	// file just means no site settings.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.ApplySite(cfg.SiteConfigs.GetSiteConfig(cfg.URL), flags.Changed("level"))

	return cfg, nil
}

// setupLogger creates a structured logger that redacts secrets.
func setupLogger(w io.Writer, verbose, jsonRecords bool) *slog.Logger {
	if jsonRecords {
		return spiderlog.NewSecureJSONLogger(w, verbose)
	}
	return spiderlog.NewSecureLogger(w, verbose)
}

// runCrawl wires the crawler from cfg and runs one crawl.
func runCrawl(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	req, err := model.NewCrawlRequest(cfg.URL, cfg.MaxDepth, cfg.OutputDir, cfg.Recursive)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", cfg.URL, err)
	}

	if cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Deadline)
		defer cancel()
	}

	if cfg.ProxyAddress != "" {
		status := transport.CheckProxy(ctx, cfg.ProxyAddress)
		if status != transport.ProxyStatusOK {
			return fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, status.Err())
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
	}

	spider, err := newSpider(cfg, out, logger)
	if err != nil {
		return err
	}

	logger.Info("starting crawl",
		"url", req.URL(),
		"recursive", req.Recursive(),
		"maxDepth", req.MaxDepth(),
		"outputDir", req.OutputDir(),
		"workers", cfg.Workers,
	)

	summary, crawlErr := spider.Crawl(ctx, req)

	if crawlErr == nil {
		fmt.Fprintf(out, "Crawl completed in %s: %d page(s), %d of %d image(s) saved to %s\n",
			summary.Duration().Round(time.Millisecond),
			summary.PagesVisited,
			summary.ImagesSaved,
			summary.ImagesSaved+summary.ImagesFailed,
			summary.OutputDir,
		)
	}

	// The crawl may have been stopped by ctx; the summary is still recorded.
	saveCtx := context.WithoutCancel(ctx)

	if cfg.SaveToDB {
		if err := saveHistory(saveCtx, cfg.DBDir, summary, logger); err != nil {
			logger.Error("failed to save crawl history", "error", err)
		}
	}

	if cfg.ReportFile != "" {
		if err := writeReportFile(cfg.ReportFile, summary); err != nil {
			logger.Error("report failed", "file", cfg.ReportFile, "error", err)
		}
	}

	return crawlErr
}

// newSpider builds the HTTP client, fetcher, downloader and spider for cfg.
// Page and download output share one console so lines never interleave.
func newSpider(cfg *config.Config, out io.Writer, logger *slog.Logger) (*crawler.Spider, error) {
	clientOpts := []transport.Option{
		transport.WithTimeout(max(cfg.Timeout, cfg.DownloadTimeout)),
	}
	if cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, transport.WithProxy(cfg.ProxyAddress))
	}

	client, err := transport.NewHTTPClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	site := cfg.SiteConfigs.GetSiteConfig(cfg.URL)
	console := crawler.NewConsole(out)

	fetcher := crawler.NewHTTPFetcher(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithPageTimeout(cfg.Timeout),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithCookie(site.Cookie),
		crawler.WithHeaders(site.Headers),
	)

	downloader := crawler.NewDownloader(client,
		crawler.WithDownloadUserAgent(cfg.UserAgent),
		crawler.WithDownloadTimeout(cfg.DownloadTimeout),
		crawler.WithMaxImageSize(cfg.MaxImageSize),
		crawler.WithMetadataInspection(true),
		crawler.WithDownloadOutput(console),
		crawler.WithDownloadLogger(logger),
	)

	return crawler.NewSpider(fetcher, downloader,
		crawler.WithWorkers(cfg.Workers),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithOutput(console),
		crawler.WithLogger(logger),
	), nil
}

// saveHistory records summary in the history database under dbDir.
func saveHistory(ctx context.Context, dbDir string, summary *model.CrawlSummary, logger *slog.Logger) error {
	if summary == nil {
		return nil
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveCrawl(ctx, summary)
	if err != nil {
		return err
	}

	logger.Info("crawl saved to history", "id", id, "db", db.Path())
	return nil
}

// writeReportFile writes summary to path in the format implied by its extension.
func writeReportFile(path string, summary *model.CrawlSummary) error {
	if summary == nil {
		return errors.New("no crawl summary to report")
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	// Reports may contain cookies in URLs and EXIF locations; owner-only.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	var w report.Writer
	if format := report.FormatFromPath(path); format == report.FormatJSON {
		w = report.NewJSONWriter(f, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	} else {
		w = report.NewWriter(format, f)
	}

	_, err = w.Write(summary)
	return err
}
