package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/spider/internal/config"
	"github.com/nao1215/spider/internal/crawler"
	"github.com/nao1215/spider/internal/database"
	spiderlog "github.com/nao1215/spider/internal/log"
	"github.com/nao1215/spider/internal/model"
	"github.com/nao1215/spider/internal/report"
	"github.com/nao1215/spider/internal/transport"
)

// newTestSite serves an origin page with one allowed image, one disallowed
// image, one same-origin link and one cross-origin link.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
<img src="/a.png"><img src="/logo.svg">
<a href="/next">next</a><a href="http://other.invalid/">away</a>
</body></html>`)
	})
	mux.HandleFunc("/next", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><img src="b.jpg"><a href="/deeper">deeper</a></body></html>`)
	})
	mux.HandleFunc("/deeper", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><img src="/c.gif"></body></html>`)
	})
	mux.HandleFunc("/a.png", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("png-bytes"))
	})
	mux.HandleFunc("/b.jpg", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("jpg-bytes"))
	})
	mux.HandleFunc("/c.gif", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("gif-bytes"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newTestConfig returns a config that writes everything under t.TempDir.
func newTestConfig(t *testing.T, rawURL string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.URL = rawURL
	cfg.OutputDir = filepath.Join(dir, "data")
	cfg.DBDir = filepath.Join(dir, "db")
	cfg.Workers = 2
	cfg.Timeout = 2 * time.Second
	cfg.DownloadTimeout = 2 * time.Second
	cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	return cfg
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".spider.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("reads flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		args := []string{
			"-r", "-l", "2", "-p", "./images",
			"-w", "3", "-t", "7s", "--download-timeout", "20s",
			"-d", "1m", "--max-pages", "9", "--proxy", "127.0.0.1:9050",
			"--report", "out.md", "--no-history", "-v",
			"-c", writeConfigFile(t, "sites: {}\n"),
		}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"http://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.Recursive {
			t.Error("expected recursive mode")
		}
		if cfg.MaxDepth != 2 {
			t.Errorf("expected depth 2, got %d", cfg.MaxDepth)
		}
		if cfg.OutputDir != "./images" {
			t.Errorf("expected ./images, got %q", cfg.OutputDir)
		}
		if cfg.Workers != 3 {
			t.Errorf("expected 3 workers, got %d", cfg.Workers)
		}
		if cfg.Timeout != 7*time.Second || cfg.DownloadTimeout != 20*time.Second {
			t.Errorf("expected timeouts 7s/20s, got %s/%s", cfg.Timeout, cfg.DownloadTimeout)
		}
		if cfg.Deadline != time.Minute {
			t.Errorf("expected deadline 1m, got %s", cfg.Deadline)
		}
		if cfg.MaxPages != 9 {
			t.Errorf("expected max pages 9, got %d", cfg.MaxPages)
		}
		if cfg.ProxyAddress != "127.0.0.1:9050" {
			t.Errorf("expected proxy address, got %q", cfg.ProxyAddress)
		}
		if cfg.ReportFile != "out.md" {
			t.Errorf("expected report file, got %q", cfg.ReportFile)
		}
		if cfg.SaveToDB {
			t.Error("expected history to be disabled")
		}
		if !cfg.Verbose {
			t.Error("expected verbose")
		}
		if cfg.URL != "http://example.com/" {
			t.Errorf("expected url, got %q", cfg.URL)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	})

	t.Run("uses defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", writeConfigFile(t, "sites: {}\n")}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"http://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Recursive {
			t.Error("expected single page mode")
		}
		if cfg.MaxDepth != config.DefaultMaxDepth {
			t.Errorf("expected depth %d, got %d", config.DefaultMaxDepth, cfg.MaxDepth)
		}
		if cfg.OutputDir != config.DefaultOutputDir {
			t.Errorf("expected %q, got %q", config.DefaultOutputDir, cfg.OutputDir)
		}
		if !cfg.SaveToDB {
			t.Error("expected history to be enabled")
		}
	})

	t.Run("site depth applies when level is not given", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "sites:\n  example.com:\n    depth: 3\n    userAgent: test-agent\n")

		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", path}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, err := buildConfig(cmd, []string{"http://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxDepth != 3 {
			t.Errorf("expected site depth 3, got %d", cfg.MaxDepth)
		}
		if cfg.UserAgent != "test-agent" {
			t.Errorf("expected site user agent, got %q", cfg.UserAgent)
		}
	})

	t.Run("explicit level wins over site depth", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "sites:\n  example.com:\n    depth: 3\n")

		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", path, "-l", "1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, err := buildConfig(cmd, []string{"http://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxDepth != 1 {
			t.Errorf("expected depth 1, got %d", cfg.MaxDepth)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := buildConfig(cmd, []string{"http://example.com/"})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", writeConfigFile(t, "sites: [unclosed\n")}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := buildConfig(cmd, []string{"http://example.com/"}); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("recursive crawl saves images, history and report", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := newTestConfig(t, srv.URL+"/")
		cfg.Recursive = true
		cfg.MaxDepth = 1
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "crawl.md")

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, &out, spiderlog.Discard()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := out.String()
		for _, want := range []string{
			"page status code is 200",
			"Starting recursive ...",
			"Crawl completed in",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}

		for _, name := range []string{"a.png", "b.jpg"} {
			if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
				t.Errorf("expected %s to be saved: %v", name, err)
			}
		}
		for _, name := range []string{"logo.svg", "c.gif"} {
			if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); !os.IsNotExist(err) {
				t.Errorf("expected %s not to be saved", name)
			}
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()

		crawls, err := db.ListCrawls(context.Background(), "", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(crawls) != 1 {
			t.Fatalf("expected 1 crawl in history, got %d", len(crawls))
		}
		if crawls[0].ImagesSaved != 2 {
			t.Errorf("expected 2 saved images, got %d", crawls[0].ImagesSaved)
		}
		if crawls[0].PagesVisited != 2 {
			t.Errorf("expected 2 visited pages, got %d", crawls[0].PagesVisited)
		}

		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Spider Crawl Report") {
			t.Error("expected markdown report")
		}
	})

	t.Run("single page mode does not follow links", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := newTestConfig(t, srv.URL+"/")
		cfg.SaveToDB = false

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, &out, spiderlog.Discard()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(out.String(), "Starting recursive") {
			t.Error("expected no recursive crawl")
		}
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, "a.png")); err != nil {
			t.Errorf("expected origin image to be saved: %v", err)
		}
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, "b.jpg")); !os.IsNotExist(err) {
			t.Error("expected linked page image not to be saved")
		}
		if _, err := os.Stat(cfg.DBDir); !os.IsNotExist(err) {
			t.Error("expected no history database")
		}
	})

	t.Run("writes json report", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := newTestConfig(t, srv.URL+"/")
		cfg.SaveToDB = false
		cfg.ReportFile = filepath.Join(t.TempDir(), "crawl.json")

		if err := runCrawl(context.Background(), cfg, &bytes.Buffer{}, spiderlog.Discard()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var got report.JSONReport
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("report is not valid JSON: %v", err)
		}
		if got.Version == "" {
			t.Error("expected version in report")
		}
		if got.Summary == nil || got.Summary.ImagesSaved != 1 {
			t.Errorf("expected 1 saved image in report, got %+v", got.Summary)
		}
	})

	t.Run("unreachable origin", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		target := srv.URL + "/"
		srv.Close()

		cfg := newTestConfig(t, target)

		var out bytes.Buffer
		err := runCrawl(context.Background(), cfg, &out, spiderlog.Discard())
		if !errors.Is(err, crawler.ErrOriginUnreachable) {
			t.Fatalf("expected ErrOriginUnreachable, got %v", err)
		}
		if !strings.Contains(out.String(), "Error: Unable to connect to "+target) {
			t.Errorf("expected connection error line, got %q", out.String())
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()

		crawls, err := db.ListCrawls(context.Background(), "", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(crawls) != 1 || crawls[0].Error == "" {
			t.Error("expected failed crawl to be recorded with its error")
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t, "ftp://example.com/")
		err := runCrawl(context.Background(), cfg, &bytes.Buffer{}, spiderlog.Discard())
		if !errors.Is(err, model.ErrUnsupportedScheme) {
			t.Errorf("expected ErrUnsupportedScheme, got %v", err)
		}
	})

	t.Run("proxy check failure", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		cfg := newTestConfig(t, "http://example.com/")
		cfg.ProxyAddress = addr

		err = runCrawl(context.Background(), cfg, &bytes.Buffer{}, spiderlog.Discard())
		if !errors.Is(err, transport.ErrProxyCannotConnect) {
			t.Errorf("expected ErrProxyCannotConnect, got %v", err)
		}
	})
}

func TestWriteReportFile(t *testing.T) {
	t.Parallel()

	summary := &model.CrawlSummary{Origin: "http://example.com/", ImagesSaved: 1}

	t.Run("text report by default", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "crawl.txt")
		if err := writeReportFile(path, summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "SPIDER CRAWL REPORT") {
			t.Error("expected text report")
		}
	})

	t.Run("nil summary", func(t *testing.T) {
		t.Parallel()

		if err := writeReportFile(filepath.Join(t.TempDir(), "x.md"), nil); err == nil {
			t.Error("expected error for nil summary")
		}
	})
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("text records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		setupLogger(&buf, false, false).Warn("page failed", "cookie", "sid=1")
		if !strings.Contains(buf.String(), "msg=\"page failed\"") {
			t.Errorf("expected text record, got %q", buf.String())
		}
		if strings.Contains(buf.String(), "sid=1") {
			t.Error("expected cookie to be redacted")
		}
	})

	t.Run("json records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		setupLogger(&buf, false, true).Warn("page failed")
		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("expected JSON record, got %q: %v", buf.String(), err)
		}
		if rec["msg"] != "page failed" {
			t.Errorf("expected msg, got %v", rec["msg"])
		}
	})

	t.Run("debug only when verbose", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		setupLogger(&buf, false, false).Debug("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
		setupLogger(&buf, true, false).Debug("shown")
		if !strings.Contains(buf.String(), "shown") {
			t.Error("expected debug record in verbose mode")
		}
	})
}
