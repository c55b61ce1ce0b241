package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/spider/internal/database"
	"github.com/nao1215/spider/internal/model"
	"github.com/nao1215/spider/internal/report"
)

// seedHistory stores two crawls and returns the database directory and
// the ID of the newer one.
func seedHistory(t *testing.T) (string, int64) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	older := &model.CrawlSummary{
		Origin:     "http://old.example.com/",
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	if _, err := db.SaveCrawl(context.Background(), older); err != nil {
		t.Fatalf("failed to save crawl: %v", err)
	}

	newer := &model.CrawlSummary{
		Origin:       "http://example.com/",
		Recursive:    true,
		MaxDepth:     2,
		StartedAt:    started.Add(time.Hour),
		FinishedAt:   started.Add(time.Hour + time.Second),
		PagesVisited: 2,
	}
	newer.AddDownload(model.Saved("http://example.com/a.png", "data/a.png", 9))
	newer.AddDownload(model.Failed("http://example.com/b.png", errors.New("unexpected status: 404")))

	id, err := db.SaveCrawl(context.Background(), newer)
	if err != nil {
		t.Fatalf("failed to save crawl: %v", err)
	}

	return dir, id
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	if cmd.Use != "history" {
		t.Errorf("expected use 'history', got %q", cmd.Use)
	}
	for _, name := range []string{"limit", "origin", "id", "delete", "markdown", "json"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}

	t.Run("markdown and json are exclusive", func(t *testing.T) {
		t.Parallel()

		c := NewHistoryCmd()
		c.SetOut(&bytes.Buffer{})
		c.SetArgs([]string{"--markdown", "--json", "--db-dir", t.TempDir()})
		if err := c.Execute(); err == nil {
			t.Error("expected error for --markdown with --json")
		}
	})
}

func TestRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("lists crawls newest first", func(t *testing.T) {
		t.Parallel()

		dir, _ := seedHistory(t)

		var buf bytes.Buffer
		opts := &historyOptions{dbDir: dir, limit: defaultHistoryLimit, format: report.FormatText}
		if err := runHistory(context.Background(), opts, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		newer := strings.Index(output, "http://example.com/")
		older := strings.Index(output, "http://old.example.com/")
		if newer < 0 || older < 0 {
			t.Fatalf("expected both crawls, got %q", output)
		}
		if newer > older {
			t.Error("expected newest crawl first")
		}
	})

	t.Run("filters by origin and limit", func(t *testing.T) {
		t.Parallel()

		dir, _ := seedHistory(t)

		var buf bytes.Buffer
		opts := &historyOptions{dbDir: dir, origin: "http://old.example.com/", format: report.FormatJSON}
		if err := runHistory(context.Background(), opts, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var crawls []*model.CrawlSummary
		if err := json.Unmarshal(buf.Bytes(), &crawls); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(crawls) != 1 || crawls[0].Origin != "http://old.example.com/" {
			t.Errorf("expected only the old crawl, got %+v", crawls)
		}

		buf.Reset()
		opts = &historyOptions{dbDir: dir, limit: 1, format: report.FormatJSON}
		if err := runHistory(context.Background(), opts, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		crawls = nil
		if err := json.Unmarshal(buf.Bytes(), &crawls); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(crawls) != 1 {
			t.Errorf("expected 1 crawl, got %d", len(crawls))
		}
	})

	t.Run("shows one crawl with downloads", func(t *testing.T) {
		t.Parallel()

		dir, id := seedHistory(t)

		var buf bytes.Buffer
		opts := &historyOptions{dbDir: dir, id: id, format: report.FormatMarkdown}
		if err := runHistory(context.Background(), opts, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# Spider Crawl Report") {
			t.Error("expected full report")
		}
		if !strings.Contains(output, "data/a.png") {
			t.Error("expected saved download")
		}
		if !strings.Contains(output, "unexpected status: 404") {
			t.Error("expected failed download reason")
		}
	})

	t.Run("unknown crawl id", func(t *testing.T) {
		t.Parallel()

		dir, _ := seedHistory(t)

		opts := &historyOptions{dbDir: dir, id: 9999}
		err := runHistory(context.Background(), opts, &bytes.Buffer{})
		if !errors.Is(err, errCrawlNotFound) {
			t.Errorf("expected errCrawlNotFound, got %v", err)
		}
	})

	t.Run("deletes a crawl", func(t *testing.T) {
		t.Parallel()

		dir, id := seedHistory(t)

		var buf bytes.Buffer
		if err := runHistory(context.Background(), &historyOptions{dbDir: dir, deleteID: id}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Deleted crawl") {
			t.Errorf("expected confirmation, got %q", buf.String())
		}

		buf.Reset()
		if err := runHistory(context.Background(), &historyOptions{dbDir: dir, format: report.FormatJSON}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var crawls []*model.CrawlSummary
		if err := json.Unmarshal(buf.Bytes(), &crawls); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(crawls) != 1 {
			t.Errorf("expected 1 crawl left, got %d", len(crawls))
		}
	})

	t.Run("missing database", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		opts := &historyOptions{dbDir: filepath.Join(t.TempDir(), "none")}
		if err := runHistory(context.Background(), opts, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "No crawls recorded.\n" {
			t.Errorf("expected empty message, got %q", buf.String())
		}
	})
}
