package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nao1215/spider/internal/config"
	"github.com/nao1215/spider/internal/database"
	"github.com/nao1215/spider/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of crawls listed when --limit is not given.
const defaultHistoryLimit = 20

// errCrawlNotFound is returned when --id names a crawl that is not stored.
var errCrawlNotFound = errors.New("crawl not found")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past crawls",
		Long: `History lists crawls recorded in the history database, newest first.

The database lives in the XDG data directory (~/.local/share/spider on Linux).

Examples:
  # List the last 20 crawls
  spider history

  # Show every download of crawl 3 as Markdown
  spider history --id 3 --markdown

  # List crawls of one site as JSON
  spider history --origin https://example.com/ --json

  # Remove a crawl
  spider history --delete 3`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of crawls to list (0 means all)")
	cmd.Flags().String("origin", "",
		"Only list crawls started from this URL")
	cmd.Flags().Int64("id", 0,
		"Show the full summary of one crawl")
	cmd.Flags().Int64("delete", 0,
		"Delete one crawl and its downloads")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")
	_ = cmd.Flags().MarkHidden("db-dir") //nolint:errcheck // flag is defined above

	cmd.MarkFlagsMutuallyExclusive("markdown", "json")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	limit    int
	origin   string
	id       int64
	deleteID int64
	format   report.Format
	dbDir    string
}

func parseHistoryFlags(cmd *cobra.Command) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{format: report.FormatText}

	var err error
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if opts.origin, err = flags.GetString("origin"); err != nil {
		return nil, err
	}
	if opts.id, err = flags.GetInt64("id"); err != nil {
		return nil, err
	}
	if opts.deleteID, err = flags.GetInt64("delete"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	markdownOut, err := flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}
	jsonOut, err := flags.GetBool("json")
	if err != nil {
		return nil, err
	}
	switch {
	case markdownOut:
		opts.format = report.FormatMarkdown
	case jsonOut:
		opts.format = report.FormatJSON
	}

	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}
	return runHistory(cmd.Context(), opts, cmd.OutOrStdout())
}

// runHistory opens the history database read-only and runs the selected action.
// A database that was never created means no crawls yet.
func runHistory(ctx context.Context, opts *historyOptions, out io.Writer) error {
	dbOpts := database.DefaultOptions()
	dbOpts.CreateIfNotExists = false

	db, err := database.Open(opts.dbDir, dbOpts)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(out, "No crawls recorded.")
			return nil
		}
		return err
	}
	defer db.Close()

	w := report.NewWriter(opts.format, out)

	switch {
	case opts.deleteID > 0:
		if err := db.DeleteCrawl(ctx, opts.deleteID); err != nil {
			return fmt.Errorf("failed to delete crawl %d: %w", opts.deleteID, err)
		}
		fmt.Fprintf(out, "Deleted crawl %d\n", opts.deleteID)
		return nil

	case opts.id > 0:
		summary, err := db.GetCrawl(ctx, opts.id)
		if err != nil {
			return err
		}
		if summary == nil {
			return fmt.Errorf("%w: %d", errCrawlNotFound, opts.id)
		}
		_, err = w.Write(summary)
		return err

	default:
		crawls, err := db.ListCrawls(ctx, opts.origin, opts.limit)
		if err != nil {
			return err
		}
		_, err = w.WriteHistory(crawls)
		return err
	}
}
