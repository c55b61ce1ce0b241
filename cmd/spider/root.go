package main

import (
	"fmt"
	"os"
	"time"

	"github.com/nao1215/spider/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for spider.
// The root command itself runs a crawl; history, init and version are subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spider [flags] URL",
		Short: "Same-origin image crawler",
		Long: `spider fetches a web page, downloads every image it references and,
in recursive mode, follows links on the same origin up to a maximum depth.

Only <img> sources ending in .jpg, .jpeg, .png, .gif or .bmp are saved.
Links to other schemes, hosts or ports are never followed.

Examples:
  # Download the images of a single page into ./data
  spider https://example.com/

  # Follow same-origin links two hops deep and save into ./images
  spider -r -l 2 -p ./images https://example.com/

  # Crawl through a SOCKS5 proxy and write a Markdown summary
  spider -r --proxy 127.0.0.1:9050 --report crawl.md https://example.com/

Configuration file (.spider.yaml) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 3
      ignorePatterns:
        - "/logout*"`,
		Version:       getVersion(),
		Args:          cobra.ExactArgs(1),
		RunE:          runCrawlCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write log records as JSON")

	// Crawl flags
	cmd.Flags().BoolP("recursive", "r", false,
		"Follow same-origin links from the starting page")
	cmd.Flags().IntP("level", "l", config.DefaultMaxDepth,
		"Maximum number of hops followed in recursive mode")
	cmd.Flags().StringP("path", "p", config.DefaultOutputDir,
		"Directory downloaded images are saved to")

	// Behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of pages fetched and images downloaded concurrently")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().Duration("download-timeout", config.DefaultDownloadTimeout,
		"Timeout for each image download")
	cmd.Flags().DurationP("deadline", "d", time.Duration(0),
		"Stop the whole crawl after this duration (0 means no deadline)")
	cmd.Flags().Int("max-pages", config.DefaultMaxPages,
		"Maximum number of pages to fetch (0 means no limit)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .spider.yaml in current or home directory)")

	// Output flags
	cmd.Flags().String("report", "",
		"Write a crawl summary to this file (.md, .json or plain text by extension)")
	cmd.Flags().Bool("no-history", false,
		"Do not record this crawl in the history database")

	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
