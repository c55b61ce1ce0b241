package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

const shortCommitLen = 7

// getVersion prefers ldflags, then the module version, then "(devel)".
func getVersion() string {
	modVersion := ""
	if info, ok := debug.ReadBuildInfo(); ok {
		modVersion = info.Main.Version
	}
	return firstNonEmpty(version, modVersion, "(devel)")
}

// getCommit prefers ldflags, then the abbreviated VCS revision.
func getCommit() string {
	rev := vcsSetting("vcs.revision")
	if len(rev) > shortCommitLen {
		rev = rev[:shortCommitLen]
	}
	return firstNonEmpty(commit, rev, "unknown")
}

// getDate prefers ldflags, then the VCS commit time.
func getDate() string {
	return firstNonEmpty(date, vcsSetting("vcs.time"), "unknown")
}

// vcsSetting returns the build setting named key, or "" if absent.
func vcsSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, build date and Go version of spider.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "spider version %s\n", getVersion())
			fmt.Fprintf(w, "  commit: %s\n", getCommit())
			fmt.Fprintf(w, "  built:  %s\n", getDate())
			fmt.Fprintf(w, "  go:     %s\n", runtime.Version())
		},
	}
}
