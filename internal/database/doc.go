// Package database keeps the crawl history in SQLite.
//
// Every finished crawl is stored as one row in the crawls table with its
// counters, and one row per download attempt in the downloads table. The
// history subcommand reads it back. Downloaded images themselves stay in the
// output directory; the database only records where they went.
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver, so the
// binary cross-compiles without a C toolchain. The database file lives in
// the XDG data directory unless configured otherwise.
package database
