// Package main provides the entry point for the spider CLI.
//
// spider crawls a web site starting from one URL, staying on the same
// origin, and saves every image it finds to a local directory.
//
// Usage:
//
//	spider [flags] URL
//	spider -r -l 2 -p ./images https://example.com/
//
// See --help for all available options.
package main

// main is the entry point for spider.
func main() {
	Execute()
}
