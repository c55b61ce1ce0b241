package config

import (
	"net/url"
	"strings"
)

// SiteConfig holds settings for a single site.
type SiteConfig struct {
	// Cookie is sent with every page and image request to the site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to the site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the default User-Agent for the site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Depth overrides the default crawl depth when -l is not given.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are URL path globs that are never followed.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, if set, restrict following to matching URL paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .spider.yaml configuration file.
type File struct {
	// Sites maps host names (optionally with port) to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the merged configuration for the host of rawURL.
// Lookup tries host:port first, then the bare host name.
func (cf *File) GetSiteConfig(rawURL string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	result := cf.Defaults

	site, ok := cf.lookup(rawURL)
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.Depth != 0 {
		result.Depth = site.Depth
	}
	if len(site.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(site.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range site.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}

	return result
}

func (cf *File) lookup(rawURL string) (SiteConfig, bool) {
	if len(cf.Sites) == 0 {
		return SiteConfig{}, false
	}

	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return SiteConfig{}, false
	}

	for _, key := range []string{strings.ToLower(u.Host), strings.ToLower(u.Hostname())} {
		if site, ok := cf.Sites[key]; ok {
			return site, true
		}
	}
	return SiteConfig{}, false
}
