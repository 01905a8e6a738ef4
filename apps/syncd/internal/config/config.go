// Package config loads syncd's configuration: an optional YAML file
// (SYNCD_CONFIG) for connection and pipeline defaults, with environment
// variables taking precedence. There is no process-wide config state;
// main loads a Config value and threads it into what needs it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full syncd configuration.
type Config struct {
	Port string `yaml:"port"`

	// GitHub connection. APIURL empty means the public GitHub API; WebURL is
	// used to build repository/branch URLs in publish results.
	GitHub struct {
		APIURL string `yaml:"apiUrl"`
		WebURL string `yaml:"webUrl"`
		Token  string `yaml:"-"` // env only, never from file

		// App credentials; set all three to authenticate as a GitHub App
		// installation instead of a token.
		AppID          int64  `yaml:"appId"`
		InstallationID int64  `yaml:"installationId"`
		PrivateKeyPath string `yaml:"privateKeyPath"`
	} `yaml:"github"`

	Publish struct {
		BlobConcurrency int    `yaml:"blobConcurrency"`
		CreationGrace   string `yaml:"creationGrace"` // Go duration string, e.g. "2s"
		RetryMaxTries   int    `yaml:"retryMaxTries"`
	} `yaml:"publish"`
}

// Load reads the YAML file at path (skipped when path is empty), then applies
// environment overrides: PORT, GITHUB_API_URL, GITHUB_WEB_URL, GITHUB_TOKEN.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		cfg.GitHub.APIURL = v
	}
	if v := os.Getenv("GITHUB_WEB_URL"); v != "" {
		cfg.GitHub.WebURL = v
	}
	cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.GitHub.WebURL == "" {
		cfg.GitHub.WebURL = "https://github.com"
	}
	return cfg, nil
}

// CreationGrace parses the configured propagation grace period, falling back
// to the given default on absence or parse failure.
func (c *Config) CreationGrace(fallback time.Duration) time.Duration {
	if c.Publish.CreationGrace == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.Publish.CreationGrace)
	if err != nil {
		return fallback
	}
	return d
}
