// Package config provides centralized configuration for the quote-form harness.
// It loads configuration from environment variables and CLI flags, validates it,
// and applies the defaults the quote page is exercised with.
//
// CLI flags override environment variables. Environment variables configure
// runs under `go test`, where no flags are parsed.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTargetURL       = "http://localhost/prog8170a04/getQuote.html"
	DefaultPageLoadTimeout = 30 * time.Second
	DefaultWaitTimeout     = 20 * time.Second
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultBrowser         = "chromium"
)

// Config holds all harness configuration.
type Config struct {
	// Target system
	TargetURL string

	// Browser launch
	Browser         string // chromium, firefox or webkit
	Headless        bool
	PageLoadTimeout time.Duration
	ImplicitWait    time.Duration // always zero; waits are explicit polls
	WaitTimeout     time.Duration // explicit-wait ceiling
	PollInterval    time.Duration

	// Failure artifacts
	ArtifactDir    string // local directory; empty disables local artifacts
	ArtifactBucket string // S3 bucket; empty disables upload
	AWSEndpointS3  string
	AWSRegion      string
	AWSAccessKeyID string
	AWSSecretKey   string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Flags holds CLI overrides. Zero values mean "not set".
type Flags struct {
	TargetURL string
	Headless  string // "", "true" or "false"
	Browser   string
}

// RegisterFlags registers harness override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.TargetURL, "url", "", "Quote page URL (overrides QUOTE_TARGET_URL)")
	fs.StringVar(&f.Headless, "headless", "", "Run browser headless: true or false (overrides QUOTE_HEADLESS)")
	fs.StringVar(&f.Browser, "browser", "", "Browser engine: chromium, firefox, webkit (overrides QUOTE_BROWSER)")
	return f
}

// Default returns the configuration with every default applied and no env lookups.
func Default() *Config {
	return &Config{
		TargetURL:       DefaultTargetURL,
		Browser:         DefaultBrowser,
		Headless:        true,
		PageLoadTimeout: DefaultPageLoadTimeout,
		WaitTimeout:     DefaultWaitTimeout,
		PollInterval:    DefaultPollInterval,
		AWSRegion:       "us-east-1",
	}
}

// LoadConfig loads configuration from environment variables, applies flag
// overrides when flags is non-nil, and validates the result.
func LoadConfig(flags *Flags) (*Config, error) {
	cfg := Default()

	cfg.TargetURL = getEnvOrDefault("QUOTE_TARGET_URL", cfg.TargetURL)
	cfg.Browser = strings.ToLower(getEnvOrDefault("QUOTE_BROWSER", cfg.Browser))
	cfg.Headless = parseBoolOrDefault("QUOTE_HEADLESS", cfg.Headless)
	cfg.PageLoadTimeout = parseDurationOrDefault("QUOTE_PAGE_LOAD_TIMEOUT", cfg.PageLoadTimeout)
	cfg.WaitTimeout = parseDurationOrDefault("QUOTE_WAIT_TIMEOUT", cfg.WaitTimeout)
	cfg.PollInterval = parseDurationOrDefault("QUOTE_POLL_INTERVAL", cfg.PollInterval)

	cfg.ArtifactDir = getEnvOrDefault("QUOTE_ARTIFACT_DIR", "")
	cfg.ArtifactBucket = getEnvOrDefault("QUOTE_ARTIFACT_BUCKET", "")
	cfg.AWSEndpointS3 = getEnvOrDefault("AWS_ENDPOINT_URL_S3", "")
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", cfg.AWSRegion)
	cfg.AWSAccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", "")

	if flags != nil {
		if v := strings.TrimSpace(flags.TargetURL); v != "" {
			cfg.TargetURL = v
		}
		if v := strings.TrimSpace(flags.Browser); v != "" {
			cfg.Browser = strings.ToLower(v)
		}
		if v := strings.TrimSpace(flags.Headless); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return nil, &ValidationError{Errors: []string{fmt.Sprintf("-headless must be true or false, got %q", v)}}
			}
			cfg.Headless = parsed
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.TargetURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("QUOTE_TARGET_URL must be an absolute http(s) URL, got %q", c.TargetURL))
	}

	switch c.Browser {
	case "chromium", "firefox", "webkit":
	default:
		errs = append(errs, fmt.Sprintf("QUOTE_BROWSER must be chromium, firefox or webkit, got %q", c.Browser))
	}

	if c.PageLoadTimeout <= 0 {
		errs = append(errs, "QUOTE_PAGE_LOAD_TIMEOUT must be positive")
	}
	if c.WaitTimeout <= 0 {
		errs = append(errs, "QUOTE_WAIT_TIMEOUT must be positive")
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "QUOTE_POLL_INTERVAL must be positive")
	} else if c.WaitTimeout > 0 && c.PollInterval > c.WaitTimeout {
		errs = append(errs, "QUOTE_POLL_INTERVAL must not exceed QUOTE_WAIT_TIMEOUT")
	}
	if c.ImplicitWait != 0 {
		errs = append(errs, "implicit wait must be zero; use explicit polls")
	}

	if c.ArtifactBucket != "" {
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when QUOTE_ARTIFACT_BUCKET is set")
		}
		if c.AWSSecretKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when QUOTE_ARTIFACT_BUCKET is set")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "quotecheck starting...")
	fmt.Fprintf(os.Stderr, "  Target:    %s\n", c.TargetURL)
	mode := "headed"
	if c.Headless {
		mode = "headless"
	}
	fmt.Fprintf(os.Stderr, "  Browser:   %s (%s)\n", c.Browser, mode)
	fmt.Fprintf(os.Stderr, "  Timeouts:  page load %s, wait %s, poll %s\n", c.PageLoadTimeout, c.WaitTimeout, c.PollInterval)
	switch {
	case c.ArtifactBucket != "":
		fmt.Fprintf(os.Stderr, "  Artifacts: s3://%s\n", c.ArtifactBucket)
	case c.ArtifactDir != "":
		fmt.Fprintf(os.Stderr, "  Artifacts: %s\n", c.ArtifactDir)
	default:
		fmt.Fprintln(os.Stderr, "  Artifacts: disabled")
	}
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
func MustLoadConfig(flags *Flags) *Config {
	cfg, err := LoadConfig(flags)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
