package config

import (
	"flag"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestDefault_MatchesQuotePageTimeouts(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if cfg.PageLoadTimeout != 30*time.Second {
		t.Fatalf("page load timeout = %v, want 30s", cfg.PageLoadTimeout)
	}
	if cfg.WaitTimeout != 20*time.Second {
		t.Fatalf("wait timeout = %v, want 20s", cfg.WaitTimeout)
	}
	if cfg.ImplicitWait != 0 {
		t.Fatalf("implicit wait = %v, want 0", cfg.ImplicitWait)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("QUOTE_TARGET_URL", "http://127.0.0.1:9999/getQuote.html")
	t.Setenv("QUOTE_HEADLESS", "false")
	t.Setenv("QUOTE_WAIT_TIMEOUT", "5s")
	t.Setenv("QUOTE_BROWSER", "Firefox")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.TargetURL != "http://127.0.0.1:9999/getQuote.html" {
		t.Fatalf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.Headless {
		t.Fatal("Headless should be false")
	}
	if cfg.WaitTimeout != 5*time.Second {
		t.Fatalf("WaitTimeout = %v", cfg.WaitTimeout)
	}
	if cfg.Browser != "firefox" {
		t.Fatalf("Browser = %q", cfg.Browser)
	}
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("QUOTE_TARGET_URL", "http://env.example/getQuote.html")
	t.Setenv("QUOTE_HEADLESS", "true")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-url", "http://flag.example/getQuote.html", "-headless", "false"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadConfig(flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.TargetURL != "http://flag.example/getQuote.html" {
		t.Fatalf("flag should win over env, got %q", cfg.TargetURL)
	}
	if cfg.Headless {
		t.Fatal("flag -headless=false should win over env")
	}
}

func TestLoadConfig_RejectsBadHeadlessFlag(t *testing.T) {
	_, err := LoadConfig(&Flags{Headless: "sometimes"})
	if err == nil || !strings.Contains(err.Error(), "-headless") {
		t.Fatalf("expected -headless validation error, got %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.TargetURL = "not a url"
	cfg.Browser = "netscape"
	cfg.WaitTimeout = 0
	cfg.ArtifactBucket = "artifacts"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, token := range []string{
		"QUOTE_TARGET_URL",
		"QUOTE_BROWSER",
		"QUOTE_WAIT_TIMEOUT",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
	} {
		if !strings.Contains(msg, token) {
			t.Fatalf("expected validation error to mention %q, got: %v", token, err)
		}
	}
}

func testValidate_RejectsNonPositiveTimeouts(t *rapid.T) {
	cfg := Default()
	cfg.PageLoadTimeout = time.Duration(rapid.Int64Range(-int64(time.Hour), 0).Draw(t, "page_load"))
	cfg.PollInterval = time.Duration(rapid.Int64Range(-int64(time.Hour), 0).Draw(t, "poll"))

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for non-positive timeouts")
	}
	for _, token := range []string{"QUOTE_PAGE_LOAD_TIMEOUT", "QUOTE_POLL_INTERVAL"} {
		if !strings.Contains(err.Error(), token) {
			t.Fatalf("expected error mentioning %q, got: %v", token, err)
		}
	}
}

func TestValidate_RejectsNonPositiveTimeouts(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_RejectsNonPositiveTimeouts)
}

func TestHelperParsers_DefaultOnBadInput(t *testing.T) {
	t.Setenv("CFG_TEST_BOOL", "not-a-bool")
	t.Setenv("CFG_TEST_DUR", "not-a-duration")
	if got := parseBoolOrDefault("CFG_TEST_BOOL", true); !got {
		t.Fatalf("parseBoolOrDefault fallback mismatch: got=%v want=true", got)
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 2*time.Minute); got != 2*time.Minute {
		t.Fatalf("parseDurationOrDefault fallback mismatch: got=%v want=%v", got, 2*time.Minute)
	}
}

func TestGetEnvOrDefault_TrimsWhitespace(t *testing.T) {
	t.Setenv("CFG_TEST_STR", "   value   ")
	if got := getEnvOrDefault("CFG_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("getEnvOrDefault trim mismatch: got=%q want=%q", got, "value")
	}
}

func TestMustLoadConfig_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("QUOTE_TARGET_URL", "ftp://nope")
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic")
		}
	}()
	MustLoadConfig(nil)
}
