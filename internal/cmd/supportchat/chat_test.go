package chat

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("supportchat", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8087" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "supportchat.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.AuthBaseURL != "" {
		t.Fatalf("expected auth disabled by default, got %q", cfg.AuthBaseURL)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("SUPPORTCHAT_HTTP_ADDR", "env-chat")
	t.Setenv("SUPPORTCHAT_AUTH_BASE_URL", "env-auth")
	t.Setenv("SUPPORTCHAT_DB_PATH", "env-db")

	fs := flag.NewFlagSet("supportchat", flag.ContinueOnError)
	args := []string{
		"-http-addr", "flag-chat",
		"-auth-base-url", "flag-auth",
		"-db-path", "flag-db",
	}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-chat" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.AuthBaseURL != "flag-auth" {
		t.Fatalf("expected flag auth base url, got %q", cfg.AuthBaseURL)
	}
	if cfg.DBPath != "flag-db" {
		t.Fatalf("expected flag db path, got %q", cfg.DBPath)
	}
}

func TestParseConfigEnvironmentOnly(t *testing.T) {
	t.Setenv("SUPPORTCHAT_HTTP_ADDR", "env-chat")

	fs := flag.NewFlagSet("supportchat", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "env-chat" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
}
