// Package chat parses support chat command flags and composes transport
// entrypoints.
package chat

import (
	"context"
	"flag"
	"fmt"

	server "github.com/relooped/supportchat/internal/chat/app"
	entrypoint "github.com/relooped/supportchat/internal/platform/cmd"
)

// Config holds support chat command configuration.
type Config struct {
	HTTPAddr           string `env:"SUPPORTCHAT_HTTP_ADDR"            envDefault:":8087"`
	AuthBaseURL        string `env:"SUPPORTCHAT_AUTH_BASE_URL"`
	AuthResourceSecret string `env:"SUPPORTCHAT_AUTH_RESOURCE_SECRET"`
	DBPath             string `env:"SUPPORTCHAT_DB_PATH"              envDefault:"supportchat.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "chat HTTP listen address")
	fs.StringVar(&cfg.AuthBaseURL, "auth-base-url", cfg.AuthBaseURL, "shop auth base URL, empty disables websocket auth")
	fs.StringVar(&cfg.AuthResourceSecret, "auth-resource-secret", cfg.AuthResourceSecret, "auth introspection resource secret")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "transcript database path, empty disables persistence")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the chat app and starts realtime transport behavior.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSupportChat, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:           cfg.HTTPAddr,
			AuthBaseURL:        cfg.AuthBaseURL,
			AuthResourceSecret: cfg.AuthResourceSecret,
			DBPath:             cfg.DBPath,
		}); err != nil {
			return fmt.Errorf("serve chat: %w", err)
		}
		return nil
	})
}
