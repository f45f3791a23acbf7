package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	ModeServer      = "server"
	ModeInteractive = "interactive"
	ModeHeadless    = "headless"
)

type Config struct {
	Mode         string
	DatabasePath string
	GRPCAddress  string
	MCPAddress   string
	LogLevel     string
	Locale       string
	UserID       int64
	ChatOrder    string
}

// Load parses the process flags. Environment variables provide the defaults.
func Load() (*Config, error) {
	cfg, err := Parse(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return cfg, nil
}

// Parse reads args into a Config using fs, looking defaults up with getenv.
func Parse(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".im-client")
	env := func(key, defaultValue string) string {
		if value := getenv(key); value != "" {
			return value
		}
		return defaultValue
	}

	cfg := &Config{}
	var user string

	fs.StringVar(&cfg.Mode, "mode", ModeServer, "Run mode: server, interactive, or headless")
	fs.StringVar(&cfg.DatabasePath, "db", env("IM_DATABASE_PATH", filepath.Join(dataDir, "im.db")), "Database file path")
	fs.StringVar(&cfg.GRPCAddress, "grpc-addr", env("IM_GRPC_ADDRESS", "127.0.0.1:50061"), "gRPC server address")
	fs.StringVar(&cfg.MCPAddress, "mcp-addr", env("IM_MCP_ADDRESS", "127.0.0.1:8090"), "MCP SSE server address")
	fs.StringVar(&cfg.LogLevel, "log-level", env("IM_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.Locale, "locale", env("IM_LOCALE", "en"), "Locale of display strings")
	fs.StringVar(&user, "user", env("IM_USER_ID", "1"), "Member id of the signed in user")
	fs.StringVar(&cfg.ChatOrder, "order", env("IM_CHAT_ORDER", "default"), "Chat list order, space separated sort keys")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case ModeServer, ModeInteractive, ModeHeadless:
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	id, err := strconv.ParseInt(user, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", user, err)
	}
	cfg.UserID = id

	return cfg, nil
}
