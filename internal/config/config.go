package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string
	AdminID       int64

	// GitHub-hosted map status document
	GitHubToken   string
	GitHubOwner   string
	GitHubRepo    string
	GitHubBranch  string
	MapStatusPath string

	// Local persistence (user registry + enabled-flag mirror)
	DataPath string

	// Logging
	LogLevel string
	LogFile  string // optional rotating file sink, console only when empty
}

// LoadFromEnv loads configuration from environment variables. Missing
// required values are a startup error: the bot never runs partially
// configured.
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Admin identity (required). A single Telegram user ID gates every
	// administrative action.
	adminStr := os.Getenv("ADMIN_ID")
	if adminStr == "" {
		return nil, fmt.Errorf("ADMIN_ID is required (Telegram user ID of the bot admin)")
	}
	adminID, err := strconv.ParseInt(adminStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_ID: %s", adminStr)
	}
	config.AdminID = adminID

	// GitHub store (required)
	config.GitHubToken = os.Getenv("GITHUB_TOKEN")
	if config.GitHubToken == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN is required")
	}
	config.GitHubOwner = os.Getenv("GITHUB_OWNER")
	if config.GitHubOwner == "" {
		return nil, fmt.Errorf("GITHUB_OWNER is required")
	}
	config.GitHubRepo = os.Getenv("GITHUB_REPO")
	if config.GitHubRepo == "" {
		return nil, fmt.Errorf("GITHUB_REPO is required")
	}

	config.GitHubBranch = os.Getenv("GITHUB_BRANCH")
	if config.GitHubBranch == "" {
		config.GitHubBranch = "main"
	}

	config.MapStatusPath = os.Getenv("MAP_STATUS_PATH")
	if config.MapStatusPath == "" {
		config.MapStatusPath = "map-status.json"
	}

	config.DataPath = os.Getenv("DATA_PATH")
	if config.DataPath == "" {
		config.DataPath = "data/genesis.db"
	}

	config.LogLevel = os.Getenv("LOG_LEVEL")
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	// Optional, no default: file logging is off unless a path is given
	config.LogFile = os.Getenv("LOG_FILE")

	return config, nil
}
