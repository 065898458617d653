// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	BroadcastChatID  int64
	DatabasePath     string
	LogLevel         string
	SweepSpec        string
	JobsFeedURL      string
	AllowedUsers     []int64
}

// Load reads configuration from the environment, after loading an
// optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	rawBroadcast := os.Getenv("BROADCAST_CHAT_ID")
	if rawBroadcast == "" {
		return nil, fmt.Errorf("BROADCAST_CHAT_ID is required")
	}
	broadcast, err := strconv.ParseInt(rawBroadcast, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid BROADCAST_CHAT_ID %q: %w", rawBroadcast, err)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	sweepSpec := os.Getenv("SWEEP_SPEC")

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	return &Config{
		TelegramBotToken: token,
		BroadcastChatID:  broadcast,
		DatabasePath:     dbPath,
		LogLevel:         logLevel,
		SweepSpec:        sweepSpec,
		JobsFeedURL:      os.Getenv("JOBS_FEED_URL"),
		AllowedUsers:     allowedUsers,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
