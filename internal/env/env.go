package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	AdminSecretKey   = "ADMIN_SECRET"
	AdminTokenTTL    = "ADMIN_TOKEN_TTL"
	ChatRedisURL     = "CHAT_REDIS_URL"
	ChatRedisPass    = "CHAT_REDIS_PASS"
	ChannelSecret    = "CHANNEL_SECRET"
	AttachmentBucket = "ATTACHMENTS_BUCKET"
	S3Endpoint       = "S3_ENDPOINT"
	AllowedOrigins   = "ALLOWED_ORIGINS"
	StorageBackend   = "STORAGE_BACKEND"
	LogLevel         = "LOG_LEVEL"
	LogFile          = "LOG_FILE"
	EnvFile          = "ENV_FILE"

	BootstrapAdminName     = "BOOTSTRAP_ADMIN_NAME"
	BootstrapAdminEmail    = "BOOTSTRAP_ADMIN_EMAIL"
	BootstrapAdminPassword = "BOOTSTRAP_ADMIN_PASSWORD"

	InboxAPIURL   = "INBOX_API_URL"
	InboxWSURL    = "INBOX_WS_URL"
	InboxToken    = "INBOX_TOKEN"
	InboxEmail    = "INBOX_EMAIL"
	InboxPassword = "INBOX_PASSWORD"

	AdminListenAddr   = "ADMIN_LISTEN_ADDR"
	ChannelListenAddr = "CHANNEL_LISTEN_ADDR"
	WSListenAddr      = "WS_LISTEN_ADDR"
)

const (
	StorageDynamo = "dynamodb"
	StorageMemory = "memory"
)

// Load reads a .env file into the process environment. Variables that are
// already set win. A missing file is not an error.
func Load() error {
	path := GetOrDefault(EnvFile, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("env: load %s: %w", path, err)
	}
	return nil
}

// Require reports the first key in keys that has no value.
func Require(keys ...string) error {
	for _, key := range keys {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			return fmt.Errorf("env: required environment variable not set: %s", key)
		}
	}
	return nil
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}

// GetList splits a comma separated variable, dropping empty entries.
func GetList(key string, defaultVal []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultVal
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func GetDuration(key string, defaultVal time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

// ChannelOutboundURL returns the adapter endpoint for a channel, read from
// CHANNEL_<NAME>_OUTBOUND_URL.
func ChannelOutboundURL(channel string) string {
	return os.Getenv("CHANNEL_" + strings.ToUpper(channel) + "_OUTBOUND_URL")
}
