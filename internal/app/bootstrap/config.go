// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/roomhub/internal/app/notify"
	"github.com/dalemusser/roomhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const minSessionKeyLen = 32

// appConfigKeys defines the configuration keys for RoomHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: ROOMHUB_MONGO_URI, ROOMHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "roomhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "roomhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	// Event fan-out
	{Name: "redis_url", Default: "", Desc: "Redis URL for cross-instance event fan-out (blank disables)"},
	{Name: "redis_events_channel", Default: notify.DefaultChannel, Desc: "Redis pub/sub channel for room events"},

	// Websocket
	{Name: "ws_allowed_origins", Default: "", Desc: "Comma-separated websocket origins (blank means same host only)"},

	// Message history paging
	{Name: "message_page_default", Default: 10, Desc: "Messages returned when no limit is given"},
	{Name: "message_page_max", Default: 100, Desc: "Largest accepted message page"},
	{Name: "message_rate_per_minute", Default: 60, Desc: "Messages a user may send per minute (0 disables throttling)"},
	{Name: "message_rate_burst", Default: 10, Desc: "Messages a user may send in a burst"},

	// Handler deadlines
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for queries and membership changes"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for room creation"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, ROOMHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ROOMHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		RedisURL:           strings.TrimSpace(appValues.String("redis_url")),
		RedisEventsChannel: appValues.String("redis_events_channel"),

		WSAllowedOrigins: splitList(appValues.String("ws_allowed_origins")),

		MessagePageDefault: appValues.Int("message_page_default"),
		MessagePageMax:     appValues.Int("message_page_max"),
		MessageRatePerMin:  appValues.Int("message_rate_per_minute"),
		MessageRateBurst:   appValues.Int("message_rate_burst"),

		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must not be blank")
	}
	if len(appCfg.SessionKey) < minSessionKeyLen {
		return fmt.Errorf("session_key must be at least %d characters", minSessionKeyLen)
	}
	if appCfg.MessagePageDefault <= 0 || appCfg.MessagePageMax <= 0 {
		return fmt.Errorf("message_page_default and message_page_max must be positive")
	}
	if appCfg.MessagePageDefault > appCfg.MessagePageMax {
		return fmt.Errorf("message_page_default (%d) exceeds message_page_max (%d)",
			appCfg.MessagePageDefault, appCfg.MessagePageMax)
	}
	if appCfg.MessageRatePerMin < 0 || appCfg.MessageRateBurst < 0 {
		return fmt.Errorf("message rate settings must not be negative")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size exceeds mongo_max_pool_size")
	}
	return nil
}

// splitList parses a comma-separated config value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
