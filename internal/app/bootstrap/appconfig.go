// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig owns the
// framework-level settings: ports, TLS, logging level and request limits.
// Everything the chat service itself needs lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: roomhub-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Event fan-out. Blank RedisURL keeps notifications in-process.
	RedisURL           string
	RedisEventsChannel string

	// Websocket origins allowed to connect (scheme://host). Empty means same host only.
	WSAllowedOrigins []string

	// Message history paging
	MessagePageDefault int
	MessagePageMax     int

	// Per-user send throttle. MessageRatePerMin 0 disables it.
	MessageRatePerMin int
	MessageRateBurst  int

	// Handler deadlines, see system/timeouts
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
