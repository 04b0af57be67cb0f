// internal/app/system/limits/limits.go
package limits

// Size limits for request bodies and websocket frames.
// These limits help prevent memory exhaustion from oversized input.
const (
	// MaxJSONBody is the maximum size of a JSON API request body.
	MaxJSONBody = 64 << 10 // 64 KB

	// MaxSocketFrame is the largest frame read from a websocket client.
	// Clients only send control frames, so this stays small.
	MaxSocketFrame = 4 << 10 // 4 KB
)
