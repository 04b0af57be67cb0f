package realtime

import (
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestCheckOrigin(t *testing.T) {
	configured := NewHandler(nil, nil, []string{"https://Chat.Example.com", "not a url"}, zap.NewNop())
	sameHost := NewHandler(nil, nil, nil, zap.NewNop())

	tests := []struct {
		name   string
		h      *Handler
		host   string
		origin string
		want   bool
	}{
		{"no origin header", configured, "api.example.com", "", true},
		{"configured match ignores case", configured, "api.example.com", "https://chat.example.com", true},
		{"scheme must match", configured, "api.example.com", "http://chat.example.com", false},
		{"other host rejected", configured, "api.example.com", "https://evil.example.com", false},
		{"path rejected", configured, "api.example.com", "https://chat.example.com/x", false},
		{"same host when unconfigured", sameHost, "chat.local:8080", "http://chat.local:8080", true},
		{"cross host when unconfigured", sameHost, "chat.local:8080", "http://other.local", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://"+tc.host+"/ws", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if got := tc.h.checkOrigin(req); got != tc.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tc.origin, got, tc.want)
			}
		})
	}
}
