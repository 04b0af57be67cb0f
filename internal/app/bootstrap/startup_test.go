package bootstrap

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/roomhub/internal/app/realtime"
	"github.com/dalemusser/roomhub/internal/app/system/timeouts"
	"github.com/dalemusser/roomhub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "roomhub",
		MongoMaxPoolSize:   100,
		MongoMinPoolSize:   10,
		SessionKey:         strings.Repeat("k", 32),
		SessionName:        "roomhub-session",
		SessionMaxAge:      time.Hour,
		RedisEventsChannel: "roomhub:events",
		MessagePageDefault: 10,
		MessagePageMax:     100,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", func(*AppConfig) {}, false},
		{"blank mongo uri", func(c *AppConfig) { c.MongoURI = "" }, true},
		{"blank database", func(c *AppConfig) { c.MongoDatabase = "" }, true},
		{"short session key", func(c *AppConfig) { c.SessionKey = "short" }, true},
		{"page default over max", func(c *AppConfig) { c.MessagePageDefault = 200 }, true},
		{"zero page max", func(c *AppConfig) { c.MessagePageMax = 0 }, true},
		{"min pool over max", func(c *AppConfig) { c.MongoMinPoolSize = 500 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{}, cfg, testLogger())
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example.com, ,https://b.example.com ,")
	if len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Errorf("splitList: got %q", got)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\"): got %q, want nil", got)
	}
}

func TestStartup_ConfiguresTimeouts(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	cfg := validConfig()
	cfg.TimeoutShort = 1 * time.Second
	cfg.TimeoutMedium = 0
	cfg.TimeoutLong = 45 * time.Second

	if err := Startup(context.Background(), &config.CoreConfig{}, cfg, DBDeps{}, testLogger()); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	if got := timeouts.Short(); got != time.Second {
		t.Errorf("Short: got %v, want 1s", got)
	}
	if got := timeouts.Medium(); got != timeouts.DefaultMedium {
		t.Errorf("Medium: got %v, want default %v", got, timeouts.DefaultMedium)
	}
	if got := timeouts.Long(); got != 45*time.Second {
		t.Errorf("Long: got %v, want 45s", got)
	}
}

func TestShutdown_NoDeps(t *testing.T) {
	if err := Shutdown(context.Background(), &config.CoreConfig{}, validConfig(), DBDeps{}, testLogger()); err != nil {
		t.Errorf("Shutdown with empty deps: %v", err)
	}
}

func TestBuildHandler_MountsRoutes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deps := DBDeps{
		MongoClient:   db.Client(),
		MongoDatabase: db,
		Hub:           realtime.NewHub(testLogger()),
	}
	t.Cleanup(deps.Hub.Close)

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validConfig(), deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/health"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"database":"connected"`)

	rec = testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/rooms/mine"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	user := testutil.NewTestUser("ada")
	rec = testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/rooms/mine", nil, user))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":true`)
}

func TestBuildHandler_RejectsEmptySessionKey(t *testing.T) {
	cfg := validConfig()
	cfg.SessionKey = ""
	deps := DBDeps{Hub: realtime.NewHub(testLogger())}
	t.Cleanup(deps.Hub.Close)

	if _, err := BuildHandler(&config.CoreConfig{}, cfg, deps, testLogger()); err == nil {
		t.Error("expected error for empty session key")
	}
}
