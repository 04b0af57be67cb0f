// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/roomhub/internal/app/chat"
	healthfeature "github.com/dalemusser/roomhub/internal/app/features/health"
	realtimefeature "github.com/dalemusser/roomhub/internal/app/features/realtime"
	roomsfeature "github.com/dalemusser/roomhub/internal/app/features/rooms"
	"github.com/dalemusser/roomhub/internal/app/notify"
	membershipstore "github.com/dalemusser/roomhub/internal/app/store/memberships"
	messagestore "github.com/dalemusser/roomhub/internal/app/store/messages"
	roomreportstore "github.com/dalemusser/roomhub/internal/app/store/roomreports"
	roomstore "github.com/dalemusser/roomhub/internal/app/store/rooms"
	userstore "github.com/dalemusser/roomhub/internal/app/store/users"
	"github.com/dalemusser/roomhub/internal/app/system/auth"
	"github.com/dalemusser/roomhub/internal/app/system/ratelimit"
	"github.com/dalemusser/roomhub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. RoomHub assembles the stores into a
// chat.Service, attaches the notification dispatcher to the websocket hub
// (and Redis when configured), and mounts the rooms, ws and health routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	members := membershipstore.New(db, logger)

	var pub notify.Publisher
	if deps.Redis != nil {
		pub = notify.NewRedisPublisher(deps.Redis, appCfg.RedisEventsChannel)
	}
	dispatcher := notify.NewDispatcher(deps.Hub, pub, logger)

	svc := chat.New(chat.Deps{
		Rooms:       roomstore.New(db),
		Memberships: members,
		Messages:    messagestore.New(db),
		Reports:     roomreportstore.New(db),
		Users:       userstore.New(db),
		Tx:          txn.Runner{DB: db, Log: logger},
		Notifier:    dispatcher,
		Logger:      logger,
		Config: chat.Config{
			MessagePageDefault: appCfg.MessagePageDefault,
			MessagePageMax:     appCfg.MessagePageMax,
		},
	})

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	roomsHandler := roomsfeature.NewHandler(svc, logger)
	if appCfg.MessageRatePerMin > 0 {
		roomsHandler.SendLimiter = ratelimit.New(appCfg.MessageRatePerMin, appCfg.MessageRateBurst)
	}
	r.Mount("/rooms", roomsfeature.Routes(roomsHandler, sessionMgr))

	wsHandler := realtimefeature.NewHandler(deps.Hub, members, appCfg.WSAllowedOrigins, logger)
	r.Mount("/ws", realtimefeature.Routes(wsHandler, sessionMgr))

	return r, nil
}
