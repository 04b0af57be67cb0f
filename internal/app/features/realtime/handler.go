// internal/app/features/realtime/handler.go
package realtime

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	realtimehub "github.com/dalemusser/roomhub/internal/app/realtime"
	"github.com/dalemusser/roomhub/internal/app/system/auth"
	"github.com/dalemusser/roomhub/internal/app/system/timeouts"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MembershipLister loads the rooms a user is an active member of.
type MembershipLister interface {
	ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error)
}

// Handler upgrades signed-in callers to a websocket and attaches them to the
// hub, subscribed to every room they are an active member of.
type Handler struct {
	Hub      *realtimehub.Hub
	Members  MembershipLister
	Log      *zap.Logger
	upgrader websocket.Upgrader
	origins  []string
}

// NewHandler builds a Handler. allowedOrigins are scheme://host values; when
// empty only same-host origins are accepted.
func NewHandler(hub *realtimehub.Hub, members MembershipLister, allowedOrigins []string, logger *zap.Logger) *Handler {
	h := &Handler{
		Hub:     hub,
		Members: members,
		Log:     logger,
	}
	for _, o := range allowedOrigins {
		if n, ok := normalizeOrigin(o); ok {
			h.origins = append(h.origins, n)
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeWS handles GET /ws.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	uid, err := u.ObjectID()
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.Log.Warn("websocket upgrade failed", zap.String("user_id", u.ID), zap.Error(err))
		return
	}

	// Attach before reading memberships: a join that commits while the list
	// is loading subscribes through the hub and must find the connection.
	conn := realtimehub.NewConnection(u.ID, ws, h.Log)
	h.Hub.Attach(conn, nil)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	ms, err := h.Members.ListActiveByUser(ctx, uid)
	cancel()
	if err != nil {
		h.Log.Error("websocket: load memberships failed",
			zap.String("user_id", u.ID),
			zap.Error(err))
		h.Hub.Detach(conn)
		conn.Close(websocket.CloseInternalServerErr, "internal error")
		return
	}
	for _, m := range ms {
		h.Hub.Subscribe(u.ID, m.RoomID.Hex())
	}
	h.Log.Info("websocket connected",
		zap.String("conn_id", conn.ID),
		zap.String("user_id", u.ID),
		zap.Int("rooms", len(ms)))

	conn.ReadLoop()

	h.Hub.Detach(conn)
	conn.Close(websocket.CloseNormalClosure, "")
	h.Log.Info("websocket disconnected",
		zap.String("conn_id", conn.ID),
		zap.String("user_id", u.ID))
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients send no Origin
		return true
	}
	if len(h.origins) == 0 {
		o, err := url.Parse(origin)
		return err == nil && strings.EqualFold(o.Host, r.Host)
	}
	n, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	for _, allowed := range h.origins {
		if allowed == n {
			return true
		}
	}
	return false
}

// normalizeOrigin reduces origin to lower-case scheme://host, rejecting
// anything carrying a path, query or credentials.
func normalizeOrigin(origin string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}
