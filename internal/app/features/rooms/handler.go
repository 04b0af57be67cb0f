// internal/app/features/rooms/handler.go
package rooms

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/roomhub/internal/app/chat"
	"github.com/dalemusser/roomhub/internal/app/system/auth"
	"github.com/dalemusser/roomhub/internal/app/system/limits"
	"github.com/dalemusser/roomhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the JSON API for rooms, memberships and messages.
type Handler struct {
	Svc *chat.Service
	Log *zap.Logger

	// SendLimiter throttles message sends per user. Nil disables it.
	SendLimiter *ratelimit.Limiter
}

func NewHandler(svc *chat.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Status bool     `json:"status"`
	Data   any      `json:"data,omitempty"`
	Error  string   `json:"error,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Status: true, Data: data})
}

func writeCode(w http.ResponseWriter, status int, code string, fields ...string) {
	writeJSON(w, status, envelope{Status: false, Error: code, Fields: fields})
}

// writeError renders err. Chat errors map by kind; anything else is logged
// and reported as a generic 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if ce, ok := chat.AsError(err); ok {
		writeCode(w, statusFor(ce.Kind), ce.Code, ce.Fields...)
		return
	}
	h.Log.Error(op+" failed",
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeCode(w, http.StatusInternalServerError, "internal_error")
}

func statusFor(k chat.Kind) int {
	switch k {
	case chat.KindNotFound:
		return http.StatusNotFound
	case chat.KindForbidden:
		return http.StatusForbidden
	case chat.KindConflict:
		return http.StatusConflict
	case chat.KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// caller returns the signed-in user's ID, writing a 401 when there is none.
func caller(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		writeCode(w, http.StatusUnauthorized, "unauthorized")
		return primitive.NilObjectID, false
	}
	id, err := u.ObjectID()
	if err != nil {
		writeCode(w, http.StatusUnauthorized, "unauthorized")
		return primitive.NilObjectID, false
	}
	return id, true
}

// callerKey keys rate limits by the signed-in user.
func callerKey(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}

// roomID parses the {id} URL parameter. A malformed ID names no room.
func roomID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeCode(w, http.StatusNotFound, chat.ErrNoRoom.Code)
		return primitive.NilObjectID, false
	}
	return id, true
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeCode(w, http.StatusBadRequest, "invalid_body")
		return false
	}
	return true
}
