package rooms

import (
	"context"
	"net/http"

	"github.com/dalemusser/roomhub/internal/app/chat"
	"github.com/dalemusser/roomhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type targetRequest struct {
	UserID primitive.ObjectID `json:"user_id"`
}

// HandleJoin handles POST /rooms/{id}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "join room")
	defer cancel()

	m, err := h.Svc.Join(ctx, id, uid)
	if err != nil {
		h.writeError(w, r, "join room", err)
		return
	}
	writeData(w, http.StatusOK, m)
}

// HandleLeave handles POST /rooms/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "leave room")
	defer cancel()

	m, err := h.Svc.Leave(ctx, id, uid)
	if err != nil {
		h.writeError(w, r, "leave room", err)
		return
	}
	writeData(w, http.StatusOK, m)
}

// HandleAddMember handles POST /rooms/{id}/members with {"user_id": "..."}.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, "add member", h.Svc.AddMember)
}

// HandleKick handles POST /rooms/{id}/kick with {"user_id": "..."}.
func (h *Handler) HandleKick(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, "kick member", h.Svc.Kick)
}

type ownerFunc func(ctx context.Context, roomID, requesterID, targetID primitive.ObjectID) (chat.MemberView, error)

func (h *Handler) ownerAction(w http.ResponseWriter, r *http.Request, op string, fn ownerFunc) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var req targetRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID.IsZero() {
		writeCode(w, http.StatusBadRequest, chat.ErrInvalidFieldValue.Code, "user_id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	m, err := fn(ctx, id, uid, req.UserID)
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}
	writeData(w, http.StatusOK, m)
}
