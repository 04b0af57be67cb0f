package rooms

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/roomhub/internal/app/chat"
	"github.com/dalemusser/roomhub/internal/app/system/timeouts"
)

type sendRequest struct {
	Text string `json:"text"`
}

// HandleSendMessage handles POST /rooms/{id}/messages.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "send message")
	defer cancel()

	msg, err := h.Svc.SendMessage(ctx, id, uid, req.Text)
	if err != nil {
		h.writeError(w, r, "send message", err)
		return
	}
	writeData(w, http.StatusCreated, msg)
}

// ServeMessages handles GET /rooms/{id}/messages.
//
// Query parameters: from (exclusive) and to (inclusive) as RFC 3339 times,
// text, limit, order (created_at|text), direction (asc|desc).
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	q, bad := parseMessageQuery(r)
	if len(bad) > 0 {
		writeCode(w, http.StatusBadRequest, chat.ErrInvalidFieldValue.Code, bad...)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list messages")
	defer cancel()

	msgs, err := h.Svc.GetMessages(ctx, id, q)
	if err != nil {
		h.writeError(w, r, "list messages", err)
		return
	}
	writeData(w, http.StatusOK, msgs)
}

func parseMessageQuery(r *http.Request) (chat.MessageQuery, []string) {
	v := r.URL.Query()
	q := chat.MessageQuery{
		Text:      v.Get("text"),
		Order:     v.Get("order"),
		Direction: v.Get("direction"),
	}
	var bad []string

	ts := func(key string) time.Time {
		s := v.Get(key)
		if s == "" {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			bad = append(bad, key)
		}
		return t
	}
	q.From = ts("from")
	q.To = ts("to")

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			bad = append(bad, "limit")
		}
		q.Limit = n
	}
	return q, bad
}

type readResponse struct {
	LastReadAt time.Time `json:"last_read_at"`
}

// HandleMarkRead handles POST /rooms/{id}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark read")
	defer cancel()

	at, err := h.Svc.MarkRead(ctx, id, uid)
	if err != nil {
		h.writeError(w, r, "mark read", err)
		return
	}
	writeData(w, http.StatusOK, readResponse{LastReadAt: at})
}
