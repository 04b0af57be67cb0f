package rooms

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/roomhub/internal/app/chat"
	"github.com/dalemusser/roomhub/internal/app/system/timeouts"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createRoomRequest struct {
	chat.NewRoom
	Members []primitive.ObjectID `json:"members"`
}

// HandleCreateRoom handles POST /rooms.
func (h *Handler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req createRoomRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeCode(w, http.StatusBadRequest, chat.ErrInvalidFieldValue.Code, "title")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create room")
	defer cancel()

	room, err := h.Svc.CreateRoom(ctx, uid, req.NewRoom, req.Members)
	if err != nil {
		h.writeError(w, r, "create room", err)
		return
	}
	writeData(w, http.StatusCreated, room)
}

// HandleEditRoom handles PATCH /rooms/{id}.
func (h *Handler) HandleEditRoom(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var attrs map[string]json.RawMessage
	if !decode(w, r, &attrs) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "edit room")
	defer cancel()

	room, err := h.Svc.EditRoom(ctx, id, uid, attrs)
	if err != nil {
		h.writeError(w, r, "edit room", err)
		return
	}
	writeData(w, http.StatusOK, room)
}

// ServeRooms handles GET /rooms.
//
// Query parameters: title, description (substring), owner, category,
// is_private, archived, country, topic, job (exact).
func (h *Handler) ServeRooms(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	f, bad := parseRoomFilter(r)
	if len(bad) > 0 {
		writeCode(w, http.StatusBadRequest, chat.ErrInvalidFieldValue.Code, bad...)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "query rooms")
	defer cancel()

	rooms, err := h.Svc.QueryRooms(ctx, f)
	if err != nil {
		h.writeError(w, r, "query rooms", err)
		return
	}
	if rooms == nil {
		rooms = []chat.RoomView{}
	}
	writeData(w, http.StatusOK, rooms)
}

func parseRoomFilter(r *http.Request) (models.RoomFilter, []string) {
	q := r.URL.Query()
	f := models.RoomFilter{
		Title:       strings.TrimSpace(q.Get("title")),
		Description: strings.TrimSpace(q.Get("description")),
		Country:     q.Get("country"),
		Topic:       q.Get("topic"),
		Job:         q.Get("job"),
	}
	var bad []string

	objectID := func(key string) *primitive.ObjectID {
		v := q.Get(key)
		if v == "" {
			return nil
		}
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			bad = append(bad, key)
			return nil
		}
		return &id
	}
	boolean := func(key string) *bool {
		v := q.Get(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			bad = append(bad, key)
			return nil
		}
		return &b
	}

	f.OwnerID = objectID("owner")
	f.CategoryID = objectID("category")
	f.IsPrivate = boolean("is_private")
	f.Archived = boolean("archived")
	return f, bad
}

// ServeMyRooms handles GET /rooms/mine.
func (h *Handler) ServeMyRooms(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "query my rooms")
	defer cancel()

	rooms, err := h.Svc.QueryMyRooms(ctx, uid)
	if err != nil {
		h.writeError(w, r, "query my rooms", err)
		return
	}
	if rooms == nil {
		rooms = []chat.MyRoom{}
	}
	writeData(w, http.StatusOK, rooms)
}

// ServeRoom handles GET /rooms/{id}.
func (h *Handler) ServeRoom(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "room detail")
	defer cancel()

	detail, err := h.Svc.GetRoomDetail(ctx, id, uid)
	if err != nil {
		h.writeError(w, r, "room detail", err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

type reportRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// HandleReport handles POST /rooms/{id}/report.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}
	var req reportRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "report room")
	defer cancel()

	report, err := h.Svc.ReportRoom(ctx, id, uid, req.Type, req.Description)
	if err != nil {
		h.writeError(w, r, "report room", err)
		return
	}
	writeData(w, http.StatusCreated, report)
}
