package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dalemusser/roomhub/internal/app/store/storeerr"
	"github.com/dalemusser/roomhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NewRoom carries the attributes a creator may set.
type NewRoom struct {
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Topics           []string            `json:"topics"`
	Jobs             []string            `json:"jobs"`
	Countries        []string            `json:"countries"`
	IsPrivate        bool                `json:"is_private"`
	Avatar           string              `json:"avatar"`
	Background       string              `json:"background"`
	CategoryID       *primitive.ObjectID `json:"category"`
	MemberCountLimit int                 `json:"member_count_limit"`
}

// CreateRoom creates a room owned by ownerID. memberIDs are deduplicated and
// the owner is added if absent; each resulting user gets an active
// membership. The room and its memberships are written as one unit.
func (s *Service) CreateRoom(ctx context.Context, ownerID primitive.ObjectID, in NewRoom, memberIDs []primitive.ObjectID) (RoomView, error) {
	if in.MemberCountLimit < 0 {
		return RoomView{}, InvalidFieldValue("member_count_limit")
	}

	ids := []primitive.ObjectID{ownerID}
	seen := map[primitive.ObjectID]struct{}{ownerID: {}}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if in.MemberCountLimit > 0 && len(ids) > in.MemberCountLimit {
		return RoomView{}, ErrMemberLimitReached
	}

	room := models.Room{
		OwnerID:           ownerID,
		Title:             htmlsanitize.StripTags(in.Title),
		Description:       htmlsanitize.Sanitize(in.Description),
		Topics:            in.Topics,
		Jobs:              in.Jobs,
		Countries:         in.Countries,
		IsPrivate:         in.IsPrivate,
		Avatar:            in.Avatar,
		Background:        in.Background,
		CategoryID:        in.CategoryID,
		MemberCountLimit:  in.MemberCountLimit,
		ActiveMemberCount: len(ids),
	}

	var members []models.Membership
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		created, err := s.rooms.Create(ctx, room)
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		ms, err := s.members.CreateMany(ctx, created.ID, ids)
		if err != nil {
			return fmt.Errorf("create memberships: %w", err)
		}
		room, members = created, ms
		return nil
	})
	if err != nil {
		return RoomView{}, err
	}

	views, err := s.roomViews(ctx, []models.Room{room}, map[primitive.ObjectID][]models.Membership{room.ID: members})
	if err != nil {
		return RoomView{}, err
	}
	s.log.Info("room created",
		zap.String("room_id", room.ID.Hex()),
		zap.String("user_id", ownerID.Hex()),
		zap.Int("members", len(members)))
	s.notify.NotifyNewRoom(ctx, views[0])
	return views[0], nil
}

// EditRoom applies attrs to the room. Only the owner may edit, and every key
// must be one of models.EditableRoomFields.
func (s *Service) EditRoom(ctx context.Context, roomID, callerID primitive.ObjectID, attrs map[string]json.RawMessage) (RoomView, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return RoomView{}, err
	}
	if room.OwnerID != callerID {
		return RoomView{}, ErrInvalidPermission
	}

	var bad []string
	for k := range attrs {
		if !models.IsEditableRoomField(k) {
			bad = append(bad, k)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return RoomView{}, FieldsNotAllowed(bad...)
	}

	patch, err := decodePatch(attrs)
	if err != nil {
		return RoomView{}, err
	}

	updated, err := s.rooms.Update(ctx, roomID, patch)
	if errors.Is(err, storeerr.ErrNotFound) {
		return RoomView{}, ErrNoRoom
	}
	if err != nil {
		return RoomView{}, fmt.Errorf("update room: %w", err)
	}

	view, err := s.roomView(ctx, updated)
	if err != nil {
		return RoomView{}, err
	}
	s.notify.NotifyRoomUpdate(ctx, view)
	return view, nil
}

// decodePatch decodes each attribute into its RoomPatch field, collecting the
// keys whose values have the wrong shape.
func decodePatch(attrs map[string]json.RawMessage) (models.RoomPatch, error) {
	var p models.RoomPatch
	var bad []string
	set := func(key string, dst any) {
		if err := json.Unmarshal(attrs[key], dst); err != nil {
			bad = append(bad, key)
		}
	}

	for key := range attrs {
		switch key {
		case "title":
			var v string
			set(key, &v)
			v = htmlsanitize.StripTags(v)
			p.Title = &v
		case "description":
			var v string
			set(key, &v)
			v = htmlsanitize.Sanitize(v)
			p.Description = &v
		case "topics":
			var v []string
			set(key, &v)
			p.Topics = &v
		case "jobs":
			var v []string
			set(key, &v)
			p.Jobs = &v
		case "countries":
			var v []string
			set(key, &v)
			p.Countries = &v
		case "is_private":
			var v bool
			set(key, &v)
			p.IsPrivate = &v
		case "archived":
			var v bool
			set(key, &v)
			p.Archived = &v
		case "avatar":
			var v string
			set(key, &v)
			p.Avatar = &v
		case "background":
			var v string
			set(key, &v)
			p.Background = &v
		case "category":
			if isJSONNull(attrs[key]) {
				p.ClearCategory = true
				continue
			}
			var v primitive.ObjectID
			set(key, &v)
			p.CategoryID = &v
		case "member_count_limit":
			var v int
			set(key, &v)
			if v < 0 {
				bad = append(bad, key)
			}
			p.MemberCountLimit = &v
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return models.RoomPatch{}, InvalidFieldValue(bad...)
	}
	return p, nil
}

// QueryRooms returns the rooms matching f with owners and active members
// expanded. Archived rooms are excluded unless f.Archived is set.
func (s *Service) QueryRooms(ctx context.Context, f models.RoomFilter) ([]RoomView, error) {
	rooms, err := s.rooms.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	members, err := s.members.ListActiveByRooms(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return s.roomViews(ctx, rooms, members)
}

// QueryMyRooms returns every room where callerID holds an active membership,
// with total and unread message counts relative to the caller's cursor.
func (s *Service) QueryMyRooms(ctx context.Context, callerID primitive.ObjectID) ([]MyRoom, error) {
	ms, err := s.members.ListActiveByUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	cursors := make(map[primitive.ObjectID]models.Membership, len(ms))
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		cursors[m.RoomID] = m
		ids = append(ids, m.RoomID)
	}

	rooms, err := s.rooms.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	owners := make([]primitive.ObjectID, 0, len(rooms))
	for _, r := range rooms {
		owners = append(owners, r.OwnerID)
	}
	users, err := s.userMap(ctx, owners)
	if err != nil {
		return nil, err
	}

	out := make([]MyRoom, 0, len(rooms))
	for _, r := range rooms {
		total, unread, err := s.counts(ctx, r.ID, cursors[r.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, MyRoom{
			Room:               r,
			Owner:              lookup(users, r.OwnerID),
			MessageCount:       total,
			UnreadMessageCount: unread,
		})
	}
	return out, nil
}

// GetRoomDetail returns the room with members and the caller's counters.
// The caller must be an active member.
func (s *Service) GetRoomDetail(ctx context.Context, roomID, callerID primitive.ObjectID) (RoomDetail, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return RoomDetail{}, err
	}
	m, err := s.members.Get(ctx, roomID, callerID)
	if errors.Is(err, storeerr.ErrNotFound) || (err == nil && !m.Active()) {
		return RoomDetail{}, ErrNoPermission
	}
	if err != nil {
		return RoomDetail{}, fmt.Errorf("load membership: %w", err)
	}

	view, err := s.roomView(ctx, room)
	if err != nil {
		return RoomDetail{}, err
	}
	total, unread, err := s.counts(ctx, roomID, m)
	if err != nil {
		return RoomDetail{}, err
	}
	return RoomDetail{RoomView: view, MessageCount: total, UnreadMessageCount: unread}, nil
}

// counts returns the room's total messages and those newer than m's cursor.
func (s *Service) counts(ctx context.Context, roomID primitive.ObjectID, m models.Membership) (int64, int64, error) {
	total, err := s.messages.Count(ctx, roomID)
	if err != nil {
		return 0, 0, fmt.Errorf("count messages: %w", err)
	}
	unread, err := s.messages.CountAfter(ctx, roomID, m.ReadCursor())
	if err != nil {
		return 0, 0, fmt.Errorf("count unread: %w", err)
	}
	return total, unread, nil
}

func (s *Service) loadRoom(ctx context.Context, id primitive.ObjectID) (models.Room, error) {
	r, err := s.rooms.GetByID(ctx, id)
	if errors.Is(err, storeerr.ErrNotFound) {
		return models.Room{}, ErrNoRoom
	}
	if err != nil {
		return models.Room{}, fmt.Errorf("load room: %w", err)
	}
	return r, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
