package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/roomhub/internal/app/store/storeerr"
	"github.com/dalemusser/roomhub/internal/app/system/clock"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Sort directions accepted by MessageQuery.Direction.
const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// MessageQuery selects a window of history. Zero values take the defaults:
// From is the epoch, To is now, Limit is the configured page size, Order is
// created_at and Direction is asc.
type MessageQuery struct {
	From      time.Time
	To        time.Time
	Text      string
	Limit     int
	Order     string
	Direction string
}

// SendMessage stores text from userID in roomID. The sender must hold an
// active membership; the message is tied to that membership.
func (s *Service) SendMessage(ctx context.Context, roomID, userID primitive.ObjectID, text string) (SentMessage, error) {
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return SentMessage{}, ErrInvalidRoom
		}
		return SentMessage{}, fmt.Errorf("load room: %w", err)
	}

	m, err := s.members.Get(ctx, roomID, userID)
	if errors.Is(err, storeerr.ErrNotFound) || (err == nil && !m.Active()) {
		return SentMessage{}, ErrNotMember
	}
	if err != nil {
		return SentMessage{}, fmt.Errorf("load membership: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		return SentMessage{}, ErrEmptyMessage
	}

	msg, err := s.messages.Create(ctx, models.Message{
		RoomID:   roomID,
		MemberID: m.ID,
		UserID:   userID,
		Text:     text,
	})
	if err != nil {
		return SentMessage{}, fmt.Errorf("create message: %w", err)
	}
	total, err := s.messages.Count(ctx, roomID)
	if err != nil {
		return SentMessage{}, fmt.Errorf("count messages: %w", err)
	}

	users, err := s.userMap(ctx, []primitive.ObjectID{userID})
	if err != nil {
		return SentMessage{}, err
	}
	view := MessageView{Message: msg, User: lookup(users, userID)}

	s.log.Debug("message sent",
		zap.String("room_id", roomID.Hex()),
		zap.String("member_id", m.ID.Hex()))
	s.notify.NotifyNewMessage(ctx, view)
	return SentMessage{MessageView: view, RoomMessageCount: total}, nil
}

// GetMessages returns a window of the room's history with authors expanded.
func (s *Service) GetMessages(ctx context.Context, roomID primitive.ObjectID, q MessageQuery) ([]MessageView, error) {
	f, err := s.messageFilter(q)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadRoom(ctx, roomID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.List(ctx, roomID, f)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.UserID)
	}
	users, err := s.userMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageView{Message: m, User: lookup(users, m.UserID)})
	}
	return out, nil
}

func (s *Service) messageFilter(q MessageQuery) (models.MessageFilter, error) {
	var bad []string

	order := q.Order
	switch order {
	case "":
		order = models.MessageOrderCreatedAt
	case models.MessageOrderCreatedAt, models.MessageOrderText:
	default:
		bad = append(bad, "order")
	}

	desc := false
	switch q.Direction {
	case "", DirectionAsc:
	case DirectionDesc:
		desc = true
	default:
		bad = append(bad, "direction")
	}

	limit := q.Limit
	switch {
	case limit < 0:
		bad = append(bad, "limit")
	case limit == 0:
		limit = s.cfg.MessagePageDefault
	case limit > s.cfg.MessagePageMax:
		limit = s.cfg.MessagePageMax
	}

	if len(bad) > 0 {
		return models.MessageFilter{}, InvalidFieldValue(bad...)
	}

	from := q.From
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	to := q.To
	if to.IsZero() {
		to = clock.Now()
	}
	return models.MessageFilter{
		From:       from,
		To:         to,
		Text:       q.Text,
		Limit:      limit,
		Order:      order,
		Descending: desc,
	}, nil
}

// MarkRead advances the caller's read cursor to now and returns it. Removed
// members may still mark a room read.
func (s *Service) MarkRead(ctx context.Context, roomID, userID primitive.ObjectID) (time.Time, error) {
	if _, err := s.loadRoom(ctx, roomID); err != nil {
		return time.Time{}, err
	}
	at, err := s.members.AdvanceReadCursor(ctx, roomID, userID, clock.Now())
	if errors.Is(err, storeerr.ErrNotFound) {
		return time.Time{}, ErrNotMember
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("advance read cursor: %w", err)
	}
	return at, nil
}
