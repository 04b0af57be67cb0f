package chat

import (
	"context"
	"fmt"

	"github.com/dalemusser/roomhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserView is the public profile attached to owners, members and authors.
type UserView struct {
	ID             primitive.ObjectID `json:"id"`
	FirstName      string             `json:"first_name"`
	LastName       string             `json:"last_name"`
	Hospital       string             `json:"hospital"`
	PictureProfile string             `json:"picture_profile,omitempty"`
	UserName       string             `json:"user_name"`
	Country        string             `json:"country"`
}

// MemberView is a membership with its user expanded.
type MemberView struct {
	models.Membership
	User UserView `json:"user"`
}

// RoomView is a room with its owner and active members expanded.
type RoomView struct {
	models.Room
	Owner   UserView     `json:"user"`
	Members []MemberView `json:"members"`
}

// MemberUserIDs returns the user IDs of the room's active members.
func (v RoomView) MemberUserIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(v.Members))
	for _, m := range v.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// RoomDetail adds message counters for one caller to a RoomView.
type RoomDetail struct {
	RoomView
	MessageCount       int64 `json:"message_count"`
	UnreadMessageCount int64 `json:"unread_message_count"`
}

// MyRoom is one entry of the caller's room list.
type MyRoom struct {
	models.Room
	Owner              UserView `json:"user"`
	MessageCount       int64    `json:"message_count"`
	UnreadMessageCount int64    `json:"unread_message_count"`
}

// MessageView is a message with its author expanded.
type MessageView struct {
	models.Message
	User UserView `json:"user"`
}

// SentMessage is the result of SendMessage.
type SentMessage struct {
	MessageView
	RoomMessageCount int64 `json:"room_message_count"`
}

func userView(u models.User) UserView {
	return UserView{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Hospital:       u.Hospital,
		PictureProfile: u.PictureProfile,
		UserName:       u.UserName,
		Country:        u.Country,
	}
}

// lookup returns the profile for id, or a stub carrying only the ID when the
// identity service no longer knows the user.
func lookup(users map[primitive.ObjectID]models.User, id primitive.ObjectID) UserView {
	if u, ok := users[id]; ok {
		return userView(u)
	}
	return UserView{ID: id}
}

func (s *Service) userMap(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	uniq := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	users, err := s.users.GetMany(ctx, uniq)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

// roomView loads the active members of r and expands owner and members.
func (s *Service) roomView(ctx context.Context, r models.Room) (RoomView, error) {
	ms, err := s.members.ListActiveByRoom(ctx, r.ID)
	if err != nil {
		return RoomView{}, fmt.Errorf("list members: %w", err)
	}
	views, err := s.roomViews(ctx, []models.Room{r}, map[primitive.ObjectID][]models.Membership{r.ID: ms})
	if err != nil {
		return RoomView{}, err
	}
	return views[0], nil
}

// roomViews expands many rooms with one user lookup.
func (s *Service) roomViews(ctx context.Context, rooms []models.Room, members map[primitive.ObjectID][]models.Membership) ([]RoomView, error) {
	var ids []primitive.ObjectID
	for _, r := range rooms {
		ids = append(ids, r.OwnerID)
		for _, m := range members[r.ID] {
			ids = append(ids, m.UserID)
		}
	}
	users, err := s.userMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]RoomView, 0, len(rooms))
	for _, r := range rooms {
		v := RoomView{Room: r, Owner: lookup(users, r.OwnerID), Members: []MemberView{}}
		for _, m := range members[r.ID] {
			v.Members = append(v.Members, MemberView{Membership: m, User: lookup(users, m.UserID)})
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) memberView(ctx context.Context, m models.Membership) (MemberView, error) {
	users, err := s.userMap(ctx, []primitive.ObjectID{m.UserID})
	if err != nil {
		return MemberView{}, err
	}
	return MemberView{Membership: m, User: lookup(users, m.UserID)}, nil
}
