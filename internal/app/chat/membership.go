package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/roomhub/internal/app/store/storeerr"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Join makes userID an active member of roomID on their own behalf.
//
// A user whose earlier membership was removed is rejected with ErrRemoved;
// only the owner can bring them back through AddMember.
func (s *Service) Join(ctx context.Context, roomID, userID primitive.ObjectID) (MemberView, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return MemberView{}, err
	}

	m, err := s.members.Get(ctx, roomID, userID)
	switch {
	case errors.Is(err, storeerr.ErrNotFound):
	case err != nil:
		return MemberView{}, fmt.Errorf("load membership: %w", err)
	case m.Active():
		return MemberView{}, ErrAlreadyJoined
	default:
		return MemberView{}, ErrRemoved
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return MemberView{}, err
	}
	if !room.AllowsCountry(user.Country) {
		return MemberView{}, ErrInvalidCountry
	}

	m, err = s.members.Admit(ctx, roomID, userID, false)
	if err != nil {
		return MemberView{}, admitError(err, ErrAlreadyJoined)
	}

	view := MemberView{Membership: m, User: userView(user)}
	s.log.Info("member joined",
		zap.String("room_id", roomID.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.String("member_id", m.ID.Hex()))
	s.notify.NotifyNewMember(ctx, view)
	return view, nil
}

// AddMember is the owner's variant of Join. Country rules do not apply and a
// removed membership is reactivated in place.
func (s *Service) AddMember(ctx context.Context, roomID, requesterID, targetID primitive.ObjectID) (MemberView, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return MemberView{}, err
	}
	user, err := s.loadUser(ctx, targetID)
	if err != nil {
		return MemberView{}, err
	}
	if room.OwnerID != requesterID {
		return MemberView{}, ErrNoPermission
	}

	m, err := s.members.Admit(ctx, roomID, targetID, true)
	if err != nil {
		return MemberView{}, admitError(err, ErrAlreadyAdded)
	}

	view := MemberView{Membership: m, User: userView(user)}
	s.log.Info("member added",
		zap.String("room_id", roomID.Hex()),
		zap.String("user_id", targetID.Hex()),
		zap.String("member_id", m.ID.Hex()))
	s.notify.NotifyNewMember(ctx, view)
	return view, nil
}

// Leave removes the caller's own membership. The owner cannot leave.
func (s *Service) Leave(ctx context.Context, roomID, userID primitive.ObjectID) (MemberView, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return MemberView{}, err
	}
	if room.OwnerID == userID {
		return MemberView{}, ErrCreatorNotAllowed
	}

	m, err := s.members.Deactivate(ctx, roomID, userID)
	switch {
	case errors.Is(err, storeerr.ErrNotFound):
		return MemberView{}, ErrNotMember
	case errors.Is(err, storeerr.ErrInactive):
		return MemberView{}, ErrAlreadyLeft
	case err != nil:
		return MemberView{}, fmt.Errorf("deactivate membership: %w", err)
	}

	return s.memberLeft(ctx, m, "member left")
}

// Kick removes targetID from the room. Only the owner may kick, and the
// owner cannot be kicked.
func (s *Service) Kick(ctx context.Context, roomID, requesterID, targetID primitive.ObjectID) (MemberView, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return MemberView{}, err
	}
	if _, err := s.loadUser(ctx, targetID); err != nil {
		return MemberView{}, err
	}
	if room.OwnerID != requesterID {
		return MemberView{}, ErrNoPermission
	}
	if room.OwnerID == targetID {
		return MemberView{}, ErrCreatorNotAllowed
	}

	m, err := s.members.Deactivate(ctx, roomID, targetID)
	switch {
	case errors.Is(err, storeerr.ErrNotFound):
		return MemberView{}, ErrNoMember
	case errors.Is(err, storeerr.ErrInactive):
		return MemberView{}, ErrAlreadyRemoved
	case err != nil:
		return MemberView{}, fmt.Errorf("deactivate membership: %w", err)
	}

	return s.memberLeft(ctx, m, "member kicked")
}

func (s *Service) memberLeft(ctx context.Context, m models.Membership, msg string) (MemberView, error) {
	view, err := s.memberView(ctx, m)
	if err != nil {
		return MemberView{}, err
	}
	s.log.Info(msg,
		zap.String("room_id", m.RoomID.Hex()),
		zap.String("user_id", m.UserID.Hex()),
		zap.String("member_id", m.ID.Hex()))
	s.notify.NotifyRoomMemberLeft(ctx, view)
	return view, nil
}

func (s *Service) loadUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, storeerr.ErrNotFound) {
		return models.User{}, ErrNoUser
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// admitError maps the store's admission refusals onto chat errors. active is
// the error reported when the user turned out to be a member already.
func admitError(err error, active *Error) error {
	switch {
	case errors.Is(err, storeerr.ErrActive):
		return active
	case errors.Is(err, storeerr.ErrRemoved):
		return ErrRemoved
	case errors.Is(err, storeerr.ErrLimitReached):
		return ErrMemberLimitReached
	case errors.Is(err, storeerr.ErrNotFound):
		return ErrNoRoom
	}
	return fmt.Errorf("admit member: %w", err)
}
