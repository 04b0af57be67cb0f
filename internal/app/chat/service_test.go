package chat_test

import (
	"context"
	"sync"
	"testing"

	"github.com/dalemusser/roomhub/internal/app/chat"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"github.com/dalemusser/roomhub/internal/testutil/memstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// recorder captures notifier calls.
type recorder struct {
	mu       sync.Mutex
	rooms    []chat.RoomView
	updates  []chat.RoomView
	joined   []chat.MemberView
	left     []chat.MemberView
	messages []chat.MessageView
}

func (r *recorder) NotifyNewRoom(_ context.Context, v chat.RoomView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, v)
}

func (r *recorder) NotifyRoomUpdate(_ context.Context, v chat.RoomView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, v)
}

func (r *recorder) NotifyNewMember(_ context.Context, v chat.MemberView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joined = append(r.joined, v)
}

func (r *recorder) NotifyRoomMemberLeft(_ context.Context, v chat.MemberView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left = append(r.left, v)
}

func (r *recorder) NotifyNewMessage(_ context.Context, v chat.MessageView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, v)
}

type harness struct {
	svc    *chat.Service
	db     *memstore.DB
	notify *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := memstore.New()
	rec := &recorder{}
	svc := chat.New(chat.Deps{
		Rooms:       db.Rooms(),
		Memberships: db.Memberships(),
		Messages:    db.Messages(),
		Reports:     db.Reports(),
		Users:       db.Users(),
		Notifier:    rec,
		Logger:      zap.NewNop(),
	})
	return &harness{svc: svc, db: db, notify: rec}
}

func (h *harness) user(name, country string) models.User {
	return h.db.AddUser(models.User{UserName: name, FirstName: name, Country: country})
}

func (h *harness) room(t *testing.T, owner models.User, in chat.NewRoom, members ...models.User) chat.RoomView {
	t.Helper()
	ids := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	v, err := h.svc.CreateRoom(context.Background(), owner.ID, in, ids)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	return v
}

// wantErr fails the test unless err carries the given chat error code.
func wantErr(t *testing.T, err error, want *chat.Error) {
	t.Helper()
	ce, ok := chat.AsError(err)
	if !ok {
		t.Fatalf("got %v, want chat error %s", err, want.Code)
	}
	if ce.Code != want.Code {
		t.Fatalf("got %s, want %s", ce.Code, want.Code)
	}
}
