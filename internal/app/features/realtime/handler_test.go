package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/roomhub/internal/app/chat"
	wsfeature "github.com/dalemusser/roomhub/internal/app/features/realtime"
	"github.com/dalemusser/roomhub/internal/app/notify"
	realtimehub "github.com/dalemusser/roomhub/internal/app/realtime"
	"github.com/dalemusser/roomhub/internal/app/system/auth"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"github.com/dalemusser/roomhub/internal/testutil/memstore"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stack struct {
	svc    *chat.Service
	db     *memstore.DB
	hub    *realtimehub.Hub
	srv    *httptest.Server
	lister *hookedLister
}

// hookedLister runs afterList once, after the inner store has answered. It
// stands in for a membership change that commits while a socket is still
// loading its rooms.
type hookedLister struct {
	inner wsfeature.MembershipLister

	mu        sync.Mutex
	afterList func()
}

func (l *hookedLister) ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	ms, err := l.inner.ListActiveByUser(ctx, userID)
	l.mu.Lock()
	fn := l.afterList
	l.afterList = nil
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
	return ms, err
}

func (l *hookedLister) setAfterList(fn func()) {
	l.mu.Lock()
	l.afterList = fn
	l.mu.Unlock()
}

// newStack wires the chat service to a live hub and serves /ws, taking the
// caller from the "as" query parameter.
func newStack(t *testing.T) *stack {
	t.Helper()
	db := memstore.New()
	hub := realtimehub.NewHub(zap.NewNop())
	t.Cleanup(hub.Close)

	svc := chat.New(chat.Deps{
		Rooms:       db.Rooms(),
		Memberships: db.Memberships(),
		Messages:    db.Messages(),
		Reports:     db.Reports(),
		Users:       db.Users(),
		Notifier:    notify.NewDispatcher(hub, nil, zap.NewNop()),
		Logger:      zap.NewNop(),
	})

	lister := &hookedLister{inner: db.Memberships()}
	h := wsfeature.NewHandler(hub, lister, nil, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if as := r.URL.Query().Get("as"); as != "" {
			r = auth.WithTestUser(r, &auth.SessionUser{ID: as, Name: "test"})
		}
		h.ServeWS(w, r)
	}))
	t.Cleanup(srv.Close)
	return &stack{svc: svc, db: db, hub: hub, srv: srv, lister: lister}
}

func (s *stack) dial(t *testing.T, user models.User) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/?as=" + user.ID.Hex()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func (s *stack) waitConnections(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ConnectionCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d connections", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *stack) waitSubscribed(t *testing.T, userID, roomID primitive.ObjectID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !s.hub.Subscribed(userID.Hex(), roomID.Hex()) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s to subscribe to %s", userID.Hex(), roomID.Hex())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readEvent(t *testing.T, ws *websocket.Conn) notify.Event {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev notify.Event
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}

func TestServeWS_RequiresUser(t *testing.T) {
	s := newStack(t)
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", resp)
	}
}

func TestServeWS_MembersReceiveRoomEvents(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	owner := s.db.AddUser(models.User{UserName: "owner", Country: "US"})
	member := s.db.AddUser(models.User{UserName: "member", Country: "US"})
	outsider := s.db.AddUser(models.User{UserName: "outsider", Country: "US"})

	room, err := s.svc.CreateRoom(ctx, owner.ID, chat.NewRoom{Title: "Ward"}, []primitive.ObjectID{member.ID})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	memberWS := s.dial(t, member)
	s.dial(t, outsider)
	s.waitConnections(t, 2)
	s.waitSubscribed(t, member.ID, room.ID)

	if s.hub.Subscribed(outsider.ID.Hex(), room.ID.Hex()) {
		t.Fatal("outsider subscribed")
	}

	if _, err := s.svc.SendMessage(ctx, room.ID, owner.ID, "handover at 7"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	ev := readEvent(t, memberWS)
	if ev.Type != notify.TypeMessageCreated || ev.RoomID != room.ID.Hex() {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestServeWS_JoinSubscribesAndLeaveUnsubscribes(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	owner := s.db.AddUser(models.User{UserName: "owner", Country: "US"})
	joiner := s.db.AddUser(models.User{UserName: "joiner", Country: "US"})

	room, err := s.svc.CreateRoom(ctx, owner.ID, chat.NewRoom{Title: "Ward"}, nil)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	ws := s.dial(t, joiner)
	s.waitConnections(t, 1)

	if _, err := s.svc.Join(ctx, room.ID, joiner.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if ev := readEvent(t, ws); ev.Type != notify.TypeMemberAdded {
		t.Errorf("got %s, want %s", ev.Type, notify.TypeMemberAdded)
	}

	if _, err := s.svc.Leave(ctx, room.ID, joiner.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if ev := readEvent(t, ws); ev.Type != notify.TypeMemberLeft {
		t.Errorf("got %s, want %s", ev.Type, notify.TypeMemberLeft)
	}
	if s.hub.Subscribed(joiner.ID.Hex(), room.ID.Hex()) {
		t.Error("still subscribed after leaving")
	}
}

func TestServeWS_JoinWhileLoadingMembershipsIsDelivered(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	owner := s.db.AddUser(models.User{UserName: "owner", Country: "US"})
	joiner := s.db.AddUser(models.User{UserName: "joiner", Country: "US"})

	room, err := s.svc.CreateRoom(ctx, owner.ID, chat.NewRoom{Title: "Ward"}, nil)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	joined := make(chan error, 1)
	s.lister.setAfterList(func() {
		_, err := s.svc.Join(ctx, room.ID, joiner.ID)
		joined <- err
	})

	ws := s.dial(t, joiner)
	select {
	case err := <-joined:
		if err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("membership list was never loaded")
	}

	if !s.hub.Subscribed(joiner.ID.Hex(), room.ID.Hex()) {
		t.Fatal("member who joined during connect is not subscribed")
	}
	if ev := readEvent(t, ws); ev.Type != notify.TypeMemberAdded {
		t.Errorf("got %s, want %s", ev.Type, notify.TypeMemberAdded)
	}

	if _, err := s.svc.SendMessage(ctx, room.ID, owner.ID, "handover at 7"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	ev := readEvent(t, ws)
	if ev.Type != notify.TypeMessageCreated || ev.RoomID != room.ID.Hex() {
		t.Errorf("unexpected event: %+v", ev)
	}
}
