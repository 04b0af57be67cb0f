// Package memstore holds in-memory implementations of the chat stores. All
// stores built from one DB share a single lock, so Admit and Deactivate are
// atomic with respect to the room's active member count exactly as the
// MongoDB stores are.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	roomstore "github.com/dalemusser/roomhub/internal/app/store/rooms"
	"github.com/dalemusser/roomhub/internal/app/store/storeerr"
	"github.com/dalemusser/roomhub/internal/app/system/clock"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memberKey struct {
	room primitive.ObjectID
	user primitive.ObjectID
}

// DB is the shared backing state.
type DB struct {
	mu          sync.Mutex
	rooms       map[primitive.ObjectID]models.Room
	memberships map[memberKey]models.Membership
	messages    []models.Message
	reports     []models.RoomReport
	users       map[primitive.ObjectID]models.User
}

func New() *DB {
	return &DB{
		rooms:       make(map[primitive.ObjectID]models.Room),
		memberships: make(map[memberKey]models.Membership),
		users:       make(map[primitive.ObjectID]models.User),
	}
}

func (db *DB) Rooms() *Rooms             { return &Rooms{db} }
func (db *DB) Memberships() *Memberships { return &Memberships{db} }
func (db *DB) Messages() *Messages       { return &Messages{db} }
func (db *DB) Reports() *Reports         { return &Reports{db} }
func (db *DB) Users() *Users             { return &Users{db} }

// AddUser registers a user profile and returns it with an ID assigned.
func (db *DB) AddUser(u models.User) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	db.users[u.ID] = u
	return u
}

// ActiveCount returns the counter on the room document.
func (db *DB) ActiveCount(roomID primitive.ObjectID) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.rooms[roomID].ActiveMemberCount
}

// ReportCount returns the number of stored reports.
func (db *DB) ReportCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.reports)
}

// ---- rooms ----

type Rooms struct{ db *DB }

func (s *Rooms) Create(_ context.Context, r models.Room) (models.Room, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.TitleCI = text.Fold(r.Title)
	r.DescriptionCI = roomstore.DescriptionFold(r.Description)
	r.CreatedAt = now
	r.UpdatedAt = now
	s.db.rooms[r.ID] = r
	return r, nil
}

func (s *Rooms) GetByID(_ context.Context, id primitive.ObjectID) (models.Room, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.rooms[id]
	if !ok {
		return models.Room{}, storeerr.ErrNotFound
	}
	return r, nil
}

func (s *Rooms) Update(_ context.Context, id primitive.ObjectID, p models.RoomPatch) (models.Room, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.rooms[id]
	if !ok {
		return models.Room{}, storeerr.ErrNotFound
	}
	if p.Title != nil {
		r.Title = *p.Title
		r.TitleCI = text.Fold(r.Title)
	}
	if p.Description != nil {
		r.Description = *p.Description
		r.DescriptionCI = roomstore.DescriptionFold(r.Description)
	}
	if p.Topics != nil {
		r.Topics = *p.Topics
	}
	if p.Jobs != nil {
		r.Jobs = *p.Jobs
	}
	if p.Countries != nil {
		r.Countries = *p.Countries
	}
	if p.IsPrivate != nil {
		r.IsPrivate = *p.IsPrivate
	}
	if p.Avatar != nil {
		r.Avatar = *p.Avatar
	}
	if p.Background != nil {
		r.Background = *p.Background
	}
	if p.ClearCategory {
		r.CategoryID = nil
	} else if p.CategoryID != nil {
		c := *p.CategoryID
		r.CategoryID = &c
	}
	if p.Archived != nil {
		r.Archived = *p.Archived
	}
	if p.MemberCountLimit != nil {
		r.MemberCountLimit = *p.MemberCountLimit
	}
	r.UpdatedAt = time.Now().UTC()
	s.db.rooms[id] = r
	return r, nil
}

func (s *Rooms) Query(_ context.Context, f models.RoomFilter) ([]models.Room, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Room
	for _, r := range s.db.rooms {
		if matchRoom(r, f) {
			out = append(out, r)
		}
	}
	sortRooms(out)
	return out, nil
}

func (s *Rooms) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Room, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Room
	for _, id := range ids {
		if r, ok := s.db.rooms[id]; ok {
			out = append(out, r)
		}
	}
	sortRooms(out)
	return out, nil
}

func matchRoom(r models.Room, f models.RoomFilter) bool {
	archived := false
	if f.Archived != nil {
		archived = *f.Archived
	}
	switch {
	case r.Archived != archived:
		return false
	case f.Title != "" && !strings.Contains(r.TitleCI, text.Fold(f.Title)):
		return false
	case f.Description != "" && !strings.Contains(r.DescriptionCI, text.Fold(f.Description)):
		return false
	case f.OwnerID != nil && r.OwnerID != *f.OwnerID:
		return false
	case f.CategoryID != nil && (r.CategoryID == nil || *r.CategoryID != *f.CategoryID):
		return false
	case f.IsPrivate != nil && r.IsPrivate != *f.IsPrivate:
		return false
	case f.Country != "" && !contains(r.Countries, f.Country):
		return false
	case f.Topic != "" && !contains(r.Topics, f.Topic):
		return false
	case f.Job != "" && !contains(r.Jobs, f.Job):
		return false
	}
	return true
}

func sortRooms(rs []models.Room) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].TitleCI != rs[j].TitleCI {
			return rs[i].TitleCI < rs[j].TitleCI
		}
		return rs[i].ID.Hex() < rs[j].ID.Hex()
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ---- memberships ----

type Memberships struct{ db *DB }

func (s *Memberships) CreateMany(_ context.Context, roomID primitive.ObjectID, userIDs []primitive.ObjectID) ([]models.Membership, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, uid := range userIDs {
		if _, ok := s.db.memberships[memberKey{roomID, uid}]; ok {
			return nil, storeerr.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	out := make([]models.Membership, 0, len(userIDs))
	for _, uid := range userIDs {
		m := models.Membership{
			ID:        primitive.NewObjectID(),
			RoomID:    roomID,
			UserID:    uid,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.db.memberships[memberKey{roomID, uid}] = m
		out = append(out, m)
	}
	return out, nil
}

func (s *Memberships) Get(_ context.Context, roomID, userID primitive.ObjectID) (models.Membership, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.memberships[memberKey{roomID, userID}]
	if !ok {
		return models.Membership{}, storeerr.ErrNotFound
	}
	return m, nil
}

func (s *Memberships) Admit(_ context.Context, roomID, userID primitive.ObjectID, reactivate bool) (models.Membership, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key := memberKey{roomID, userID}
	m, found := s.db.memberships[key]
	switch {
	case found && m.Active():
		return models.Membership{}, storeerr.ErrActive
	case found && !reactivate:
		return models.Membership{}, storeerr.ErrRemoved
	}

	r, ok := s.db.rooms[roomID]
	if !ok {
		return models.Membership{}, storeerr.ErrNotFound
	}
	if r.MemberCountLimit > 0 && r.ActiveMemberCount >= r.MemberCountLimit {
		return models.Membership{}, storeerr.ErrLimitReached
	}
	r.ActiveMemberCount++
	s.db.rooms[roomID] = r

	now := time.Now().UTC()
	if found {
		m.Removed = false
		m.UpdatedAt = now
	} else {
		m = models.Membership{
			ID:        primitive.NewObjectID(),
			RoomID:    roomID,
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	s.db.memberships[key] = m
	return m, nil
}

func (s *Memberships) Deactivate(_ context.Context, roomID, userID primitive.ObjectID) (models.Membership, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key := memberKey{roomID, userID}
	m, ok := s.db.memberships[key]
	if !ok {
		return models.Membership{}, storeerr.ErrNotFound
	}
	if m.Removed {
		return models.Membership{}, storeerr.ErrInactive
	}
	m.Removed = true
	m.UpdatedAt = time.Now().UTC()
	s.db.memberships[key] = m

	if r, ok := s.db.rooms[roomID]; ok && r.ActiveMemberCount > 0 {
		r.ActiveMemberCount--
		s.db.rooms[roomID] = r
	}
	return m, nil
}

func (s *Memberships) AdvanceReadCursor(_ context.Context, roomID, userID primitive.ObjectID, at time.Time) (time.Time, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key := memberKey{roomID, userID}
	m, ok := s.db.memberships[key]
	if !ok {
		return time.Time{}, storeerr.ErrNotFound
	}
	if m.LastReadAt == nil || at.After(*m.LastReadAt) {
		m.LastReadAt = &at
		m.UpdatedAt = time.Now().UTC()
		s.db.memberships[key] = m
	}
	return *m.LastReadAt, nil
}

func (s *Memberships) ListActiveByRoom(_ context.Context, roomID primitive.ObjectID) ([]models.Membership, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.activeWhere(func(m models.Membership) bool { return m.RoomID == roomID }), nil
}

func (s *Memberships) ListActiveByRooms(_ context.Context, roomIDs []primitive.ObjectID) (map[primitive.ObjectID][]models.Membership, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	want := make(map[primitive.ObjectID]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		want[id] = struct{}{}
	}
	out := make(map[primitive.ObjectID][]models.Membership)
	for _, m := range s.db.activeWhere(func(m models.Membership) bool {
		_, ok := want[m.RoomID]
		return ok
	}) {
		out[m.RoomID] = append(out[m.RoomID], m)
	}
	return out, nil
}

func (s *Memberships) ListActiveByUser(_ context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.activeWhere(func(m models.Membership) bool { return m.UserID == userID }), nil
}

// CountActive counts active membership rows, independent of the room counter.
func (s *Memberships) CountActive(roomID primitive.ObjectID) int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.db.activeWhere(func(m models.Membership) bool { return m.RoomID == roomID }))
}

// activeWhere must be called with mu held.
func (db *DB) activeWhere(keep func(models.Membership) bool) []models.Membership {
	var out []models.Membership
	for _, m := range db.memberships {
		if !m.Removed && keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out
}

// ---- messages ----

type Messages struct{ db *DB }

func (s *Messages) Create(_ context.Context, m models.Message) (models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m.ID = primitive.NewObjectID()
	m.CreatedAt = clock.Now()
	s.db.messages = append(s.db.messages, m)
	return m, nil
}

func (s *Messages) Count(_ context.Context, roomID primitive.ObjectID) (int64, error) {
	return s.count(roomID, time.Time{}), nil
}

func (s *Messages) CountAfter(_ context.Context, roomID primitive.ObjectID, t time.Time) (int64, error) {
	return s.count(roomID, t), nil
}

func (s *Messages) count(roomID primitive.ObjectID, after time.Time) int64 {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, m := range s.db.messages {
		if m.RoomID == roomID && m.CreatedAt.After(after) {
			n++
		}
	}
	return n
}

func (s *Messages) List(_ context.Context, roomID primitive.ObjectID, f models.MessageFilter) ([]models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	needle := strings.ToLower(f.Text)
	var out []models.Message
	for _, m := range s.db.messages {
		switch {
		case m.RoomID != roomID:
		case !f.From.IsZero() && !m.CreatedAt.After(f.From):
		case !f.To.IsZero() && m.CreatedAt.After(f.To):
		case needle != "" && !strings.Contains(strings.ToLower(m.Text), needle):
		default:
			out = append(out, m)
		}
	}

	// messages is already in created_at order
	if f.Order == models.MessageOrderText {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	}
	if f.Descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ---- reports ----

type Reports struct{ db *DB }

func (s *Reports) Create(_ context.Context, r models.RoomReport) (models.RoomReport, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r.ID = primitive.NewObjectID()
	r.CreatedAt = time.Now().UTC()
	s.db.reports = append(s.db.reports, r)
	return r, nil
}

// ---- users ----

type Users struct{ db *DB }

func (s *Users) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return models.User{}, storeerr.ErrNotFound
	}
	return u, nil
}

func (s *Users) GetMany(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make(map[primitive.ObjectID]models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.db.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}
