package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/roomhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user profile the way the identity service would.
func (f *Fixtures) CreateUser(ctx context.Context, userName, country string) models.User {
	f.t.Helper()

	u := models.User{
		ID:        primitive.NewObjectID(),
		FirstName: "Test",
		LastName:  userName,
		UserName:  userName,
		Hospital:  "Test Hospital",
		Country:   country,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateRoom inserts a room owned by ownerID with an active owner membership.
// limit is member_count_limit (0 = unlimited).
func (f *Fixtures) CreateRoom(ctx context.Context, title string, ownerID primitive.ObjectID, limit int) models.Room {
	f.t.Helper()

	now := time.Now().UTC()
	r := models.Room{
		ID:                primitive.NewObjectID(),
		OwnerID:           ownerID,
		Title:             title,
		TitleCI:           text.Fold(title),
		Topics:            []string{},
		Jobs:              []string{},
		Countries:         []string{},
		MemberCountLimit:  limit,
		ActiveMemberCount: 1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := f.db.Collection("rooms").InsertOne(ctx, r); err != nil {
		f.t.Fatalf("failed to create test room: %v", err)
	}
	m := models.Membership{
		ID:        primitive.NewObjectID(),
		RoomID:    r.ID,
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create owner membership: %v", err)
	}
	return r
}

// ActiveMemberCount reads the room's stored counter.
func (f *Fixtures) ActiveMemberCount(ctx context.Context, roomID primitive.ObjectID) int {
	f.t.Helper()

	var r models.Room
	if err := f.db.Collection("rooms").FindOne(ctx, bson.M{"_id": roomID}).Decode(&r); err != nil {
		f.t.Fatalf("failed to load room: %v", err)
	}
	return r.ActiveMemberCount
}
