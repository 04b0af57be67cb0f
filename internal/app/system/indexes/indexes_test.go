package indexes_test

import (
	"testing"
	"time"

	"github.com/dalemusser/roomhub/internal/app/system/indexes"
	"github.com/dalemusser/roomhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll once; running again must be a no-op.
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesNamedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	want := map[string][]string{
		"rooms":        {"idx_rooms_owner", "idx_rooms_archived_titleci__id"},
		"memberships":  {"uniq_memberships_room_user", "idx_memberships_user_removed", "idx_memberships_room_removed_created"},
		"messages":     {"idx_messages_room_created__id"},
		"room_reports": {"idx_room_reports_room_created"},
	}

	for coll, names := range want {
		cur, err := db.Collection(coll).Indexes().List(ctx)
		if err != nil {
			t.Fatalf("%s: list indexes failed: %v", coll, err)
		}
		got := map[string]bool{}
		for cur.Next(ctx) {
			var idx bson.M
			if err := cur.Decode(&idx); err != nil {
				t.Fatalf("decode index: %v", err)
			}
			if name, ok := idx["name"].(string); ok {
				got[name] = true
			}
		}
		cur.Close(ctx)

		for _, n := range names {
			if !got[n] {
				t.Errorf("%s: missing index %q", coll, n)
			}
		}
	}
}

func TestEnsureAll_MembershipUniqueness(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roomID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	doc := func() bson.M {
		return bson.M{
			"_id":        primitive.NewObjectID(),
			"room_id":    roomID,
			"user_id":    userID,
			"removed":    false,
			"created_at": time.Now().UTC(),
		}
	}

	c := db.Collection("memberships")
	if _, err := c.InsertOne(ctx, doc()); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err := c.InsertOne(ctx, doc())
	if !mongo.IsDuplicateKeyError(err) {
		t.Errorf("expected duplicate key error, got %v", err)
	}
}
