package roomreportstore_test

import (
	"testing"

	roomreportstore "github.com/dalemusser/roomhub/internal/app/store/roomreports"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"github.com/dalemusser/roomhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := roomreportstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roomID := primitive.NewObjectID()
	reporter := primitive.NewObjectID()

	r, err := store.Create(ctx, models.RoomReport{
		RoomID:      roomID,
		ReporterID:  reporter,
		Type:        "spam",
		Description: "links everywhere",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if r.ID.IsZero() || r.CreatedAt.IsZero() {
		t.Errorf("expected ID and CreatedAt to be set: %+v", r)
	}

	var stored models.RoomReport
	if err := db.Collection("room_reports").FindOne(ctx, bson.M{"_id": r.ID}).Decode(&stored); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if stored.RoomID != roomID || stored.ReporterID != reporter || stored.Type != "spam" {
		t.Errorf("unexpected stored report: %+v", stored)
	}
}
