package messagestore_test

import (
	"testing"
	"time"

	messagestore "github.com/dalemusser/roomhub/internal/app/store/messages"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"github.com/dalemusser/roomhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seed(t *testing.T, store *messagestore.Store, roomID primitive.ObjectID, texts ...string) []models.Message {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	out := make([]models.Message, 0, len(texts))
	for _, txt := range texts {
		m, err := store.Create(ctx, models.Message{
			RoomID:   roomID,
			MemberID: primitive.NewObjectID(),
			UserID:   primitive.NewObjectID(),
			Text:     txt,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func TestStore_Create_AssignsIncreasingTimestamps(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)

	msgs := seed(t, store, primitive.NewObjectID(), "a", "b", "c")
	for i := 1; i < len(msgs); i++ {
		if !msgs[i].CreatedAt.After(msgs[i-1].CreatedAt) {
			t.Errorf("message %d not after message %d", i, i-1)
		}
		if msgs[i].ID.IsZero() {
			t.Errorf("message %d has no ID", i)
		}
	}
}

func TestStore_CountAndCountAfter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roomID := primitive.NewObjectID()
	msgs := seed(t, store, roomID, "one", "two", "three")
	seed(t, store, primitive.NewObjectID(), "other room")

	total, err := store.Count(ctx, roomID)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Count: got %d, want 3", total)
	}

	unread, err := store.CountAfter(ctx, roomID, msgs[0].CreatedAt)
	if err != nil {
		t.Fatalf("CountAfter failed: %v", err)
	}
	if unread != 2 {
		t.Errorf("CountAfter first: got %d, want 2", unread)
	}

	all, err := store.CountAfter(ctx, roomID, time.Unix(0, 0).UTC())
	if err != nil {
		t.Fatalf("CountAfter failed: %v", err)
	}
	if all != 3 {
		t.Errorf("CountAfter epoch: got %d, want 3", all)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roomID := primitive.NewObjectID()
	msgs := seed(t, store, roomID, "charlie", "Alpha", "bravo", "alphabet")

	tests := []struct {
		name   string
		filter models.MessageFilter
		want   []string
	}{
		{"default ascending by time", models.MessageFilter{}, []string{"charlie", "Alpha", "bravo", "alphabet"}},
		{"descending", models.MessageFilter{Descending: true}, []string{"alphabet", "bravo", "Alpha", "charlie"}},
		{"limit", models.MessageFilter{Limit: 2}, []string{"charlie", "Alpha"}},
		{"from is exclusive", models.MessageFilter{From: msgs[1].CreatedAt}, []string{"bravo", "alphabet"}},
		{"to is inclusive", models.MessageFilter{To: msgs[1].CreatedAt}, []string{"charlie", "Alpha"}},
		{"text case-insensitive substring", models.MessageFilter{Text: "ALPHA"}, []string{"Alpha", "alphabet"}},
		{"order by text", models.MessageFilter{Order: models.MessageOrderText, Text: "a"}, []string{"Alpha", "alphabet", "bravo", "charlie"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.List(ctx, roomID, tc.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d messages, want %d", len(got), len(tc.want))
			}
			for i, m := range got {
				if m.Text != tc.want[i] {
					t.Errorf("[%d] got %q, want %q", i, m.Text, tc.want[i])
				}
			}
		})
	}
}
