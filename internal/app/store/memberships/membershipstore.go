// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/roomhub/internal/app/store/storeerr"
	"github.com/dalemusser/roomhub/internal/app/system/txn"
	"github.com/dalemusser/roomhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store persists memberships and keeps rooms.active_member_count in step
// with the number of non-removed rows.
type Store struct {
	db    *mongo.Database
	c     *mongo.Collection
	rooms *mongo.Collection
	log   *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		db:    db,
		c:     db.Collection("memberships"),
		rooms: db.Collection("rooms"),
		log:   logger,
	}
}

// CreateMany inserts one active membership per user. It is used only when a
// room is created, so the room's counter is set by the room store instead.
func (s *Store) CreateMany(ctx context.Context, roomID primitive.ObjectID, userIDs []primitive.ObjectID) ([]models.Membership, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	out := make([]models.Membership, 0, len(userIDs))
	docs := make([]interface{}, 0, len(userIDs))
	for _, uid := range userIDs {
		m := models.Membership{
			ID:        primitive.NewObjectID(),
			RoomID:    roomID,
			UserID:    uid,
			CreatedAt: now,
			UpdatedAt: now,
		}
		out = append(out, m)
		docs = append(docs, m)
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, storeerr.ErrDuplicate
		}
		return nil, err
	}
	return out, nil
}

// Get loads the membership row for (roomID, userID) in any state.
func (s *Store) Get(ctx context.Context, roomID, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"room_id": roomID, "user_id": userID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Membership{}, storeerr.ErrNotFound
	}
	if err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// Admit makes userID an active member of roomID if the room has a free slot.
//
// A missing row is inserted. A removed row is reactivated only when
// reactivate is true, otherwise ErrRemoved is returned. The slot is reserved
// with a conditional increment on the room document before the membership
// is written, so concurrent admissions can never push the active count past
// member_count_limit; if the membership write loses a race the slot is
// released again.
func (s *Store) Admit(ctx context.Context, roomID, userID primitive.ObjectID, reactivate bool) (models.Membership, error) {
	var out models.Membership
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		existing, err := s.Get(ctx, roomID, userID)
		found := err == nil
		switch {
		case errors.Is(err, storeerr.ErrNotFound):
		case err != nil:
			return err
		case existing.Active():
			return storeerr.ErrActive
		case !reactivate:
			return storeerr.ErrRemoved
		}

		if err := s.reserveSlot(ctx, roomID); err != nil {
			return err
		}

		now := time.Now().UTC()
		if found {
			err = s.c.FindOneAndUpdate(ctx,
				bson.M{"_id": existing.ID, "removed": true},
				bson.M{"$set": bson.M{"removed": false, "updated_at": now}},
				options.FindOneAndUpdate().SetReturnDocument(options.After),
			).Decode(&out)
			if errors.Is(err, mongo.ErrNoDocuments) {
				s.releaseSlot(ctx, roomID)
				return storeerr.ErrActive
			}
			return err
		}

		m := models.Membership{
			ID:        primitive.NewObjectID(),
			RoomID:    roomID,
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.c.InsertOne(ctx, m); err != nil {
			s.releaseSlot(ctx, roomID)
			if wafflemongo.IsDup(err) {
				return storeerr.ErrActive
			}
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return models.Membership{}, err
	}
	return out, nil
}

// Deactivate flips an active membership to removed and frees its slot.
// Returns ErrNotFound when no row exists and ErrInactive when the row is
// already removed.
func (s *Store) Deactivate(ctx context.Context, roomID, userID primitive.ObjectID) (models.Membership, error) {
	var out models.Membership
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		err := s.c.FindOneAndUpdate(ctx,
			bson.M{"room_id": roomID, "user_id": userID, "removed": false},
			bson.M{"$set": bson.M{"removed": true, "updated_at": time.Now().UTC()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&out)
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, gerr := s.Get(ctx, roomID, userID); gerr != nil {
				return gerr
			}
			return storeerr.ErrInactive
		}
		if err != nil {
			return err
		}
		if txn.InTransaction(ctx) {
			_, err = s.rooms.UpdateOne(ctx,
				bson.M{"_id": roomID, "active_member_count": bson.M{"$gt": 0}},
				bson.M{"$inc": bson.M{"active_member_count": -1}},
			)
			return err
		}
		// Without a transaction the row has already flipped and cannot be
		// rolled back. A failed decrement leaves the counter one high.
		s.releaseSlot(ctx, roomID)
		return nil
	})
	if err != nil {
		return models.Membership{}, err
	}
	return out, nil
}

// AdvanceReadCursor moves last_read_at forward to at (never backward) and
// returns the stored cursor. Works on removed rows too.
func (s *Store) AdvanceReadCursor(ctx context.Context, roomID, userID primitive.ObjectID, at time.Time) (time.Time, error) {
	var m models.Membership
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"room_id": roomID, "user_id": userID},
		bson.M{
			"$max": bson.M{"last_read_at": at},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, storeerr.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return m.ReadCursor(), nil
}

// ListActiveByRoom returns the room's active memberships in join order.
func (s *Store) ListActiveByRoom(ctx context.Context, roomID primitive.ObjectID) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"room_id": roomID, "removed": false})
}

// ListActiveByRooms returns the active memberships of several rooms keyed by
// room ID.
func (s *Store) ListActiveByRooms(ctx context.Context, roomIDs []primitive.ObjectID) (map[primitive.ObjectID][]models.Membership, error) {
	out := make(map[primitive.ObjectID][]models.Membership, len(roomIDs))
	if len(roomIDs) == 0 {
		return out, nil
	}
	ms, err := s.find(ctx, bson.M{"room_id": bson.M{"$in": roomIDs}, "removed": false})
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		out[m.RoomID] = append(out[m.RoomID], m)
	}
	return out, nil
}

// ListActiveByUser returns every active membership held by userID.
func (s *Store) ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"user_id": userID, "removed": false})
}

// CountActive returns the number of active memberships in a room.
func (s *Store) CountActive(ctx context.Context, roomID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"room_id": roomID, "removed": false})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Membership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// reserveSlot increments the room's active count unless the room is full.
func (s *Store) reserveSlot(ctx context.Context, roomID primitive.ObjectID) error {
	res, err := s.rooms.UpdateOne(ctx,
		bson.M{
			"_id": roomID,
			"$or": bson.A{
				bson.M{"member_count_limit": bson.M{"$lte": 0}},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$active_member_count", "$member_count_limit"}}},
			},
		},
		bson.M{"$inc": bson.M{"active_member_count": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := s.rooms.CountDocuments(ctx, bson.M{"_id": roomID})
	if err != nil {
		return err
	}
	if n == 0 {
		return storeerr.ErrNotFound
	}
	return storeerr.ErrLimitReached
}

func (s *Store) releaseSlot(ctx context.Context, roomID primitive.ObjectID) {
	_, err := s.rooms.UpdateOne(ctx,
		bson.M{"_id": roomID, "active_member_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"active_member_count": -1}},
	)
	if err != nil && s.log != nil {
		s.log.Warn("release membership slot failed; active_member_count may be high",
			zap.String("room_id", roomID.Hex()), zap.Error(err))
	}
}
