// internal/app/store/rooms/roomstore.go
package roomstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/roomhub/internal/app/store/storeerr"
	"github.com/dalemusser/roomhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/roomhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("rooms")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Room, error) {
	var r models.Room
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Room{}, storeerr.ErrNotFound
	}
	if err != nil {
		return models.Room{}, err
	}
	return r, nil
}

// Create inserts r with a fresh ID. ActiveMemberCount must already equal the
// number of memberships the caller is about to insert.
func (s *Store) Create(ctx context.Context, r models.Room) (models.Room, error) {
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.TitleCI = text.Fold(r.Title)
	r.DescriptionCI = DescriptionFold(r.Description)
	r.Topics = nonNil(r.Topics)
	r.Jobs = nonNil(r.Jobs)
	r.Countries = nonNil(r.Countries)
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Room{}, err
	}
	return r, nil
}

// Update applies the non-nil fields of p and returns the stored room.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p models.RoomPatch) (models.Room, error) {
	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if p.Title != nil {
		set["title"] = *p.Title
		set["title_ci"] = text.Fold(*p.Title)
	}
	// Description can be cleared (set to empty)
	if p.Description != nil {
		set["description"] = *p.Description
		set["description_ci"] = DescriptionFold(*p.Description)
	}
	if p.Topics != nil {
		set["topics"] = nonNil(*p.Topics)
	}
	if p.Jobs != nil {
		set["jobs"] = nonNil(*p.Jobs)
	}
	if p.Countries != nil {
		set["countries"] = nonNil(*p.Countries)
	}
	if p.IsPrivate != nil {
		set["is_private"] = *p.IsPrivate
	}
	if p.Avatar != nil {
		set["avatar"] = *p.Avatar
	}
	if p.Background != nil {
		set["background"] = *p.Background
	}
	if p.ClearCategory {
		update["$unset"] = bson.M{"category_id": ""}
	} else if p.CategoryID != nil {
		set["category_id"] = *p.CategoryID
	}
	if p.Archived != nil {
		set["archived"] = *p.Archived
	}
	if p.MemberCountLimit != nil {
		set["member_count_limit"] = *p.MemberCountLimit
	}

	var r models.Room
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Room{}, storeerr.ErrNotFound
	}
	if err != nil {
		return models.Room{}, err
	}
	return r, nil
}

// Query returns the rooms matching f, ordered by title. Archived rooms are
// excluded unless f.Archived is set.
func (s *Store) Query(ctx context.Context, f models.RoomFilter) ([]models.Room, error) {
	return s.find(ctx, FilterBSON(f))
}

// ListByIDs loads the given rooms, ordered by title. Missing IDs are skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Room, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "title_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Room
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FilterBSON translates a RoomFilter into a Mongo filter. Title and
// description match as folded substrings; array fields match by element.
func FilterBSON(f models.RoomFilter) bson.M {
	filter := bson.M{}
	if f.Archived != nil {
		filter["archived"] = *f.Archived
	} else {
		filter["archived"] = false
	}
	if f.Title != "" {
		filter["title_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(f.Title))}
	}
	if f.Description != "" {
		filter["description_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(f.Description))}
	}
	if f.OwnerID != nil {
		filter["owner_id"] = *f.OwnerID
	}
	if f.CategoryID != nil {
		filter["category_id"] = *f.CategoryID
	}
	if f.IsPrivate != nil {
		filter["is_private"] = *f.IsPrivate
	}
	if f.Country != "" {
		filter["countries"] = f.Country
	}
	if f.Topic != "" {
		filter["topics"] = f.Topic
	}
	if f.Job != "" {
		filter["jobs"] = f.Job
	}
	return filter
}

// DescriptionFold is the form description_ci is stored in. Descriptions are
// sanitized HTML, so markup is removed and entities decoded before folding;
// a search for "Tom & Jerry" must match a description stored as
// "Tom &amp; Jerry". Titles are already plain text and fold directly.
func DescriptionFold(s string) string {
	return text.Fold(htmlsanitize.StripTags(s))
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
