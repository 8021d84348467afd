// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"time"

	"github.com/dalemusser/grouphub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

// AddMember makes userID a member of groupID. An existing membership is
// left as is, including its owner flag.
func (s *Store) AddMember(ctx context.Context, groupID, userID primitive.ObjectID) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"owner": false, "created_at": now},
	}
	return s.upsert(ctx, groupID, userID, update)
}

// AddOwner makes userID a member and an owner of groupID.
func (s *Store) AddOwner(ctx context.Context, groupID, userID primitive.ObjectID) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"owner": true, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	return s.upsert(ctx, groupID, userID, update)
}

func (s *Store) upsert(ctx context.Context, groupID, userID primitive.ObjectID, update bson.M) error {
	filter := bson.M{"group_id": groupID, "user_id": userID}
	_, err := s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil && wafflemongo.IsDup(err) {
		// Two concurrent upserts raced on the unique (group_id, user_id)
		// index; the loser retries as a plain update.
		_, err = s.c.UpdateOne(ctx, filter, update)
	}
	return err
}

// RemoveOwner clears the owner flag. Membership is kept. Removing a
// non-owner is a no-op.
func (s *Store) RemoveOwner(ctx context.Context, groupID, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID, "owner": true},
		bson.M{"$set": bson.M{"owner": false, "updated_at": time.Now().UTC()}},
	)
	return err
}

// DeleteByGroup removes all memberships for a group.
// Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByGroup returns memberships for a group in join order.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, ownersOnly bool) ([]models.GroupMembership, error) {
	filter := bson.M{"group_id": groupID}
	if ownersOnly {
		filter["owner"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.GroupMembership{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
