// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/grouphub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateGroupName = errors.New("a group with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	if g.CustomFields == nil {
		g.CustomFields = map[string]string{}
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, g)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateGroupName
		}
		return models.Group{}, err
	}
	return g, nil
}

// Update writes the admin-editable fields of g. The automatic flag and
// creation time are never changed here.
func (s *Store) Update(ctx context.Context, g models.Group) error {
	set := bson.M{
		"name":                               g.Name,
		"name_ci":                            text.Fold(g.Name),
		"primary_group":                      g.PrimaryGroup,
		"title":                              g.Title,
		"members_visibility_level":           g.MembersVisibilityLevel,
		"allow_membership_requests":          g.AllowMembershipRequests,
		"membership_request_template":        g.MembershipRequestTemplate,
		"automatic_membership_email_domains": g.AutomaticMembershipEmailDomains,
		"custom_fields":                      g.CustomFields,
		"updated_at":                         time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if g.GrantTrustLevel != nil {
		set["grant_trust_level"] = *g.GrantTrustLevel
	} else {
		update["$unset"] = bson.M{"grant_trust_level": ""}
	}

	res, err := s.c.UpdateByID(ctx, g.ID, update)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateGroupName
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EnsureAutomatic provisions a system-managed group by name, creating it
// when missing. An existing group of that name is marked automatic.
func (s *Store) EnsureAutomatic(ctx context.Context, name string) (models.Group, error) {
	now := time.Now().UTC()
	name = strings.TrimSpace(name)
	filter := bson.M{"name_ci": text.Fold(name)}
	update := bson.M{
		"$set": bson.M{"automatic": true, "updated_at": now},
		"$setOnInsert": bson.M{
			"name":                        name,
			"members_visibility_level":    models.VisibilityPublic,
			"primary_group":               false,
			"title":                       "",
			"allow_membership_requests":   false,
			"membership_request_template": "",
			"custom_fields":               bson.M{},
			"created_at":                  now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var g models.Group
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Count returns the number of groups, optionally only automatic ones.
func (s *Store) Count(ctx context.Context, automaticOnly bool) (int64, error) {
	filter := bson.M{}
	if automaticOnly {
		filter["automatic"] = true
	}
	return s.c.CountDocuments(ctx, filter)
}
