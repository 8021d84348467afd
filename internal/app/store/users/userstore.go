package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/normalize"
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
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateUser is returned when the username or email is already taken.
	ErrDuplicateUser = errors.New("a user with this username or email already exists")
	errUsernameNeeded = errors.New("username is required")
	errBadTrustLevel  = errors.New("trust_level must be between 0 and 4")
)

// Create inserts a new user after normalizing & validating fields.
// It does not write any group membership.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Name(u.Username)
	u.UsernameCI = normalize.Username(u.Username)
	u.Email = normalize.Email(u.Email)
	u.EmailDomain = normalize.EmailDomain(u.Email)

	if u.UsernameCI == "" {
		return models.User{}, errUsernameNeeded
	}
	if !models.ValidTrustLevel(u.TrustLevel) {
		return models.User{}, errBadTrustLevel
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateUser
		}
		return models.User{}, err
	}
	return u, nil
}

// FindByUsernames returns users whose username_ci is in usernamesCI.
func (s *Store) FindByUsernames(ctx context.Context, usernamesCI []string) ([]models.User, error) {
	return s.findIn(ctx, "username_ci", usernamesCI)
}

// FindByEmails returns users whose normalized email is in emails.
func (s *Store) FindByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	return s.findIn(ctx, "email", emails)
}

// GetByIDs returns the users with the given IDs, sorted by username.
// Unknown IDs are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "username_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) findIn(ctx context.Context, field string, values []string) ([]models.User, error) {
	if len(values) == 0 {
		return []models.User{}, nil
	}
	cur, err := s.c.Find(ctx, bson.M{field: bson.M{"$in": values}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GroupDefaults are the user attributes a group pushes onto its members
// during bulk assignment.
type GroupDefaults struct {
	GroupID primitive.ObjectID
	Title   string
	// GrantTrustLevel, when set, is a floor: a user's trust level is
	// raised to it but never lowered.
	GrantTrustLevel *int
}

// ApplyGroupDefaults sets the user's primary group and title and raises
// their trust level to the group's grant level. Returns
// mongo.ErrNoDocuments when the user does not exist.
func (s *Store) ApplyGroupDefaults(ctx context.Context, userID primitive.ObjectID, d GroupDefaults) error {
	update := bson.M{
		"$set": bson.M{
			"primary_group_id": d.GroupID,
			"title":            d.Title,
			"updated_at":       time.Now().UTC(),
		},
	}
	if d.GrantTrustLevel != nil {
		update["$max"] = bson.M{"trust_level": *d.GrantTrustLevel}
	}
	res, err := s.c.UpdateByID(ctx, userID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ClearPrimaryGroup unsets primary_group_id on every user pointing at
// groupID. Returns the number of users changed.
func (s *Store) ClearPrimaryGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"primary_group_id": groupID},
		bson.M{
			"$unset": bson.M{"primary_group_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountByEmailDomains counts users whose email domain is one of domains.
// Domains must already be normalized. An empty list counts nothing.
func (s *Store) CountByEmailDomains(ctx context.Context, domains []string) (int64, error) {
	if len(domains) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{"email_domain": bson.M{"$in": domains}})
}
