package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

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

// CreateUser inserts a user with trust level 0.
func (f *Fixtures) CreateUser(ctx context.Context, username, email string) models.User {
	f.t.Helper()
	return f.CreateUserWithTrust(ctx, username, email, 0)
}

// CreateUserWithTrust inserts a user with the given trust level.
func (f *Fixtures) CreateUserWithTrust(ctx context.Context, username, email string, trust int) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:          primitive.NewObjectID(),
		Username:    username,
		UsernameCI:  normalize.Username(username),
		Email:       normalize.Email(email),
		EmailDomain: normalize.EmailDomain(email),
		TrustLevel:  trust,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateGroup inserts a regular (non-automatic) group.
func (f *Fixtures) CreateGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()
	return f.insertGroup(ctx, name, false)
}

// CreateAutomaticGroup inserts a system-managed group.
func (f *Fixtures) CreateAutomaticGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()
	return f.insertGroup(ctx, name, true)
}

func (f *Fixtures) insertGroup(ctx context.Context, name string, automatic bool) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	group := models.Group{
		ID:                     primitive.NewObjectID(),
		Name:                   name,
		NameCI:                 text.Fold(name),
		Automatic:              automatic,
		MembersVisibilityLevel: models.VisibilityPublic,
		CustomFields:           map[string]string{},
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if _, err := f.db.Collection("groups").InsertOne(ctx, group); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return group
}

// CreateMembership inserts a membership, optionally as owner.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID, userID primitive.ObjectID, owner bool) models.GroupMembership {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}
