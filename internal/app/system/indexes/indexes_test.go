package indexes_test

import (
	"testing"

	"github.com/dalemusser/grouphub/internal/app/system/indexes"
	"github.com/dalemusser/grouphub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// EnsureAll should succeed on a clean database
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		coll string
		want []string
	}{
		{"users", []string{"uniq_users_usernameci", "uniq_users_email", "idx_users_emaildomain", "idx_users_primarygroup"}},
		{"groups", []string{"uniq_groups_nameci", "idx_groups_automatic_nameci"}},
		{"group_memberships", []string{"uniq_gm_group_user", "idx_gm_group_owner_created", "idx_gm_user"}},
		{"notifications", []string{"idx_notifications_recipient_created", "idx_notifications_group"}},
		{"audit_events", []string{"idx_audit_timestamp", "idx_audit_group_timestamp", "idx_audit_category_type_timestamp"}},
	}
	for _, tt := range tests {
		t.Run(tt.coll, func(t *testing.T) {
			names := indexNames(t, db, tt.coll)
			for _, n := range tt.want {
				if !names[n] {
					t.Errorf("expected index %q to exist on %s", n, tt.coll)
				}
			}
		})
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("groups").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name_ci", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("legacy_name"),
	})
	if err != nil {
		t.Fatalf("create legacy index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := indexNames(t, db, "groups")
	if names["legacy_name"] {
		t.Error("expected legacy_name to be dropped")
	}
	if !names["uniq_groups_nameci"] {
		t.Error("expected uniq_groups_nameci to exist")
	}
}

func TestEnsureAll_UniqueIndexEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	gid, uid := primitive.NewObjectID(), primitive.NewObjectID()
	gm := db.Collection("group_memberships")
	if _, err := gm.InsertOne(ctx, bson.M{"group_id": gid, "user_id": uid, "owner": false}); err != nil {
		t.Fatalf("Insert membership failed: %v", err)
	}
	if _, err := gm.InsertOne(ctx, bson.M{"group_id": gid, "user_id": uid, "owner": true}); err == nil {
		t.Error("expected duplicate key error for unique (group_id, user_id)")
	}

	groups := db.Collection("groups")
	if _, err := groups.InsertOne(ctx, bson.M{"name": "Staff", "name_ci": "staff"}); err != nil {
		t.Fatalf("Insert group failed: %v", err)
	}
	if _, err := groups.InsertOne(ctx, bson.M{"name": "STAFF", "name_ci": "staff"}); err == nil {
		t.Error("expected duplicate key error for unique groups.name_ci")
	}

	// Users without an email do not collide on the partial unique index.
	users := db.Collection("users")
	if _, err := users.InsertOne(ctx, bson.M{"username_ci": "a", "email": ""}); err != nil {
		t.Fatalf("Insert user a failed: %v", err)
	}
	if _, err := users.InsertOne(ctx, bson.M{"username_ci": "b", "email": ""}); err != nil {
		t.Errorf("expected blank emails to be allowed, got %v", err)
	}
}
