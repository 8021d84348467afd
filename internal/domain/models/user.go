// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account that can belong to groups.
//
// NOTE:
//   - Group membership is not embedded on User.
//     Use the group_memberships collection to discover a user's groups.
//   - Email is stored normalized (trimmed, lower case); EmailDomain is
//     derived from it on write so domain counts can use an index.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username    string             `bson:"username" json:"username"`
	UsernameCI  string             `bson:"username_ci" json:"-"`
	Email       string             `bson:"email" json:"email"`
	EmailDomain string             `bson:"email_domain" json:"-"`
	TrustLevel  int                `bson:"trust_level" json:"trust_level"`

	PrimaryGroupID *primitive.ObjectID `bson:"primary_group_id,omitempty" json:"primary_group_id,omitempty"`
	Title          *string             `bson:"title,omitempty" json:"title,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
