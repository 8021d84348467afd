// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Visibility levels for a group's member list.
const (
	VisibilityPublic        = 0
	VisibilityLoggedOnUsers = 1
	VisibilityMembers       = 2
	VisibilityStaff         = 3
	VisibilityOwners        = 4
)

// Trust levels run from 0 (new user) to 4 (leader).
const (
	MinTrustLevel = 0
	MaxTrustLevel = 4
)

// Group is an administrable set of users.
//
// NOTE:
//   - Member/owner lists are not embedded on Group.
//     All membership is stored in the group_memberships collection.
//   - Automatic groups are provisioned by the system and are read-only
//     to admin membership, ownership, custom-field and delete operations.
type Group struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"-"`
	Automatic bool               `bson:"automatic" json:"automatic"`

	// Defaults applied to users whose primary group this is.
	PrimaryGroup    bool   `bson:"primary_group" json:"primary_group"`
	Title           string `bson:"title" json:"title"`
	GrantTrustLevel *int   `bson:"grant_trust_level,omitempty" json:"grant_trust_level"`

	MembersVisibilityLevel    int    `bson:"members_visibility_level" json:"members_visibility_level"`
	AllowMembershipRequests   bool   `bson:"allow_membership_requests" json:"allow_membership_requests"`
	MembershipRequestTemplate string `bson:"membership_request_template" json:"membership_request_template"`

	// Pipe-delimited list of email domains, e.g. "a.org|b.com".
	AutomaticMembershipEmailDomains string `bson:"automatic_membership_email_domains,omitempty" json:"automatic_membership_email_domains,omitempty"`

	CustomFields map[string]string `bson:"custom_fields,omitempty" json:"custom_fields"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ValidVisibility reports whether v is a known members_visibility_level.
func ValidVisibility(v int) bool {
	return v >= VisibilityPublic && v <= VisibilityOwners
}

// ValidTrustLevel reports whether tl is within the trust level range.
func ValidTrustLevel(tl int) bool {
	return tl >= MinTrustLevel && tl <= MaxTrustLevel
}
