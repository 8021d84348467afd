package groupadmin

import (
	"context"

	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/app/system/identity"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupStore persists groups. GetByID returns mongo.ErrNoDocuments for an
// unknown id and Create returns groupstore.ErrDuplicateGroupName when the
// folded name is taken.
type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	Create(ctx context.Context, g models.Group) (models.Group, error)
	Update(ctx context.Context, g models.Group) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// MembershipStore persists GroupUser rows. Adds are upserts.
type MembershipStore interface {
	AddMember(ctx context.Context, groupID, userID primitive.ObjectID) error
	AddOwner(ctx context.Context, groupID, userID primitive.ObjectID) error
	RemoveOwner(ctx context.Context, groupID, userID primitive.ObjectID) error
	ListByGroup(ctx context.Context, groupID primitive.ObjectID, ownersOnly bool) ([]models.GroupMembership, error)
	DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

// UserStore reads users for resolution and applies group defaults.
type UserStore interface {
	identity.Lookup
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	ApplyGroupDefaults(ctx context.Context, userID primitive.ObjectID, d userstore.GroupDefaults) error
	ClearPrimaryGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
	CountByEmailDomains(ctx context.Context, domains []string) (int64, error)
}

// Notifier queues the owner-added notification for one user.
type Notifier interface {
	NotifyOwnerAdded(ctx context.Context, g models.Group, u models.User) error
}

// FieldRegistry supplies the custom-field keys writable right now.
type FieldRegistry interface {
	Allowed() map[string]struct{}
}

// Transactor runs fn as one unit of work.
type Transactor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}
