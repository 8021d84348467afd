// Package groupadmin implements group membership administration: group
// lifecycle, ownership, bulk assignment and automatic-membership
// estimation. Automatic groups are guarded in one place, mutate.
package groupadmin

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/grouphub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/identity"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultBulkConcurrency bounds parallel per-user work in BulkAssign.
const DefaultBulkConcurrency = 8

// Deps are the collaborators of a Service. Audit and Notifier may be nil.
type Deps struct {
	Groups      GroupStore
	Memberships MembershipStore
	Users       UserStore
	Notifier    Notifier
	Fields      FieldRegistry
	Tx          Transactor
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

// Options tune a Service.
type Options struct {
	BulkConcurrency int
}

// Service is the group administration core.
type Service struct {
	groups      GroupStore
	memberships MembershipStore
	users       UserStore
	notifier    Notifier
	fields      FieldRegistry
	tx          Transactor
	audit       *auditlog.Logger
	log         *zap.Logger
	resolver    *identity.Resolver
	concurrency int
}

// New creates a Service.
func New(d Deps, opts Options) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	n := opts.BulkConcurrency
	if n <= 0 {
		n = DefaultBulkConcurrency
	}
	return &Service{
		groups:      d.Groups,
		memberships: d.Memberships,
		users:       d.Users,
		notifier:    d.Notifier,
		fields:      d.Fields,
		tx:          d.Tx,
		audit:       d.Audit,
		log:         log,
		resolver:    identity.New(d.Users),
		concurrency: n,
	}
}

// load fetches a group, mapping a miss to ErrGroupNotFound.
func (s *Service) load(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, ErrGroupNotFound
		}
		return models.Group{}, fmt.Errorf("load group: %w", err)
	}
	return g, nil
}

// mutate loads the group, applies the lifecycle guard for changes and
// only then runs fn. Every mutating operation goes through here.
func (s *Service) mutate(ctx context.Context, id primitive.ObjectID, changes []grouppolicy.Change, fn func(ctx context.Context, g models.Group) error) error {
	g, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := grouppolicy.CheckMutation(g, changes...); err != nil {
		s.log.Info("rejected mutation of automatic group",
			zap.String("group_id", g.ID.Hex()),
			zap.String("group", g.Name),
			zap.Stringers("changes", changes))
		return err
	}
	return fn(ctx, g)
}
