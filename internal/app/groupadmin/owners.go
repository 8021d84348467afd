package groupadmin

import (
	"context"
	"fmt"

	"github.com/dalemusser/grouphub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ListOwners returns the owners of a group sorted by username.
func (s *Service) ListOwners(ctx context.Context, id primitive.ObjectID) ([]models.User, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.memberships.ListByGroup(ctx, g.ID, true)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.UserID)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	return users, nil
}

// AddOwners makes every resolvable token an owner of the group and
// returns the resolved usernames. Re-adding an owner is a no-op. With
// notify set, each resolved user gets one owner-added notification.
func (s *Service) AddOwners(ctx context.Context, id primitive.ObjectID, tokens []string, notify bool) ([]string, error) {
	var (
		group     models.Group
		resolved  []models.User
		usernames []string
	)
	err := s.mutate(ctx, id, []grouppolicy.Change{grouppolicy.ChangeOwnership}, func(ctx context.Context, g models.Group) error {
		group = g
		res, err := s.resolver.Resolve(ctx, tokens)
		if err != nil {
			return fmt.Errorf("resolve owners: %w", err)
		}
		resolved, usernames = res.Users, res.Usernames()
		if len(res.NotFound) > 0 {
			s.log.Debug("add owners: unknown users ignored",
				zap.String("group_id", g.ID.Hex()),
				zap.Strings("not_found", res.NotFound))
		}
		return s.tx.Run(ctx, func(ctx context.Context) error {
			for _, u := range resolved {
				if err := s.memberships.AddOwner(ctx, g.ID, u.ID); err != nil {
					return fmt.Errorf("add owner %s: %w", u.Username, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if notify && s.notifier != nil {
		for _, u := range resolved {
			if err := s.notifier.NotifyOwnerAdded(ctx, group, u); err != nil {
				s.log.Warn("owner notification failed",
					zap.String("group_id", group.ID.Hex()),
					zap.String("user", u.Username),
					zap.Error(err))
			}
		}
	}

	s.audit.OwnersAdded(ctx, group.ID, usernames, notify)
	return usernames, nil
}

// RemoveOwner clears the owner flag of userID. The membership itself is
// kept, and removing a non-owner is not an error.
func (s *Service) RemoveOwner(ctx context.Context, id, userID primitive.ObjectID) error {
	err := s.mutate(ctx, id, []grouppolicy.Change{grouppolicy.ChangeOwnership}, func(ctx context.Context, g models.Group) error {
		if err := s.memberships.RemoveOwner(ctx, g.ID, userID); err != nil {
			return fmt.Errorf("remove owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit.OwnerRemoved(ctx, id, userID)
	return nil
}
