package groupadmin

import (
	"context"
	"fmt"

	"github.com/dalemusser/grouphub/internal/app/policy/grouppolicy"
	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BulkOutcome reports a bulk assignment.
type BulkOutcome struct {
	AddedCount int    `json:"added_count"`
	Message    string `json:"message"`
	// UsersNotAdded holds the tokens that matched no user, verbatim and
	// in input order.
	UsersNotAdded []string `json:"users_not_added"`
	// UsersFailed holds usernames that resolved but could not be assigned.
	UsersFailed []string `json:"users_failed,omitempty"`
}

// BulkMessage is the summary line for n added users.
func BulkMessage(n int) string {
	if n == 1 {
		return "1 user has been added to the group."
	}
	return fmt.Sprintf("%d users have been added to the group.", n)
}

// BulkAssign resolves tokens and, for each user, adds the membership and
// applies the group's primary group, title and trust level floor. Each
// user is one unit of work; one user failing does not undo another.
func (s *Service) BulkAssign(ctx context.Context, id primitive.ObjectID, tokens []string) (BulkOutcome, error) {
	var out BulkOutcome
	err := s.mutate(ctx, id, []grouppolicy.Change{grouppolicy.ChangeMembership}, func(ctx context.Context, g models.Group) error {
		res, err := s.resolver.Resolve(ctx, tokens)
		if err != nil {
			return fmt.Errorf("resolve users: %w", err)
		}

		errs := make([]error, len(res.Users))
		var eg errgroup.Group
		eg.SetLimit(s.concurrency)
		for i, u := range res.Users {
			eg.Go(func() error {
				errs[i] = s.assignOne(ctx, g, u)
				return nil
			})
		}
		_ = eg.Wait()

		out = BulkOutcome{UsersNotAdded: []string{}}
		if res.NotFound != nil {
			out.UsersNotAdded = res.NotFound
		}
		for i, err := range errs {
			if err != nil {
				s.log.Error("bulk assign: user failed",
					zap.String("group_id", g.ID.Hex()),
					zap.String("user", res.Users[i].Username),
					zap.Error(err))
				out.UsersFailed = append(out.UsersFailed, res.Users[i].Username)
				continue
			}
			out.AddedCount++
		}
		out.Message = BulkMessage(out.AddedCount)

		s.audit.MembersBulkAdded(ctx, g.ID, out.AddedCount, len(out.UsersNotAdded), len(out.UsersFailed))
		s.log.Info("bulk assign finished",
			zap.String("group_id", g.ID.Hex()),
			zap.Int("tokens", len(tokens)),
			zap.Int("added", out.AddedCount),
			zap.Int("not_found", len(out.UsersNotAdded)),
			zap.Int("failed", len(out.UsersFailed)))
		return nil
	})
	if err != nil {
		return BulkOutcome{}, err
	}
	return out, nil
}

// CheckBulkAssign runs the same existence and lifecycle checks as
// BulkAssign without doing any work, so callers can reject a request
// before queueing it.
func (s *Service) CheckBulkAssign(ctx context.Context, id primitive.ObjectID) error {
	return s.mutate(ctx, id, []grouppolicy.Change{grouppolicy.ChangeMembership}, func(context.Context, models.Group) error {
		return nil
	})
}

func (s *Service) assignOne(ctx context.Context, g models.Group, u models.User) error {
	return s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.memberships.AddMember(ctx, g.ID, u.ID); err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		return s.users.ApplyGroupDefaults(ctx, u.ID, userstore.GroupDefaults{
			GroupID:         g.ID,
			Title:           g.Title,
			GrantTrustLevel: g.GrantTrustLevel,
		})
	})
}
