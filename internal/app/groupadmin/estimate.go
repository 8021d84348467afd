package groupadmin

import (
	"context"
	"fmt"

	"github.com/dalemusser/grouphub/internal/app/system/domainmatch"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EstimateAutomaticMembership counts users whose email domain equals one
// of the pattern's domains. Malformed entries match nobody; a pattern with
// no well-formed entry yields 0 without touching storage.
func (s *Service) EstimateAutomaticMembership(ctx context.Context, id primitive.ObjectID, pattern string) (int64, error) {
	if _, err := s.load(ctx, id); err != nil {
		return 0, err
	}
	m := domainmatch.Parse(pattern)
	if m.Empty() {
		return 0, nil
	}
	n, err := s.users.CountByEmailDomains(ctx, m.Domains())
	if err != nil {
		return 0, fmt.Errorf("count users by domain: %w", err)
	}
	return n, nil
}
