// internal/app/features/groups/estimate.go
package groups

import (
	"net/http"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userCountResponse struct {
	UserCount int64 `json:"user_count"`
}

// ServeAutomaticMembershipCount handles
// GET /groups/automatic-membership-count?id=&automatic_membership_email_domains=.
//
// The group id is a query parameter here, so a missing or malformed id
// names no group and answers 404 like an unknown one.
func (h *Handler) ServeAutomaticMembershipCount(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(query.Get(r, "id"))
	if err != nil {
		apierrors.Render(w, http.StatusNotFound, "Group not found")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "estimate automatic membership")
	defer cancel()

	n, err := h.Admin.EstimateAutomaticMembership(ctx, id, query.Get(r, "automatic_membership_email_domains"))
	if err != nil {
		h.fail(w, r, "estimate automatic membership", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, userCountResponse{UserCount: n})
}
