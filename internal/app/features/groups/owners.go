// internal/app/features/groups/owners.go
package groups

import (
	"net/http"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type ownersResponse struct {
	Owners []models.User `json:"owners"`
}

type addOwnersRequest struct {
	Usernames   string `json:"usernames"`
	NotifyUsers bool   `json:"notify_users"`
}

type addOwnersResponse struct {
	Usernames []string `json:"usernames"`
}

// ServeOwners handles GET /groups/{id}/owners.
func (h *Handler) ServeOwners(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list owners")
	defer cancel()

	owners, err := h.Admin.ListOwners(ctx, id)
	if err != nil {
		h.fail(w, r, "list owners", err)
		return
	}
	if owners == nil {
		owners = []models.User{}
	}
	apierrors.WriteJSON(w, http.StatusOK, ownersResponse{Owners: owners})
}

// HandleAddOwners handles PUT /groups/{id}/owners.
func (h *Handler) HandleAddOwners(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	var req addOwnersRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "add owners")
	defer cancel()

	usernames, err := h.Admin.AddOwners(ctx, id, normalize.Tokens(req.Usernames), req.NotifyUsers)
	if err != nil {
		h.fail(w, r, "add owners", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, addOwnersResponse{Usernames: usernames})
}

// HandleRemoveOwner handles DELETE /groups/{id}/owners?user_id=.
func (h *Handler) HandleRemoveOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	userID, ok := parseID(w, query.Get(r, "user_id"), "user")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove owner")
	defer cancel()

	if err := h.Admin.RemoveOwner(ctx, id, userID); err != nil {
		h.fail(w, r, "remove owner", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, okResponse)
}
