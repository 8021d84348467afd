// internal/app/features/groups/groupcrud.go
package groups

import (
	"bytes"
	"encoding/json"
	"net/http"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/groupadmin"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
)

// createGroupRequest is the body of POST /groups. usernames and
// owner_usernames are comma-separated usernames or emails.
type createGroupRequest struct {
	Name                            string            `json:"name"`
	Title                           string            `json:"title"`
	PrimaryGroup                    bool              `json:"primary_group"`
	GrantTrustLevel                 *int              `json:"grant_trust_level"`
	MembersVisibilityLevel          int               `json:"members_visibility_level"`
	AllowMembershipRequests         bool              `json:"allow_membership_requests"`
	MembershipRequestTemplate       string            `json:"membership_request_template"`
	AutomaticMembershipEmailDomains string            `json:"automatic_membership_email_domains"`
	CustomFields                    map[string]string `json:"custom_fields"`
	Usernames                       string            `json:"usernames"`
	OwnerUsernames                  string            `json:"owner_usernames"`
}

// updateGroupRequest is the body of PATCH /groups/{id}. Absent fields are
// left unchanged; "grant_trust_level": null clears the trust level grant.
type updateGroupRequest struct {
	Name                            *string           `json:"name"`
	Title                           *string           `json:"title"`
	PrimaryGroup                    *bool             `json:"primary_group"`
	GrantTrustLevel                 json.RawMessage   `json:"grant_trust_level"`
	MembersVisibilityLevel          *int              `json:"members_visibility_level"`
	AllowMembershipRequests         *bool             `json:"allow_membership_requests"`
	MembershipRequestTemplate       *string           `json:"membership_request_template"`
	AutomaticMembershipEmailDomains *string           `json:"automatic_membership_email_domains"`
	CustomFields                    map[string]string `json:"custom_fields"`
}

func (req updateGroupRequest) toUpdate() (groupadmin.GroupUpdate, bool) {
	upd := groupadmin.GroupUpdate{
		Name:                            req.Name,
		Title:                           req.Title,
		PrimaryGroup:                    req.PrimaryGroup,
		MembersVisibilityLevel:          req.MembersVisibilityLevel,
		AllowMembershipRequests:         req.AllowMembershipRequests,
		MembershipRequestTemplate:       req.MembershipRequestTemplate,
		AutomaticMembershipEmailDomains: req.AutomaticMembershipEmailDomains,
		CustomFields:                    req.CustomFields,
	}
	switch raw := bytes.TrimSpace(req.GrantTrustLevel); {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")):
		upd.ClearGrantTrustLevel = true
	default:
		var tl int
		if err := json.Unmarshal(raw, &tl); err != nil {
			return groupadmin.GroupUpdate{}, false
		}
		upd.GrantTrustLevel = &tl
	}
	return upd, true
}

// HandleCreateGroup handles POST /groups.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create group")
	defer cancel()

	g, err := h.Admin.CreateGroup(ctx, groupadmin.CreateGroupInput{
		Name:                            req.Name,
		Title:                           req.Title,
		PrimaryGroup:                    req.PrimaryGroup,
		GrantTrustLevel:                 req.GrantTrustLevel,
		MembersVisibilityLevel:          req.MembersVisibilityLevel,
		AllowMembershipRequests:         req.AllowMembershipRequests,
		MembershipRequestTemplate:       req.MembershipRequestTemplate,
		AutomaticMembershipEmailDomains: req.AutomaticMembershipEmailDomains,
		CustomFields:                    req.CustomFields,
		Usernames:                       normalize.Tokens(req.Usernames),
		OwnerUsernames:                  normalize.Tokens(req.OwnerUsernames),
	})
	if err != nil {
		h.fail(w, r, "create group", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusCreated, g)
}

// ServeGroup handles GET /groups/{id}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get group")
	defer cancel()

	g, err := h.Admin.GetGroup(ctx, id)
	if err != nil {
		h.fail(w, r, "get group", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, g)
}

// HandleUpdateGroup handles PATCH /groups/{id}.
func (h *Handler) HandleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	var req updateGroupRequest
	if !decode(w, r, &req) {
		return
	}
	upd, ok := req.toUpdate()
	if !ok {
		apierrors.Render(w, http.StatusBadRequest, "Grant trust level must be a number or null")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update group")
	defer cancel()

	g, err := h.Admin.UpdateGroup(ctx, id, upd)
	if err != nil {
		h.fail(w, r, "update group", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, g)
}

// HandleDestroyGroup handles DELETE /groups/{id}.
func (h *Handler) HandleDestroyGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "destroy group")
	defer cancel()

	if err := h.Admin.DestroyGroup(ctx, id); err != nil {
		h.fail(w, r, "destroy group", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, okResponse)
}
