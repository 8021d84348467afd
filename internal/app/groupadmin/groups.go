package groupadmin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/grouphub/internal/app/policy/grouppolicy"
	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	"github.com/dalemusser/grouphub/internal/app/system/domainmatch"
	"github.com/dalemusser/grouphub/internal/app/system/fieldallow"
	"github.com/dalemusser/grouphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxNameLength is the longest accepted group name, in characters.
const MaxNameLength = 100

// CreateGroupInput carries the attributes of a new group. Usernames and
// OwnerUsernames hold roster tokens (usernames or emails); owners are
// also members.
type CreateGroupInput struct {
	Name                            string
	Title                           string
	PrimaryGroup                    bool
	GrantTrustLevel                 *int
	MembersVisibilityLevel          int
	AllowMembershipRequests         bool
	MembershipRequestTemplate       string
	AutomaticMembershipEmailDomains string
	CustomFields                    map[string]string
	Usernames                       []string
	OwnerUsernames                  []string
}

// GroupUpdate is a partial update. Nil fields are left unchanged.
// CustomFields, when non-nil, is merged into the stored fields after
// allowlist filtering.
type GroupUpdate struct {
	Name                            *string
	Title                           *string
	PrimaryGroup                    *bool
	GrantTrustLevel                 *int
	ClearGrantTrustLevel            bool
	MembersVisibilityLevel          *int
	AllowMembershipRequests         *bool
	MembershipRequestTemplate       *string
	AutomaticMembershipEmailDomains *string
	CustomFields                    map[string]string
}

func (u GroupUpdate) changes() []grouppolicy.Change {
	out := []grouppolicy.Change{grouppolicy.ChangeSettings}
	if u.Name != nil {
		out = append(out, grouppolicy.ChangeRename)
	}
	if u.CustomFields != nil {
		out = append(out, grouppolicy.ChangeCustomFields)
	}
	return out
}

// fieldsChanged names the attributes an update touches, for the audit trail.
func (u GroupUpdate) fieldsChanged() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(u.Name != nil, "name")
	add(u.Title != nil, "title")
	add(u.PrimaryGroup != nil, "primary_group")
	add(u.GrantTrustLevel != nil || u.ClearGrantTrustLevel, "grant_trust_level")
	add(u.MembersVisibilityLevel != nil, "members_visibility_level")
	add(u.AllowMembershipRequests != nil, "allow_membership_requests")
	add(u.MembershipRequestTemplate != nil, "membership_request_template")
	add(u.AutomaticMembershipEmailDomains != nil, "automatic_membership_email_domains")
	add(u.CustomFields != nil, "custom_fields")
	return out
}

// GetGroup returns a group by id.
func (s *Service) GetGroup(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	return s.load(ctx, id)
}

// CreateGroup validates and inserts a group, then adds the listed members
// and owners. Unresolved roster tokens are ignored.
func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (models.Group, error) {
	g := models.Group{
		Name:                            normalize.Name(in.Name),
		Title:                           strings.TrimSpace(in.Title),
		PrimaryGroup:                    in.PrimaryGroup,
		GrantTrustLevel:                 in.GrantTrustLevel,
		MembersVisibilityLevel:          in.MembersVisibilityLevel,
		AllowMembershipRequests:         in.AllowMembershipRequests,
		MembershipRequestTemplate:       htmlsanitize.Sanitize(in.MembershipRequestTemplate),
		AutomaticMembershipEmailDomains: strings.TrimSpace(in.AutomaticMembershipEmailDomains),
		CustomFields:                    s.filterFields(in.CustomFields),
	}
	if err := validateGroup(g); err != nil {
		return models.Group{}, err
	}

	members, err := s.resolver.Resolve(ctx, in.Usernames)
	if err != nil {
		return models.Group{}, fmt.Errorf("resolve members: %w", err)
	}
	owners, err := s.resolver.Resolve(ctx, in.OwnerUsernames)
	if err != nil {
		return models.Group{}, fmt.Errorf("resolve owners: %w", err)
	}
	if n := len(members.NotFound) + len(owners.NotFound); n > 0 {
		s.log.Debug("create group: ignoring unknown users",
			zap.String("group", g.Name),
			zap.Strings("members_not_found", members.NotFound),
			zap.Strings("owners_not_found", owners.NotFound))
	}

	var created models.Group
	err = s.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.groups.Create(ctx, g)
		if err != nil {
			return err
		}
		for _, u := range members.Users {
			if err := s.memberships.AddMember(ctx, created.ID, u.ID); err != nil {
				return fmt.Errorf("add member %s: %w", u.Username, err)
			}
		}
		for _, u := range owners.Users {
			if err := s.memberships.AddOwner(ctx, created.ID, u.ID); err != nil {
				return fmt.Errorf("add owner %s: %w", u.Username, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, groupstore.ErrDuplicateGroupName) {
			return models.Group{}, &ValidationError{Errors: []string{"Name has already been taken"}}
		}
		return models.Group{}, fmt.Errorf("create group: %w", err)
	}

	s.audit.GroupCreated(ctx, created.ID, created.Name)
	s.log.Info("group created",
		zap.String("group_id", created.ID.Hex()),
		zap.String("group", created.Name),
		zap.Int("members", len(members.Users)),
		zap.Int("owners", len(owners.Users)))
	return created, nil
}

// UpdateGroup applies a partial update. Settings may change on automatic
// groups; renames and custom-field writes may not.
func (s *Service) UpdateGroup(ctx context.Context, id primitive.ObjectID, upd GroupUpdate) (models.Group, error) {
	var updated models.Group
	err := s.mutate(ctx, id, upd.changes(), func(ctx context.Context, g models.Group) error {
		applyUpdate(&g, upd)
		if upd.CustomFields != nil {
			merged := make(map[string]string, len(g.CustomFields))
			for k, v := range g.CustomFields {
				merged[k] = v
			}
			for k, v := range s.filterFields(upd.CustomFields) {
				merged[k] = v
			}
			g.CustomFields = merged
		}
		if err := validateGroup(g); err != nil {
			return err
		}
		if err := s.groups.Update(ctx, g); err != nil {
			if errors.Is(err, groupstore.ErrDuplicateGroupName) {
				return &ValidationError{Errors: []string{"Name has already been taken"}}
			}
			return fmt.Errorf("update group: %w", err)
		}
		updated = g
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}

	s.audit.GroupUpdated(ctx, updated.ID, upd.fieldsChanged())
	return updated, nil
}

func applyUpdate(g *models.Group, u GroupUpdate) {
	if u.Name != nil {
		g.Name = normalize.Name(*u.Name)
	}
	if u.Title != nil {
		g.Title = strings.TrimSpace(*u.Title)
	}
	if u.PrimaryGroup != nil {
		g.PrimaryGroup = *u.PrimaryGroup
	}
	if u.ClearGrantTrustLevel {
		g.GrantTrustLevel = nil
	} else if u.GrantTrustLevel != nil {
		tl := *u.GrantTrustLevel
		g.GrantTrustLevel = &tl
	}
	if u.MembersVisibilityLevel != nil {
		g.MembersVisibilityLevel = *u.MembersVisibilityLevel
	}
	if u.AllowMembershipRequests != nil {
		g.AllowMembershipRequests = *u.AllowMembershipRequests
	}
	if u.MembershipRequestTemplate != nil {
		g.MembershipRequestTemplate = htmlsanitize.Sanitize(*u.MembershipRequestTemplate)
	}
	if u.AutomaticMembershipEmailDomains != nil {
		g.AutomaticMembershipEmailDomains = strings.TrimSpace(*u.AutomaticMembershipEmailDomains)
	}
}

// filterFields passes requested custom fields through the allowlist as it
// stands at call time. No registry means nothing is writable.
func (s *Service) filterFields(requested map[string]string) map[string]string {
	var allowed map[string]struct{}
	if s.fields != nil {
		allowed = s.fields.Allowed()
	}
	return fieldallow.Filter(requested, allowed)
}

func validateGroup(g models.Group) error {
	ve := &ValidationError{}
	switch n := utf8.RuneCountInString(g.Name); {
	case n == 0:
		ve.add("Name can't be blank")
	case n > MaxNameLength:
		ve.add(fmt.Sprintf("Name is too long (maximum is %d characters)", MaxNameLength))
	}
	if !models.ValidVisibility(g.MembersVisibilityLevel) {
		ve.add("Members visibility level is not included in the list")
	}
	if g.GrantTrustLevel != nil && !models.ValidTrustLevel(*g.GrantTrustLevel) {
		ve.add(fmt.Sprintf("Grant trust level must be between %d and %d", models.MinTrustLevel, models.MaxTrustLevel))
	}
	for _, bad := range domainmatch.Invalid(g.AutomaticMembershipEmailDomains) {
		ve.add(fmt.Sprintf("%q is not a valid domain", bad))
	}
	return ve.orNil()
}

// DestroyGroup deletes a group with its memberships and clears it as
// primary group on every user. Automatic groups cannot be destroyed.
func (s *Service) DestroyGroup(ctx context.Context, id primitive.ObjectID) error {
	var removed int64
	var name string
	err := s.mutate(ctx, id, []grouppolicy.Change{grouppolicy.ChangeDestroy}, func(ctx context.Context, g models.Group) error {
		name = g.Name
		return s.tx.Run(ctx, func(ctx context.Context) error {
			var err error
			if removed, err = s.memberships.DeleteByGroup(ctx, g.ID); err != nil {
				return fmt.Errorf("delete memberships: %w", err)
			}
			if _, err := s.users.ClearPrimaryGroup(ctx, g.ID); err != nil {
				return fmt.Errorf("clear primary group: %w", err)
			}
			n, err := s.groups.Delete(ctx, g.ID)
			if err != nil {
				return fmt.Errorf("delete group: %w", err)
			}
			if n == 0 {
				return ErrGroupNotFound
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.audit.GroupDeleted(ctx, id, name, removed)
	s.log.Info("group destroyed",
		zap.String("group_id", id.Hex()),
		zap.String("group", name),
		zap.Int64("memberships_removed", removed))
	return nil
}
