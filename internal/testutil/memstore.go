package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Notice records one owner-added notification sent through Mem.
type Notice struct {
	GroupID  primitive.ObjectID
	UserID   primitive.ObjectID
	Username string
}

type memKey struct {
	group, user primitive.ObjectID
}

type memMembership struct {
	models.GroupMembership
	seq int
}

// Mem is an in-memory stand-in for the group, membership and user stores,
// the notifier and the transactor. It is safe for concurrent use. Run
// does not roll back on error.
type Mem struct {
	mu          sync.Mutex
	groups      map[primitive.ObjectID]models.Group
	memberships map[memKey]memMembership
	users       map[primitive.ObjectID]models.User
	notices     []Notice
	failApply   map[primitive.ObjectID]error
	failNotify  error
	seq         int
	writes      int
}

// NewMem returns an empty Mem.
func NewMem() *Mem {
	return &Mem{
		groups:      map[primitive.ObjectID]models.Group{},
		memberships: map[memKey]memMembership{},
		users:       map[primitive.ObjectID]models.User{},
		failApply:   map[primitive.ObjectID]error{},
	}
}

/* ---- seeding and inspection ---- */

// AddUser seeds a user with the given trust level.
func (m *Mem) AddUser(username, email string, trust int) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	u := models.User{
		ID:          primitive.NewObjectID(),
		Username:    username,
		UsernameCI:  normalize.Username(username),
		Email:       normalize.Email(email),
		EmailDomain: normalize.EmailDomain(email),
		TrustLevel:  trust,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.users[u.ID] = u
	return u
}

// AddGroup seeds a group as given, assigning an ID if unset.
func (m *Mem) AddGroup(g models.Group) models.Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	if g.CustomFields == nil {
		g.CustomFields = map[string]string{}
	}
	m.groups[g.ID] = g
	return g
}

// Seed adds a membership directly.
func (m *Mem) Seed(groupID, userID primitive.ObjectID, owner bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.memberships[memKey{groupID, userID}] = memMembership{
		GroupMembership: models.GroupMembership{
			ID: primitive.NewObjectID(), GroupID: groupID, UserID: userID, Owner: owner,
		},
		seq: m.seq,
	}
}

// User returns the stored user.
func (m *Mem) User(id primitive.ObjectID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

// Group returns the stored group and whether it exists.
func (m *Mem) Group(id primitive.ObjectID) (models.Group, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	return g, ok
}

// Membership returns the (group, user) membership and whether it exists.
func (m *Mem) Membership(groupID, userID primitive.ObjectID) (models.GroupMembership, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.memberships[memKey{groupID, userID}]
	return mm.GroupMembership, ok
}

// MembershipCount returns the number of memberships of a group.
func (m *Mem) MembershipCount(groupID primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.memberships {
		if k.group == groupID {
			n++
		}
	}
	return n
}

// Notices returns the notifications sent so far.
func (m *Mem) Notices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notice(nil), m.notices...)
}

// Writes returns the number of membership writes performed.
func (m *Mem) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// FailApplyFor makes ApplyGroupDefaults fail for userID.
func (m *Mem) FailApplyFor(userID primitive.ObjectID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failApply[userID] = err
}

// FailNotify makes NotifyOwnerAdded fail with err.
func (m *Mem) FailNotify(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNotify = err
}

/* ---- groups ---- */

func (m *Mem) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	return g, nil
}

func (m *Mem) nameTaken(nameCI string, except primitive.ObjectID) bool {
	for id, g := range m.groups {
		if id != except && g.NameCI == nameCI {
			return true
		}
	}
	return false
}

func (m *Mem) Create(_ context.Context, g models.Group) (models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.NameCI = text.Fold(g.Name)
	if m.nameTaken(g.NameCI, primitive.NilObjectID) {
		return models.Group{}, groupstore.ErrDuplicateGroupName
	}
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if g.CustomFields == nil {
		g.CustomFields = map[string]string{}
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	m.groups[g.ID] = g
	return g, nil
}

func (m *Mem) Update(_ context.Context, g models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.groups[g.ID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	g.NameCI = text.Fold(g.Name)
	if m.nameTaken(g.NameCI, g.ID) {
		return groupstore.ErrDuplicateGroupName
	}
	g.Automatic = old.Automatic
	g.CreatedAt = old.CreatedAt
	g.UpdatedAt = time.Now().UTC()
	m.groups[g.ID] = g
	return nil
}

func (m *Mem) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return 0, nil
	}
	delete(m.groups, id)
	return 1, nil
}

/* ---- memberships ---- */

func (m *Mem) upsert(groupID, userID primitive.ObjectID, owner bool) {
	m.writes++
	k := memKey{groupID, userID}
	if mm, ok := m.memberships[k]; ok {
		if owner {
			mm.Owner = true
		}
		mm.UpdatedAt = time.Now().UTC()
		m.memberships[k] = mm
		return
	}
	m.seq++
	now := time.Now().UTC()
	m.memberships[k] = memMembership{
		GroupMembership: models.GroupMembership{
			ID: primitive.NewObjectID(), GroupID: groupID, UserID: userID,
			Owner: owner, CreatedAt: now, UpdatedAt: now,
		},
		seq: m.seq,
	}
}

func (m *Mem) AddMember(_ context.Context, groupID, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsert(groupID, userID, false)
	return nil
}

func (m *Mem) AddOwner(_ context.Context, groupID, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsert(groupID, userID, true)
	return nil
}

func (m *Mem) RemoveOwner(_ context.Context, groupID, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{groupID, userID}
	if mm, ok := m.memberships[k]; ok && mm.Owner {
		m.writes++
		mm.Owner = false
		m.memberships[k] = mm
	}
	return nil
}

func (m *Mem) ListByGroup(_ context.Context, groupID primitive.ObjectID, ownersOnly bool) ([]models.GroupMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []memMembership
	for k, mm := range m.memberships {
		if k.group != groupID || (ownersOnly && !mm.Owner) {
			continue
		}
		rows = append(rows, mm)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]models.GroupMembership, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.GroupMembership)
	}
	return out, nil
}

func (m *Mem) DeleteByGroup(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.memberships {
		if k.group == groupID {
			delete(m.memberships, k)
			n++
		}
	}
	if n > 0 {
		m.writes++
	}
	return n, nil
}

/* ---- users ---- */

func (m *Mem) FindByUsernames(_ context.Context, usernamesCI []string) ([]models.User, error) {
	return m.findBy(usernamesCI, func(u models.User) string { return u.UsernameCI }), nil
}

func (m *Mem) FindByEmails(_ context.Context, emails []string) ([]models.User, error) {
	return m.findBy(emails, func(u models.User) string { return normalize.Email(u.Email) }), nil
}

func (m *Mem) findBy(keys []string, key func(models.User) string) []models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := []models.User{}
	for _, u := range m.users {
		if k := key(u); k != "" && want[k] {
			out = append(out, u)
		}
	}
	return out
}

func (m *Mem) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UsernameCI < out[j].UsernameCI })
	return out, nil
}

func (m *Mem) ApplyGroupDefaults(_ context.Context, userID primitive.ObjectID, d userstore.GroupDefaults) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failApply[userID]; err != nil {
		return err
	}
	u, ok := m.users[userID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	gid := d.GroupID
	title := d.Title
	u.PrimaryGroupID = &gid
	u.Title = &title
	if d.GrantTrustLevel != nil && *d.GrantTrustLevel > u.TrustLevel {
		u.TrustLevel = *d.GrantTrustLevel
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[userID] = u
	return nil
}

func (m *Mem) ClearPrimaryGroup(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, u := range m.users {
		if u.PrimaryGroupID != nil && *u.PrimaryGroupID == groupID {
			u.PrimaryGroupID = nil
			m.users[id] = u
			n++
		}
	}
	return n, nil
}

func (m *Mem) CountByEmailDomains(_ context.Context, domains []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(domains))
	for _, d := range domains {
		want[d] = true
	}
	var n int64
	for _, u := range m.users {
		if want[u.EmailDomain] {
			n++
		}
	}
	return n, nil
}

/* ---- notifier and transactor ---- */

func (m *Mem) NotifyOwnerAdded(_ context.Context, g models.Group, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNotify != nil {
		return m.failNotify
	}
	m.notices = append(m.notices, Notice{GroupID: g.ID, UserID: u.ID, Username: u.Username})
	return nil
}

func (m *Mem) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
