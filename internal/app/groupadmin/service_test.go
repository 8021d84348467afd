package groupadmin_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/dalemusser/grouphub/internal/app/groupadmin"
	"github.com/dalemusser/grouphub/internal/app/system/fieldallow"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/grouphub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newService(t *testing.T, allowed ...string) (*groupadmin.Service, *testutil.Mem, *fieldallow.Registry) {
	t.Helper()
	mem := testutil.NewMem()
	reg := fieldallow.NewRegistry()
	reg.Register(allowed...)
	svc := groupadmin.New(groupadmin.Deps{
		Groups:      mem,
		Memberships: mem,
		Users:       mem,
		Notifier:    mem,
		Fields:      reg,
		Tx:          mem,
		Log:         zap.NewNop(),
	}, groupadmin.Options{BulkConcurrency: 4})
	return svc, mem, reg
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

/* ---------------------------- bulk assignment ---------------------------- */

func TestBulkAssign_ResolvesMixedTokens(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	bob := mem.AddUser("Bob", "bob@x.org", 0)
	carol := mem.AddUser("carol", "carol@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "designers"})

	tokens := []string{"ALICE", "ghost", "bob@X.ORG", "Carol", "Nobody@Example.com"}
	out, err := svc.BulkAssign(ctx, g.ID, tokens)
	if err != nil {
		t.Fatalf("BulkAssign failed: %v", err)
	}

	if out.AddedCount != 3 {
		t.Errorf("AddedCount: got %d, want 3", out.AddedCount)
	}
	if out.Message != "3 users have been added to the group." {
		t.Errorf("Message: got %q", out.Message)
	}
	wantNotAdded := []string{"ghost", "Nobody@Example.com"}
	if !reflect.DeepEqual(out.UsersNotAdded, wantNotAdded) {
		t.Errorf("UsersNotAdded: got %v, want %v", out.UsersNotAdded, wantNotAdded)
	}
	for _, u := range []models.User{alice, bob, carol} {
		if _, ok := mem.Membership(g.ID, u.ID); !ok {
			t.Errorf("expected %s to be a member", u.Username)
		}
	}
}

func TestBulkAssign_TrustLevelFloor(t *testing.T) {
	tests := []struct {
		name  string
		prior int
		grant *int
		want  int
	}{
		{"higher prior kept", 4, intPtr(3), 4},
		{"lower prior raised", 2, intPtr(3), 3},
		{"equal unchanged", 3, intPtr(3), 3},
		{"no grant", 1, nil, 1},
		{"grant zero", 0, intPtr(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mem, _ := newService(t)
			u := mem.AddUser("user", "user@example.com", tt.prior)
			g := mem.AddGroup(models.Group{Name: "g", Title: "Member", GrantTrustLevel: tt.grant})

			if _, err := svc.BulkAssign(context.Background(), g.ID, []string{"user"}); err != nil {
				t.Fatalf("BulkAssign failed: %v", err)
			}
			if got := mem.User(u.ID).TrustLevel; got != tt.want {
				t.Errorf("trust level: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBulkAssign_AppliesPrimaryGroupAndTitle(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	u := mem.AddUser("alice", "alice@example.com", 0)
	first := mem.AddGroup(models.Group{Name: "first", Title: "Designer"})
	second := mem.AddGroup(models.Group{Name: "second", Title: ""})

	if _, err := svc.BulkAssign(ctx, first.ID, []string{"alice"}); err != nil {
		t.Fatalf("BulkAssign failed: %v", err)
	}
	got := mem.User(u.ID)
	if got.PrimaryGroupID == nil || *got.PrimaryGroupID != first.ID {
		t.Errorf("primary group: got %v, want %v", got.PrimaryGroupID, first.ID)
	}
	if got.Title == nil || *got.Title != "Designer" {
		t.Errorf("title: got %v, want Designer", got.Title)
	}

	// A later assignment overwrites both, even with an empty title.
	if _, err := svc.BulkAssign(ctx, second.ID, []string{"alice"}); err != nil {
		t.Fatalf("BulkAssign failed: %v", err)
	}
	got = mem.User(u.ID)
	if got.PrimaryGroupID == nil || *got.PrimaryGroupID != second.ID {
		t.Errorf("primary group: got %v, want %v", got.PrimaryGroupID, second.ID)
	}
	if got.Title == nil || *got.Title != "" {
		t.Errorf("title: got %v, want empty", got.Title)
	}
}

func TestBulkAssign_DuplicateTokensCountOnce(t *testing.T) {
	svc, mem, _ := newService(t)
	mem.AddUser("alice", "alice@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "g"})

	out, err := svc.BulkAssign(context.Background(), g.ID, []string{"alice", "ALICE", "alice@example.com", "  "})
	if err != nil {
		t.Fatalf("BulkAssign failed: %v", err)
	}
	if out.AddedCount != 1 {
		t.Errorf("AddedCount: got %d, want 1", out.AddedCount)
	}
	if out.Message != "1 user has been added to the group." {
		t.Errorf("Message: got %q", out.Message)
	}
	if out.UsersNotAdded == nil || len(out.UsersNotAdded) != 0 {
		t.Errorf("UsersNotAdded: got %#v, want empty non-nil", out.UsersNotAdded)
	}
	if n := mem.MembershipCount(g.ID); n != 1 {
		t.Errorf("memberships: got %d, want 1", n)
	}
}

func TestBulkAssign_PartialFailure(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	bob := mem.AddUser("bob", "bob@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "g", GrantTrustLevel: intPtr(2)})
	mem.FailApplyFor(bob.ID, errors.New("write conflict"))

	out, err := svc.BulkAssign(ctx, g.ID, []string{"alice", "bob", "nobody"})
	if err != nil {
		t.Fatalf("BulkAssign failed: %v", err)
	}
	if out.AddedCount != 1 {
		t.Errorf("AddedCount: got %d, want 1", out.AddedCount)
	}
	if !reflect.DeepEqual(out.UsersFailed, []string{"bob"}) {
		t.Errorf("UsersFailed: got %v", out.UsersFailed)
	}
	if !reflect.DeepEqual(out.UsersNotAdded, []string{"nobody"}) {
		t.Errorf("UsersNotAdded: got %v", out.UsersNotAdded)
	}
	if got := mem.User(alice.ID).TrustLevel; got != 2 {
		t.Errorf("alice trust: got %d, want 2", got)
	}
	if got := mem.User(bob.ID).TrustLevel; got != 0 {
		t.Errorf("bob trust: got %d, want 0", got)
	}
}

func TestBulkAssign_ManyUsersKeepsNotFoundOrder(t *testing.T) {
	svc, mem, _ := newService(t)
	g := mem.AddGroup(models.Group{Name: "big"})

	var tokens, wantNotFound []string
	for i := 0; i < 60; i++ {
		name := fmt.Sprintf("user%02d", i)
		mem.AddUser(name, name+"@example.com", 0)
		tokens = append(tokens, strings.ToUpper(name))
		if i%7 == 0 {
			missing := fmt.Sprintf("Missing%02d", i)
			tokens = append(tokens, missing)
			wantNotFound = append(wantNotFound, missing)
		}
	}

	out, err := svc.BulkAssign(context.Background(), g.ID, tokens)
	if err != nil {
		t.Fatalf("BulkAssign failed: %v", err)
	}
	if out.AddedCount != 60 {
		t.Errorf("AddedCount: got %d, want 60", out.AddedCount)
	}
	if !reflect.DeepEqual(out.UsersNotAdded, wantNotFound) {
		t.Errorf("UsersNotAdded: got %v, want %v", out.UsersNotAdded, wantNotFound)
	}
	if n := mem.MembershipCount(g.ID); n != 60 {
		t.Errorf("memberships: got %d, want 60", n)
	}
}

func TestBulkAssign_AutomaticGroupRejected(t *testing.T) {
	svc, mem, _ := newService(t)
	mem.AddUser("alice", "alice@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "staff", Automatic: true})

	_, err := svc.BulkAssign(context.Background(), g.ID, []string{"alice"})
	if !errors.Is(err, groupadmin.ErrGroupImmutable) {
		t.Fatalf("expected ErrGroupImmutable, got %v", err)
	}
	if mem.Writes() != 0 {
		t.Errorf("expected no membership writes, got %d", mem.Writes())
	}
	if err := svc.CheckBulkAssign(context.Background(), g.ID); !errors.Is(err, groupadmin.ErrGroupImmutable) {
		t.Errorf("CheckBulkAssign: expected ErrGroupImmutable, got %v", err)
	}
}

func TestBulkAssign_GroupNotFound(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.BulkAssign(context.Background(), primitive.NewObjectID(), []string{"alice"})
	if !errors.Is(err, groupadmin.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
	if err := svc.CheckBulkAssign(context.Background(), primitive.NewObjectID()); !errors.Is(err, groupadmin.ErrGroupNotFound) {
		t.Errorf("CheckBulkAssign: expected ErrGroupNotFound, got %v", err)
	}
}

func TestBulkMessage(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 users have been added to the group."},
		{1, "1 user has been added to the group."},
		{2, "2 users have been added to the group."},
		{250, "250 users have been added to the group."},
	}
	for _, tt := range tests {
		if got := groupadmin.BulkMessage(tt.n); got != tt.want {
			t.Errorf("BulkMessage(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

/* -------------------------------- owners -------------------------------- */

func TestAddOwners(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	bob := mem.AddUser("bob", "bob@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "g"})

	got, err := svc.AddOwners(ctx, g.ID, []string{"Alice", "BOB@example.com", "ghost"}, false)
	if err != nil {
		t.Fatalf("AddOwners failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Errorf("usernames: got %v", got)
	}
	for _, u := range []models.User{alice, bob} {
		m, ok := mem.Membership(g.ID, u.ID)
		if !ok || !m.Owner {
			t.Errorf("expected %s to be an owner", u.Username)
		}
	}
	if n := len(mem.Notices()); n != 0 {
		t.Errorf("notify=false sent %d notifications", n)
	}
}

func TestAddOwners_UsernamesFollowResolution(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	mem.AddUser("alice", "alice@example.com", 0)
	mem.AddUser("bob", "bob@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "g"})

	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{"first match order, duplicates once", []string{"BOB", "alice", "bob@example.com", "Bob"}, []string{"bob", "alice"}},
		{"nothing resolvable", []string{"ghost", "nobody@example.com"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.AddOwners(ctx, g.ID, tt.tokens, false)
			if err != nil {
				t.Fatalf("AddOwners failed: %v", err)
			}
			if got == nil || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("usernames: got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestAddOwners_Idempotent(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "g"})
	mem.Seed(g.ID, alice.ID, false)

	for i := 0; i < 2; i++ {
		if _, err := svc.AddOwners(ctx, g.ID, []string{"alice"}, false); err != nil {
			t.Fatalf("AddOwners #%d failed: %v", i+1, err)
		}
	}
	if n := mem.MembershipCount(g.ID); n != 1 {
		t.Errorf("memberships: got %d, want 1", n)
	}
	if m, _ := mem.Membership(g.ID, alice.ID); !m.Owner {
		t.Error("expected alice to be an owner")
	}
}

func TestAddOwners_NotifyOncePerUser(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	bob := mem.AddUser("bob", "bob@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "g"})
	mem.Seed(g.ID, bob.ID, true)

	if _, err := svc.AddOwners(ctx, g.ID, []string{"alice", "ALICE", "bob", "ghost"}, true); err != nil {
		t.Fatalf("AddOwners failed: %v", err)
	}
	notices := mem.Notices()
	if len(notices) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notices))
	}
	seen := map[primitive.ObjectID]int{}
	for _, n := range notices {
		if n.GroupID != g.ID {
			t.Errorf("notification for wrong group %v", n.GroupID)
		}
		seen[n.UserID]++
	}
	if seen[alice.ID] != 1 || seen[bob.ID] != 1 {
		t.Errorf("notifications per user: %v", seen)
	}
}

func TestAddOwners_NotifyFailureIsNotFatal(t *testing.T) {
	svc, mem, _ := newService(t)
	mem.AddUser("alice", "alice@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "g"})
	mem.FailNotify(errors.New("queue down"))

	got, err := svc.AddOwners(context.Background(), g.ID, []string{"alice"}, true)
	if err != nil {
		t.Fatalf("AddOwners failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("usernames: got %v", got)
	}
}

func TestOwnership_AutomaticGroupRejected(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "staff", Automatic: true})
	mem.Seed(g.ID, alice.ID, true)
	before := mem.Writes()

	if _, err := svc.AddOwners(ctx, g.ID, []string{"alice"}, true); !errors.Is(err, groupadmin.ErrGroupImmutable) {
		t.Errorf("AddOwners: expected ErrGroupImmutable, got %v", err)
	}
	if err := svc.RemoveOwner(ctx, g.ID, alice.ID); !errors.Is(err, groupadmin.ErrGroupImmutable) {
		t.Errorf("RemoveOwner: expected ErrGroupImmutable, got %v", err)
	}
	if mem.Writes() != before {
		t.Errorf("expected no membership writes, got %d", mem.Writes()-before)
	}
	if m, _ := mem.Membership(g.ID, alice.ID); !m.Owner {
		t.Error("owner flag changed on automatic group")
	}
	if len(mem.Notices()) != 0 {
		t.Error("notification sent for rejected operation")
	}
}

func TestOwnership_GroupNotFound(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	missing := primitive.NewObjectID()

	if _, err := svc.AddOwners(ctx, missing, []string{"alice"}, false); !errors.Is(err, groupadmin.ErrGroupNotFound) {
		t.Errorf("AddOwners: expected ErrGroupNotFound, got %v", err)
	}
	if err := svc.RemoveOwner(ctx, missing, primitive.NewObjectID()); !errors.Is(err, groupadmin.ErrGroupNotFound) {
		t.Errorf("RemoveOwner: expected ErrGroupNotFound, got %v", err)
	}
	if _, err := svc.ListOwners(ctx, missing); !errors.Is(err, groupadmin.ErrGroupNotFound) {
		t.Errorf("ListOwners: expected ErrGroupNotFound, got %v", err)
	}
}

func TestRemoveOwner(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "g"})
	mem.Seed(g.ID, alice.ID, true)

	if err := svc.RemoveOwner(ctx, g.ID, alice.ID); err != nil {
		t.Fatalf("RemoveOwner failed: %v", err)
	}
	m, ok := mem.Membership(g.ID, alice.ID)
	if !ok {
		t.Fatal("expected membership to remain")
	}
	if m.Owner {
		t.Error("expected owner flag cleared")
	}

	// Absent owner is not an error.
	if err := svc.RemoveOwner(ctx, g.ID, alice.ID); err != nil {
		t.Errorf("second RemoveOwner: %v", err)
	}
	if err := svc.RemoveOwner(ctx, g.ID, primitive.NewObjectID()); err != nil {
		t.Errorf("RemoveOwner for stranger: %v", err)
	}
}

func TestListOwners(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	carol := mem.AddUser("carol", "carol@example.com", 0)
	alice := mem.AddUser("alice", "alice@example.com", 0)
	bob := mem.AddUser("bob", "bob@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "g"})
	mem.Seed(g.ID, carol.ID, true)
	mem.Seed(g.ID, alice.ID, true)
	mem.Seed(g.ID, bob.ID, false)

	owners, err := svc.ListOwners(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListOwners failed: %v", err)
	}
	var names []string
	for _, u := range owners {
		names = append(names, u.Username)
	}
	if !reflect.DeepEqual(names, []string{"alice", "carol"}) {
		t.Errorf("owners: got %v", names)
	}
}

/* ------------------------------ estimation ------------------------------ */

func TestEstimateAutomaticMembership(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	mem.AddUser("a", "a@somedomain.org", 0)
	mem.AddUser("b", "b@somedomain.com", 0)
	mem.AddUser("c", "c@notsomedomain.com", 0)
	g := mem.AddGroup(models.Group{Name: "g"})

	tests := []struct {
		pattern string
		want    int64
	}{
		{"somedomain.org|somedomain.com", 2},
		{"@somedomain.org|@somedomain.com", 0},
		{"SOMEDOMAIN.ORG", 1},
		{"somedomain.org|somedomain.org", 1},
		{"somedomain.org|@bad|", 1},
		{"", 0},
		{"|||", 0},
		{"domain.com", 0},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := svc.EstimateAutomaticMembership(ctx, g.ID, tt.pattern)
			if err != nil {
				t.Fatalf("Estimate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestEstimateAutomaticMembership_GroupNotFound(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.EstimateAutomaticMembership(context.Background(), primitive.NewObjectID(), "a.org")
	if !errors.Is(err, groupadmin.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestEstimateAutomaticMembership_AutomaticGroupReadable(t *testing.T) {
	svc, mem, _ := newService(t)
	mem.AddUser("a", "a@a.org", 0)
	g := mem.AddGroup(models.Group{Name: "staff", Automatic: true})

	got, err := svc.EstimateAutomaticMembership(context.Background(), g.ID, "a.org")
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

/* ------------------------------- destroy -------------------------------- */

func TestDestroyGroup(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "doomed", Title: "t"})
	if _, err := svc.BulkAssign(ctx, g.ID, []string{"alice"}); err != nil {
		t.Fatalf("BulkAssign failed: %v", err)
	}

	if err := svc.DestroyGroup(ctx, g.ID); err != nil {
		t.Fatalf("DestroyGroup failed: %v", err)
	}
	if _, err := svc.GetGroup(ctx, g.ID); !errors.Is(err, groupadmin.ErrGroupNotFound) {
		t.Errorf("GetGroup after destroy: expected ErrGroupNotFound, got %v", err)
	}
	if n := mem.MembershipCount(g.ID); n != 0 {
		t.Errorf("memberships after destroy: got %d", n)
	}
	if u := mem.User(alice.ID); u.PrimaryGroupID != nil {
		t.Errorf("primary group not cleared: %v", u.PrimaryGroupID)
	}
}

func TestDestroyGroup_NotFound(t *testing.T) {
	svc, _, _ := newService(t)
	err := svc.DestroyGroup(context.Background(), primitive.NewObjectID())
	if !errors.Is(err, groupadmin.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestDestroyGroup_AutomaticRejected(t *testing.T) {
	svc, mem, _ := newService(t)
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	g := mem.AddGroup(models.Group{Name: "staff", Automatic: true, Title: "Staff"})
	mem.Seed(g.ID, alice.ID, false)

	if err := svc.DestroyGroup(ctx, g.ID); !errors.Is(err, groupadmin.ErrGroupImmutable) {
		t.Fatalf("expected ErrGroupImmutable, got %v", err)
	}
	got, err := svc.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if !reflect.DeepEqual(got, g) {
		t.Errorf("group changed: got %+v, want %+v", got, g)
	}
	if n := mem.MembershipCount(g.ID); n != 1 {
		t.Errorf("memberships: got %d, want 1", n)
	}
}

/* ------------------------------- create --------------------------------- */

func TestCreateGroup(t *testing.T) {
	svc, mem, _ := newService(t, "color")
	ctx := context.Background()

	alice := mem.AddUser("alice", "alice@example.com", 0)
	bob := mem.AddUser("bob", "bob@example.com", 0)

	g, err := svc.CreateGroup(ctx, groupadmin.CreateGroupInput{
		Name:                            "  Designers ",
		Title:                           "Designer",
		GrantTrustLevel:                 intPtr(2),
		MembersVisibilityLevel:          models.VisibilityMembers,
		AllowMembershipRequests:         true,
		MembershipRequestTemplate:       `<p>Why?</p><script>alert(1)</script>`,
		AutomaticMembershipEmailDomains: "example.com|example.org",
		CustomFields:                    map[string]string{"color": "blue", "secret": "x"},
		Usernames:                       []string{"ALICE", "ghost"},
		OwnerUsernames:                  []string{"bob@example.com"},
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if g.Name != "Designers" {
		t.Errorf("Name: got %q", g.Name)
	}
	if g.Automatic {
		t.Error("created group must not be automatic")
	}
	if !reflect.DeepEqual(g.CustomFields, map[string]string{"color": "blue"}) {
		t.Errorf("CustomFields: got %v", g.CustomFields)
	}
	if strings.Contains(g.MembershipRequestTemplate, "<script") {
		t.Errorf("template not sanitized: %q", g.MembershipRequestTemplate)
	}
	if !strings.Contains(g.MembershipRequestTemplate, "<p>Why?</p>") {
		t.Errorf("template lost safe markup: %q", g.MembershipRequestTemplate)
	}

	if m, ok := mem.Membership(g.ID, alice.ID); !ok || m.Owner {
		t.Errorf("alice: got %+v, ok=%v; want plain member", m, ok)
	}
	if m, ok := mem.Membership(g.ID, bob.ID); !ok || !m.Owner {
		t.Errorf("bob: got %+v, ok=%v; want owner", m, ok)
	}
}

func TestCreateGroup_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   groupadmin.CreateGroupInput
		want string
	}{
		{"blank name", groupadmin.CreateGroupInput{Name: "   "}, "Name can't be blank"},
		{"long name", groupadmin.CreateGroupInput{Name: strings.Repeat("x", groupadmin.MaxNameLength+1)}, "Name is too long (maximum is 100 characters)"},
		{"bad visibility", groupadmin.CreateGroupInput{Name: "g", MembersVisibilityLevel: 9}, "Members visibility level is not included in the list"},
		{"bad trust", groupadmin.CreateGroupInput{Name: "g", GrantTrustLevel: intPtr(5)}, "Grant trust level must be between 0 and 4"},
		{"bad domain", groupadmin.CreateGroupInput{Name: "g", AutomaticMembershipEmailDomains: "ok.org|@bad.org"}, `"@bad.org" is not a valid domain`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newService(t)
			_, err := svc.CreateGroup(context.Background(), tt.in)
			var ve *groupadmin.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			found := false
			for _, e := range ve.Errors {
				if e == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v missing %q", ve.Errors, tt.want)
			}
		})
	}
}

func TestCreateGroup_NameAtLimitAccepted(t *testing.T) {
	svc, _, _ := newService(t)
	name := strings.Repeat("é", groupadmin.MaxNameLength)
	if _, err := svc.CreateGroup(context.Background(), groupadmin.CreateGroupInput{Name: name}); err != nil {
		t.Errorf("expected %d-character name to be accepted, got %v", groupadmin.MaxNameLength, err)
	}
}

func TestCreateGroup_DuplicateName(t *testing.T) {
	svc, mem, _ := newService(t)
	mem.AddGroup(models.Group{Name: "Designers"})

	_, err := svc.CreateGroup(context.Background(), groupadmin.CreateGroupInput{Name: "DESIGNERS"})
	var ve *groupadmin.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !reflect.DeepEqual(ve.Errors, []string{"Name has already been taken"}) {
		t.Errorf("errors: got %v", ve.Errors)
	}
}

func TestCreateGroup_NoAllowlistDropsAllFields(t *testing.T) {
	svc, _, _ := newService(t)
	g, err := svc.CreateGroup(context.Background(), groupadmin.CreateGroupInput{
		Name:         "g",
		CustomFields: map[string]string{"color": "blue"},
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if len(g.CustomFields) != 0 {
		t.Errorf("expected no custom fields, got %v", g.CustomFields)
	}
}

/* ------------------------------- update --------------------------------- */

func TestUpdateGroup_Settings(t *testing.T) {
	svc, mem, _ := newService(t)
	g := mem.AddGroup(models.Group{Name: "g", GrantTrustLevel: intPtr(1)})

	vis := models.VisibilityStaff
	allow := true
	got, err := svc.UpdateGroup(context.Background(), g.ID, groupadmin.GroupUpdate{
		Title:                   strPtr("Helper"),
		MembersVisibilityLevel:  &vis,
		AllowMembershipRequests: &allow,
		ClearGrantTrustLevel:    true,
	})
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}
	if got.Title != "Helper" || got.MembersVisibilityLevel != vis || !got.AllowMembershipRequests {
		t.Errorf("settings not applied: %+v", got)
	}
	if got.GrantTrustLevel != nil {
		t.Errorf("expected grant trust level cleared, got %d", *got.GrantTrustLevel)
	}
	stored, _ := mem.Group(g.ID)
	if stored.Title != "Helper" {
		t.Errorf("stored title: got %q", stored.Title)
	}
}

func TestUpdateGroup_CustomFieldsMergedAndFiltered(t *testing.T) {
	svc, mem, reg := newService(t, "color")
	g := mem.AddGroup(models.Group{Name: "g", CustomFields: map[string]string{"color": "red", "legacy": "kept"}})

	got, err := svc.UpdateGroup(context.Background(), g.ID, groupadmin.GroupUpdate{
		CustomFields: map[string]string{"color": "blue", "size": "L"},
	})
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}
	want := map[string]string{"color": "blue", "legacy": "kept"}
	if !reflect.DeepEqual(got.CustomFields, want) {
		t.Errorf("CustomFields: got %v, want %v", got.CustomFields, want)
	}

	// Registrations made at runtime apply to the next call.
	reg.Register("size")
	got, err = svc.UpdateGroup(context.Background(), g.ID, groupadmin.GroupUpdate{
		CustomFields: map[string]string{"size": "L"},
	})
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}
	if got.CustomFields["size"] != "L" {
		t.Errorf("expected size to be written after registration, got %v", got.CustomFields)
	}

	reg.Reset()
	got, err = svc.UpdateGroup(context.Background(), g.ID, groupadmin.GroupUpdate{
		CustomFields: map[string]string{"color": "green"},
	})
	if err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}
	if got.CustomFields["color"] != "blue" {
		t.Errorf("write accepted after reset: %v", got.CustomFields)
	}
}

func TestUpdateGroup_AutomaticGroup(t *testing.T) {
	tests := []struct {
		name    string
		upd     groupadmin.GroupUpdate
		wantErr bool
	}{
		{"settings allowed", groupadmin.GroupUpdate{Title: strPtr("Staff member")}, false},
		{"custom fields rejected", groupadmin.GroupUpdate{CustomFields: map[string]string{"color": "x"}}, true},
		{"rename rejected", groupadmin.GroupUpdate{Name: strPtr("crew")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mem, _ := newService(t, "color")
			g := mem.AddGroup(models.Group{Name: "staff", Automatic: true})

			_, err := svc.UpdateGroup(context.Background(), g.ID, tt.upd)
			if tt.wantErr {
				if !errors.Is(err, groupadmin.ErrGroupImmutable) {
					t.Fatalf("expected ErrGroupImmutable, got %v", err)
				}
				stored, _ := mem.Group(g.ID)
				if !reflect.DeepEqual(stored, g) {
					t.Errorf("group changed: %+v", stored)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateGroup failed: %v", err)
			}
		})
	}
}

func TestUpdateGroup_Invalid(t *testing.T) {
	svc, mem, _ := newService(t)
	g := mem.AddGroup(models.Group{Name: "g"})
	mem.AddGroup(models.Group{Name: "taken"})

	var ve *groupadmin.ValidationError
	_, err := svc.UpdateGroup(context.Background(), g.ID, groupadmin.GroupUpdate{GrantTrustLevel: intPtr(-1)})
	if !errors.As(err, &ve) {
		t.Errorf("bad trust: expected *ValidationError, got %v", err)
	}
	_, err = svc.UpdateGroup(context.Background(), g.ID, groupadmin.GroupUpdate{Name: strPtr("Taken")})
	if !errors.As(err, &ve) || ve.Errors[0] != "Name has already been taken" {
		t.Errorf("duplicate: expected name taken, got %v", err)
	}
	_, err = svc.UpdateGroup(context.Background(), primitive.NewObjectID(), groupadmin.GroupUpdate{})
	if !errors.Is(err, groupadmin.ErrGroupNotFound) {
		t.Errorf("missing: expected ErrGroupNotFound, got %v", err)
	}
}
