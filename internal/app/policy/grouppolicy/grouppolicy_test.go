package grouppolicy_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/grouphub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/grouphub/internal/domain/models"
)

func TestCheckMutation(t *testing.T) {
	regular := models.Group{Name: "designers"}
	automatic := models.Group{Name: "staff", Automatic: true}

	tests := []struct {
		name    string
		group   models.Group
		changes []grouppolicy.Change
		wantErr bool
	}{
		{"regular membership", regular, []grouppolicy.Change{grouppolicy.ChangeMembership}, false},
		{"regular destroy", regular, []grouppolicy.Change{grouppolicy.ChangeDestroy}, false},
		{"regular all", regular, []grouppolicy.Change{
			grouppolicy.ChangeRename, grouppolicy.ChangeCustomFields, grouppolicy.ChangeOwnership,
		}, false},
		{"automatic settings", automatic, []grouppolicy.Change{grouppolicy.ChangeSettings}, false},
		{"automatic no changes", automatic, nil, false},
		{"automatic membership", automatic, []grouppolicy.Change{grouppolicy.ChangeMembership}, true},
		{"automatic ownership", automatic, []grouppolicy.Change{grouppolicy.ChangeOwnership}, true},
		{"automatic custom fields", automatic, []grouppolicy.Change{grouppolicy.ChangeCustomFields}, true},
		{"automatic rename", automatic, []grouppolicy.Change{grouppolicy.ChangeRename}, true},
		{"automatic destroy", automatic, []grouppolicy.Change{grouppolicy.ChangeDestroy}, true},
		{"automatic mixed", automatic, []grouppolicy.Change{grouppolicy.ChangeSettings, grouppolicy.ChangeCustomFields}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := grouppolicy.CheckMutation(tt.group, tt.changes...)
			if tt.wantErr && !errors.Is(err, grouppolicy.ErrGroupImmutable) {
				t.Errorf("expected ErrGroupImmutable, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected nil, got %v", err)
			}
		})
	}
}

func TestCheckMutable(t *testing.T) {
	if err := grouppolicy.CheckMutable(models.Group{}); err != nil {
		t.Errorf("regular group: got %v", err)
	}
	if err := grouppolicy.CheckMutable(models.Group{Automatic: true}); !errors.Is(err, grouppolicy.ErrGroupImmutable) {
		t.Errorf("automatic group: got %v", err)
	}
}

func TestChange_String(t *testing.T) {
	if got := grouppolicy.ChangeOwnership.String(); got != "ownership" {
		t.Errorf("got %q", got)
	}
	if got := grouppolicy.Change(99).String(); got != "unknown" {
		t.Errorf("got %q", got)
	}
}
