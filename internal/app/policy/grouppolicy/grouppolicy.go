// internal/app/policy/grouppolicy/grouppolicy.go
package grouppolicy

import (
	"errors"

	"github.com/dalemusser/grouphub/internal/domain/models"
)

// ErrGroupImmutable is returned for any change that system-managed
// (automatic) groups do not allow.
var ErrGroupImmutable = errors.New("cannot modify an automatic group")

// Change classifies a mutation so one table decides what automatic
// groups permit.
type Change int

const (
	// ChangeSettings covers display and request settings (title,
	// visibility, membership requests, trust grant, domains).
	ChangeSettings Change = iota
	ChangeRename
	ChangeCustomFields
	ChangeMembership
	ChangeOwnership
	ChangeDestroy
)

func (c Change) String() string {
	switch c {
	case ChangeSettings:
		return "settings"
	case ChangeRename:
		return "rename"
	case ChangeCustomFields:
		return "custom_fields"
	case ChangeMembership:
		return "membership"
	case ChangeOwnership:
		return "ownership"
	case ChangeDestroy:
		return "destroy"
	}
	return "unknown"
}

// allowedOnAutomatic lists the changes an automatic group accepts.
var allowedOnAutomatic = map[Change]bool{
	ChangeSettings: true,
}

// CheckMutation returns ErrGroupImmutable when g is automatic and any of
// changes is not allowed on automatic groups.
func CheckMutation(g models.Group, changes ...Change) error {
	err := CheckMutable(g)
	if err == nil {
		return nil
	}
	for _, c := range changes {
		if !allowedOnAutomatic[c] {
			return err
		}
	}
	return nil
}

// CheckMutable returns ErrGroupImmutable when g is automatic, whatever the
// change.
func CheckMutable(g models.Group) error {
	if g.Automatic {
		return ErrGroupImmutable
	}
	return nil
}
