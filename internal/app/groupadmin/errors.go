package groupadmin

import (
	"errors"
	"strings"

	"github.com/dalemusser/grouphub/internal/app/policy/grouppolicy"
)

var (
	// ErrGroupNotFound is returned when the referenced group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupImmutable is returned for mutations of automatic groups.
	ErrGroupImmutable = grouppolicy.ErrGroupImmutable
)

// ValidationError lists every problem found with a create or update request.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) add(msg string) {
	e.Errors = append(e.Errors, msg)
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}
