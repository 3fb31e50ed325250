package reconcile

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cellar-valuation/internal/store"
)

var (
	ErrNotFound          = eris.New("reconcile: not found")
	ErrNoCriticScores    = eris.New("reconcile: no critic scores found")
	ErrLowConfidence     = eris.New("reconcile: match confidence too low")
	ErrInvalidTransition = eris.New("reconcile: invalid status transition")
	ErrValidation        = eris.New("reconcile: validation failed")
	ErrConflict          = eris.New("reconcile: already exists")
)

// ValidationError describes a rejected input field. It matches ErrValidation
// with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("reconcile: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// mapStoreErr translates store sentinels into reconcile sentinels.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	default:
		return err
	}
}
