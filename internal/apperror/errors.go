// Package apperror holds the error kinds shared by the forecast flow and the HTTP layer.
// Components wrap one of these with fmt.Errorf("...: %w", ErrX) and callers match with errors.Is.
package apperror

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNotAvailable      = errors.New("model artifact not available")
	ErrInvalidModel      = errors.New("invalid model artifact")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrExhausted         = errors.New("forecaster cannot supply enough future steps")
	ErrPredictionFailed  = errors.New("prediction failed")
	ErrValidation        = errors.New("validation error")
	ErrPersistenceFailed = errors.New("persistence failed")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// Kind returns the sentinel err wraps, or nil when it wraps none of them.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrNotAvailable,
		ErrInvalidModel,
		ErrInvalidArgument,
		ErrExhausted,
		ErrPredictionFailed,
		ErrValidation,
		ErrPersistenceFailed,
		ErrUnauthorized,
		ErrForbidden,
		ErrConflict,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
