package attendance

import "errors"

// Validation errors. These are detected before any storage or network call.
var (
	ErrInvalidKind    = errors.New("type must be checkin or checkout")
	ErrSelfieRequired = errors.New("please take a selfie before submitting")
	ErrMoodRequired   = errors.New("please select your current mood before submitting")
	ErrUserRequired   = errors.New("user id required")
)

// Stale-state errors. The caller's view of today's records is out of date.
var (
	ErrCheckInLocked   = errors.New("already checked in today")
	ErrCheckOutLocked  = errors.New("check-out is not available yet")
	ErrAlreadyRecorded = errors.New("attendance already recorded for today")
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("attendance record not found")

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrSelfieRequired) ||
		errors.Is(err, ErrMoodRequired) ||
		errors.Is(err, ErrUserRequired)
}

// IsStale reports whether err means the gate rejected the action.
func IsStale(err error) bool {
	return errors.Is(err, ErrCheckInLocked) ||
		errors.Is(err, ErrCheckOutLocked) ||
		errors.Is(err, ErrAlreadyRecorded)
}
