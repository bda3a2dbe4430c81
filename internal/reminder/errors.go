package reminder

import (
	"errors"

	"growell/internal/schedule"
)

var (
	// ErrMalformedTime: the time string is not "H:MM AM|PM".
	ErrMalformedTime = schedule.ErrMalformedTime
	// ErrValidation: a required field is missing or invalid.
	ErrValidation = errors.New("validation error")
	// ErrScheduling: the notification gateway rejected an arm or cancel request.
	ErrScheduling = errors.New("scheduling error")
	// ErrNotFound: no reminder with the given id.
	ErrNotFound = errors.New("reminder not found")
)
