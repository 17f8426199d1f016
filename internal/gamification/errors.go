package gamification

import "errors"

var (
	// ErrInvalidInput is returned before any write happens.
	ErrInvalidInput = errors.New("gamification: invalid input")
	// ErrBackdated is returned for a check-in older than the last counted
	// day when the engine is configured to reject those.
	ErrBackdated = errors.New("gamification: check-in is older than the last counted day")
)
