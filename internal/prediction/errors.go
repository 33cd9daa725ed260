package prediction

import "errors"

var (
	// ErrUnknownMatch is returned when a score targets a fixture that is not loaded
	ErrUnknownMatch = errors.New("unknown match")

	// ErrInvalidSide is returned for a score side other than homeScore/awayScore
	ErrInvalidSide = errors.New("invalid score side")

	// ErrRoundOutOfRange is returned when a round is outside 1..rounds
	ErrRoundOutOfRange = errors.New("round out of range")

	// ErrSessionNotFound is returned by the registry for unknown session ids
	ErrSessionNotFound = errors.New("session not found")
)
