package model

import "errors"

// Error kinds shared by the rating engine and its adapters.
var (
	ErrInvalidObservation      = errors.New("invalid observation")
	ErrUnknownCompetitor       = errors.New("unknown competitor")
	ErrInsufficientBracketSize = errors.New("insufficient bracket size")
	ErrConvergenceNotReached   = errors.New("convergence not reached")
	ErrDuplicatePool           = errors.New("pool already ingested")
	ErrBracketNotSet           = errors.New("bracket not set")
	ErrEventNotFound           = errors.New("event not found")
)
