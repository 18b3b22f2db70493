package sentinel

import "errors"

// Sentinel dependency errors. Adapters (ledger, evidence store, credential
// index) should return these (optionally wrapped) so the engine can translate
// them into domain errors exactly once.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnauthorizedActor = errors.New("unauthorized actor")
	ErrUnavailable       = errors.New("unavailable")
	ErrExists            = errors.New("already exists")
)
