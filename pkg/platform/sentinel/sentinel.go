package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Ledger stores and collaborator
// adapters return these (optionally wrapped) so services can translate them
// into coded domain errors.
//
//   - ErrNotFound: row does not exist in the store
//   - ErrConflict: a row with the same key already exists
//   - ErrUnavailable: store or collaborator temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
