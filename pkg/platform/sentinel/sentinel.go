package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and collaborator adapters
// return these (optionally wrapped) so services can translate them into domain
// errors or pipeline outcomes.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrExpired: session or window entry is past its lifetime
//   - ErrCapacity: a bounded store is full
//   - ErrCorrupt: persisted state could not be decoded
//   - ErrUnavailable: collaborator or backend temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrCapacity    = errors.New("capacity exceeded")
	ErrCorrupt     = errors.New("corrupt state")
	ErrUnavailable = errors.New("unavailable")
)
