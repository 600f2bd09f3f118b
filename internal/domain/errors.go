package domain

import "errors"

var (
	// ErrCatalogLoad is returned when the catalog source is missing,
	// unreadable, or lacks a required column.
	ErrCatalogLoad = errors.New("failed to load product catalog")

	// ErrWorkListLoad is returned when the upstream work list is missing,
	// unreadable, or lacks the iteration column.
	ErrWorkListLoad = errors.New("failed to load work list")

	// ErrInvalidIteration is returned when an iteration number is outside
	// the range known to the selection ledger.
	ErrInvalidIteration = errors.New("iteration number out of range")

	// ErrLedgerPersist is returned when the ledger could not be written to
	// its canonical location.
	ErrLedgerPersist = errors.New("failed to persist selection ledger")

	// ErrBackup is returned when the pre-save ledger backup failed.
	ErrBackup = errors.New("failed to back up selection ledger")

	// ErrCachePersist is returned when the term cache could not be written.
	ErrCachePersist = errors.New("failed to persist term cache")

	// ErrTermService is returned when the remote term-generation call fails.
	ErrTermService = errors.New("term generation request failed")

	// ErrInvalidRequest is returned when request parameters are invalid.
	ErrInvalidRequest = errors.New("invalid request parameters")
)
