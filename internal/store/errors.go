package store

import "errors"

// Sentinel errors returned by Store methods, split by failure class so
// callers can branch without parsing error strings.
var (
	ErrConnection    = errors.New("store: could not connect to the database")
	ErrFind          = errors.New("store: query failed")
	ErrInsert        = errors.New("store: insert failed")
	ErrUpdate        = errors.New("store: update failed")
	ErrCollect       = errors.New("store: failed to collect query results")
	ErrResultIsEmpty = errors.New("store: query returned no result")
)
