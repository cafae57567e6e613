package cache

import "errors"

var (
	// ErrDuplicateID indicates an insert with an id already in the collection.
	ErrDuplicateID = errors.New("cache: duplicate document id")

	// ErrDocNotFound indicates an update against an id not in the collection.
	ErrDocNotFound = errors.New("cache: document not found")
)
