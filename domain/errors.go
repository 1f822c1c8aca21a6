package domain

import "errors"

var (
	ErrDeckNotFound         = errors.New("deck-not-found")
	ErrDuplicateSlug        = errors.New("duplicate-slug")
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
)
