package services

import "errors"

// ValidationError marks input that was rejected before any external call was
// made; its text is safe to show to the caller.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

var (
	// ErrItemNotFound: the requested item id does not resolve. Always
	// checked before ownership.
	ErrItemNotFound = errors.New("collection item not found")
	// ErrNotOwner: the record exists but belongs to someone else.
	ErrNotOwner = errors.New("not authorized to modify this collection item")
)
