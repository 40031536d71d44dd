package wiki

import "errors"

// Sentinel errors for page store operations
var (
	ErrPageNameRequired    = errors.New("page name cannot be blank")
	ErrDestinationRequired = errors.New("destination page name cannot be blank")
	ErrPageExists          = errors.New("a page already exists at the destination")
	ErrConflict            = errors.New("page was modified by another writer")
	ErrNotFound            = errors.New("not found")
)
