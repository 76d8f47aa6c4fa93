package models

import "errors"

// Domain errors returned by the store layer. Handlers map these to HTTP
// status codes; anything else is a 500.
var (
	ErrAliasNotFound    = errors.New("alias not found")
	ErrServerNotFound   = errors.New("server not found")
	ErrVariableNotFound = errors.New("variable not found")
	ErrSecretNotFound   = errors.New("secret not found")
	ErrCIDNotFound      = errors.New("CID not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrExportNotFound   = errors.New("export not found")

	ErrDuplicateAlias    = errors.New("alias already exists")
	ErrDuplicateServer   = errors.New("server already exists")
	ErrDuplicateVariable = errors.New("variable already exists")
	ErrDuplicateSecret   = errors.New("secret already exists")
	ErrDuplicateUser     = errors.New("user already exists")

	// ErrCIDConflict means a CID row exists with different bytes. This is
	// a consistency failure: the caller must treat it as fatal, never
	// patch it silently.
	ErrCIDConflict = errors.New("CID row exists with different content")

	// ErrReservedName means an alias or server name collides with a
	// built-in route.
	ErrReservedName = errors.New("name conflicts with existing route")
)
