package cache

import "errors"

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")

	// ErrBackendUnavailable is returned by Open when the shared store cannot be reached.
	ErrBackendUnavailable = errors.New("cache backend unavailable")

	// ErrInvalidEntry indicates a stored payload could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)
