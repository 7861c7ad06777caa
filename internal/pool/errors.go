package pool

import "errors"

// Sentinel errors for inspection with errors.Is. Returned errors wrap these
// with the offending kind key.
var (
	// ErrUnknownKind is returned when a kind was never registered by the catalog.
	ErrUnknownKind = errors.New("unknown kind")

	// ErrDuplicateKind is returned by Initialize when the catalog yields the
	// same kind key twice.
	ErrDuplicateKind = errors.New("duplicate kind")

	// ErrKindMismatch is returned by Release when the instance belongs to a
	// different kind than the stack it is pushed onto.
	ErrKindMismatch = errors.New("kind mismatch")

	ErrEmptyKind          = errors.New("empty kind key")
	ErrNilTemplate        = errors.New("nil template")
	ErrAlreadyInitialized = errors.New("pool already initialized")
	ErrNotInitialized     = errors.New("pool not initialized")

	// ErrInstantiate wraps a template factory failure.
	ErrInstantiate = errors.New("instantiate template")

	// ErrStillActive is returned by Release for an instance that was not
	// deactivated first.
	ErrStillActive = errors.New("instance still active")

	// ErrAlreadyReleased is returned by Release for an instance that is
	// already on its stack.
	ErrAlreadyReleased = errors.New("instance already released")

	// ErrForeignInstance is returned by Despawn for a nil handle or one that
	// this manager never created.
	ErrForeignInstance = errors.New("instance not owned by this pool")

	// ErrClosed is returned by Spawn and Initialize after Close.
	ErrClosed = errors.New("pool closed")
)
