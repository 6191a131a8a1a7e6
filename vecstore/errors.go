package vecstore

import "errors"

// ErrCapacityExhausted is returned by EmplaceBack when an append would
// pass the vector's configured logical capacity.
var ErrCapacityExhausted = errors.New("vecstore: capacity exhausted")

// ErrOutOfBounds is returned by At for an index outside [0, Size()).
var ErrOutOfBounds = errors.New("vecstore: index out of bounds")

// ErrEmpty is returned by PopBack on an empty vector.
var ErrEmpty = errors.New("vecstore: pop from empty vector")
