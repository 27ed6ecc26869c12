// Package precision models the numeric precision of a scalar value independently of
// any synthesis backend.
//
// A Precision is created backend-neutral (usually by the manifest loader) and is later
// bound, exactly once, to a backend Definition that knows how to render it. The binding
// is the only mutation a precision ever sees:
//   - binding again with a Definition of the same family is a no-op
//   - binding with a different family fails with ErrAlreadyBound
//   - rendering an unbound precision fails with ErrNotConverted
//
// This package imports nothing internal.
package precision
