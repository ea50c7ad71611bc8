// Package opid generates operation ids that correlate the check and
// report records of one call.
package opid

import "github.com/google/uuid"

// New returns a random version 4 UUID in its 36 character form.
func New() string {
	return uuid.NewString()
}
