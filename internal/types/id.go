// README: Opaque identifiers shared by rides, riders, and drivers.
package types

import "github.com/google/uuid"

type ID string

// NewID returns a random UUID-backed identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return id == ""
}
