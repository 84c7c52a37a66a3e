package literal

import "github.com/google/uuid"

// Name is an unforgeable identity value: two Names are equal only if they
// are the same object. Names are never interned (each New call produces a
// fresh identity) but, like atoms and arities, they are immune to
// stop-and-copy moves between stores: identity, not storage location, is
// what matters.
//
// The identity is a random UUID rather than a shared monotonic counter
// (grounded in github.com/google/uuid, used directly by the example pack
// for generating object identities, e.g. sentra's internal/database and
// edirooss-zmux-server). This avoids a globally shared mutex on a counter
// while keeping the "globally unique id" property spec.md §3 requires; the
// printed form never reveals the id (spec.md §4.9: "Name: always
// {NewName}"), so the choice is invisible to golden-output tests.
type Name struct {
	id uuid.UUID
}

// New allocates a fresh, globally unique Name.
func New() *Name {
	return &Name{id: uuid.New()}
}

// ID returns the name's unforgeable identity, usable for a stable total
// order among names (not for any semantic meaning).
func (n *Name) ID() uuid.UUID { return n.id }

func (n *Name) String() string { return "{NewName}" }
