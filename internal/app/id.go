package app

import (
	"strings"

	"github.com/google/uuid"
)

// newID produces a random identifier for history entries and approval requests.
// Isolated here so the ID strategy can evolve independently.
func newID() string {
	return uuid.NewString()
}

// stableID derives the same identifier from the same parts, so repeated
// automatic requests for one change collapse into a single record.
func stableID(parts ...string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(parts, "/"))).String()
}
