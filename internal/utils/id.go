package utils

import (
	"github.com/oklog/ulid/v2"
)

// GenerateStableID returns a lexicographically sortable, globally
// unique id, used wherever a run or entity needs a stable correlation
// handle.
func GenerateStableID() string {
	return ulid.Make().String()
}
