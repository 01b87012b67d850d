// Package assetid issues and validates the med_* identifiers that key every
// stored asset. Downstream consumers key exclusively off these ids, so a
// malformed id from the metadata store is treated as a failed upload.
package assetid

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

const prefix = "med_"

// entropy is shared by all callers. Monotonic readers are not safe for
// concurrent use on their own; the lock matters because ids are minted on
// concurrent request handlers.
var entropy = &ulid.LockedMonotonicReader{
	MonotonicReader: ulid.Monotonic(rand.Reader, 0),
}

// New mints a med_* id: the prefix plus a lowercase ULID, sortable by
// creation time.
func New() string {
	return prefix + strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
}

// IsValid reports whether value is a structurally well-formed med_* id. It
// says nothing about whether such an asset exists.
func IsValid(value string) bool {
	if !strings.HasPrefix(value, prefix) {
		return false
	}
	_, err := Parse(value)
	return err == nil
}

// Parse returns the ULID carried by a med_* id, stripping the prefix when
// present.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), prefix)
	return ulid.Parse(value)
}
