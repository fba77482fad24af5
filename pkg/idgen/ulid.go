// Package idgen generates lexicographically sortable surrogate ids for
// command source entries.
package idgen

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// MustNewID returns a new ULID. Sortable by creation time, which keeps the
// audit log naturally ordered by id.
func MustNewID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	ms := ulid.Timestamp(time.Now())
	id, err := ulid.New(ms, entropy)
	if err != nil {
		panic(err)
	}
	return id.String()
}
