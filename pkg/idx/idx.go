// Package idx mints identifiers for tokens and requests.
//
// Token ids are ULIDs stamped with the issue instant, so a subject's refresh
// records and the jti claims they back sort in issue order. Ids minted within
// the same millisecond still sort in mint order.
package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// TokenID returns a new id stamped with at, typically the injected clock's
// issue instant.
func TokenID(at time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// RequestID returns a new id for correlating a request's log lines.
func RequestID() string {
	return TokenID(time.Now())
}

// IssuedAt reads the instant back out of a token id, truncated to the
// millisecond. ok is false for anything that is not a canonical ULID.
func IssuedAt(id string) (at time.Time, ok bool) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()).UTC(), true
}
