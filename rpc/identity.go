package rpc

import "github.com/google/uuid"

// newIdentity generates a worker identity from a per-instance, properly
// seeded random source (crypto/rand under the hood via google/uuid),
// replacing the teacher's global-PRNG-derived identities which collide
// more often than a 128-bit random value when many workers start at once.
func newIdentity() string {
	return uuid.NewString()
}
