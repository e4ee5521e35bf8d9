package wamp

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
)

// ID is a WAMP identifier: a non-negative integer bounded to 53 bits so
// that it round-trips through any serializer that represents numbers as
// IEEE-754 doubles (JSON's number type).  Session ids, request ids,
// subscription ids, registration ids, and publication ids are all ID
// values, and are only required to be unique within the scope the spec
// calls for (e.g. request ids are unique per session; session ids are
// unique per router).
type ID uint64

// idMask keeps generated values within 53 bits.
const idMask = 1<<53 - 1

var idCounter uint64

func init() {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err == nil {
		atomic.StoreUint64(&idCounter, binary.BigEndian.Uint64(seed[:])&idMask)
	}
}

// GlobalID returns a new ID that is unique within this process for the
// lifetime of the object it names.  It uses a randomized starting point,
// per spec.md's "a per-process counter seeded randomly" design note, so
// that ids from successive router restarts do not collide when observed by
// an external system.
func GlobalID() ID {
	return ID(atomic.AddUint64(&idCounter, 1) & idMask)
}
