// Package id issues ULIDs for positions and runs.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues ULIDs from one monotonic entropy source, so IDs stamped
// with the same millisecond still sort in issue order.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator seeds the entropy source. A fixed seed gives a reproducible
// sequence.
func NewGenerator(seed int64) *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// At returns a ULID whose time component is t. Positions are stamped with
// simulated time so their IDs sort in simulation order.
func (g *Generator) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), g.entropy)
	if err != nil {
		// only on entropy overflow within a single millisecond
		panic(err)
	}
	return id.String()
}

var std = NewGenerator(randomSeed())

func randomSeed() int64 {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return seed
}

// New returns a ULID stamped with the wall clock.
func New() string { return std.At(time.Now()) }

// At returns a ULID stamped with t from the shared generator.
func At(t time.Time) string { return std.At(t) }

// Time extracts the timestamp of a ULID string.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
