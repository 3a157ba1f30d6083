// Package id issues run identifiers and the process holder id used for leases.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader

	holderOnce sync.Once
	holder     string
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewRunID returns a ULID for the given start time. Runs started in the same
// millisecond still sort in creation order.
func NewRunID(at time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(at.UTC()), mono)
	if err != nil {
		id = ulid.MustNew(ulid.Timestamp(time.Now().UTC()), cryptoRand.Reader)
	}
	return id.String()
}

// Holder identifies this process, e.g. "host/4242/01J...". It is fixed for
// the process lifetime.
func Holder() string {
	holderOnce.Do(func() {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "unknown"
		}
		holder = fmt.Sprintf("%s/%d/%s", host, os.Getpid(), NewRunID(time.Now()))
	})
	return holder
}
