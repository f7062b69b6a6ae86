package fdp

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the time stamped into metadata records. Records keep
// whole unix seconds, so sub-second differences between writes are lost.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// unixNow is the record timestamp for the current moment of c.
func unixNow(c Clock) int64 { return c.Now().Unix() }

// IDGenerator names operations in logs.
type IDGenerator interface {
	New() string
}

// UUIDGenerator returns random version 4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
