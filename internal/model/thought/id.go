package thought

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out node identifiers. Implementations must never repeat a value
// within a process.
type IDGenerator interface {
	NextID() string
}

// UUIDGenerator produces random UUIDv4 identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NextID() string {
	return uuid.NewString()
}

// SequenceGenerator produces prefix1, prefix2, ... and is safe for concurrent use.
type SequenceGenerator struct {
	prefix string
	next   atomic.Uint64
}

// NewSequenceGenerator starts the counter at 1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) NextID() string {
	return g.prefix + strconv.FormatUint(g.next.Add(1), 10)
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func() string

func (f IDFunc) NextID() string { return f() }
