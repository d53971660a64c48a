package env

import "sync/atomic"

// IDGenerator hands out environment identifiers. Implementations shared
// between goroutines must be safe for concurrent use.
type IDGenerator interface {
	NextID() int
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func() int

func (f IDFunc) NextID() int { return f() }

// Sequence is a monotonically increasing IDGenerator safe for concurrent use.
type Sequence struct {
	next atomic.Int64
}

// NewSequence returns a sequence whose first id is start.
func NewSequence(start int) *Sequence {
	s := &Sequence{}
	s.next.Store(int64(start))
	return s
}

func (s *Sequence) NextID() int {
	return int(s.next.Add(1) - 1)
}
