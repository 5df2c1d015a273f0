package testutil

import (
	"fmt"
	"sync/atomic"
)

// IDSequence generates "<prefix>-1", "<prefix>-2", ... Safe for concurrent
// use.
type IDSequence struct {
	prefix string
	n      atomic.Int64
}

// NewIDSequence creates a sequence; an empty prefix means "test".
func NewIDSequence(prefix string) *IDSequence {
	if prefix == "" {
		prefix = "test"
	}
	return &IDSequence{prefix: prefix}
}

// Next returns the next id.
func (s *IDSequence) Next() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}
