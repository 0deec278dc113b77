package domain

import (
	"strconv"
	"sync/atomic"
)

// NodeKey identifies a node for its whole lifetime. Keys are process-local and
// are never persisted; the codec rebuilds fresh keys on decode.
type NodeKey string

// RootKey is the well-known identity of the document root.
const RootKey NodeKey = "root"

var keySeq atomic.Uint64

// NewKey returns a key that has never been handed out in this process.
func NewKey() NodeKey {
	return NodeKey(strconv.FormatUint(keySeq.Add(1), 10))
}

// String implements fmt.Stringer.
func (k NodeKey) String() string {
	return string(k)
}
