// Package id implements the identifier algebra used throughout filemesh:
// strongly-typed instance/file/change identifiers that share a 64-bit
// representation but are never interchangeable.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// Counter identifies an instance taking part in a share. It is assigned
// densely (0, 1, 2, ...) as instances are first seen.
type Counter uint64

// UUID is the per-instance index half of a NodeID: a file index or a
// change index, locally monotonic within the owning instance.
type UUID uint64

// Timestamp is seconds since the Unix epoch.
type Timestamp uint64

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp(time.Now().Unix())
}

// NodeID identifies either a file (as its ID) or a change (as its Change
// stamp): the pair of the instance that assigned it and the locally
// monotonic index within that instance.
type NodeID struct {
	Instance Counter
	Index    UUID
}

// NullNodeID is the all-zeroes sentinel: the parent of root, the "no
// previous change" marker in ancestry, and the Change stamp of a row
// that has never been mutated.
var NullNodeID = NodeID{}

// IsNull reports whether id is the null sentinel.
func (n NodeID) IsNull() bool {
	return n.Instance == 0 && n.Index == 0
}

// Equal reports component-wise equality. NodeID has no defined ordering;
// it identifies, it does not sort.
func (n NodeID) Equal(other NodeID) bool {
	return n.Instance == other.Instance && n.Index == other.Index
}

// NewNodeID builds a NodeID, rejecting the case where exactly
// one half is zero: a NodeID is either fully null or fully populated.
func NewNodeID(instance Counter, index UUID) (NodeID, error) {
	if (instance == 0) != (index == 0) {
		return NodeID{}, fmt.Errorf("id: invalid NodeID (%d, %d): instance and index must be both zero or both non-zero", instance, index)
	}
	return NodeID{Instance: instance, Index: index}, nil
}

func (n NodeID) String() string {
	return fmt.Sprintf("(%d,%d)", n.Instance, n.Index)
}

// NewUUID returns a cryptographically random 64-bit value, used to mint
// new InstanceIDs at share creation.
func NewUUID() (UUID, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("id: failed to generate random UUID: %w", err)
	}
	return UUID(binary.LittleEndian.Uint64(buf[:])), nil
}
