package store

import "fmt"

// BindUint64 converts an (unsigned) 64-bit value to the int64 sqlite3
// expects, preserving its bit pattern exactly: sqlite's INTEGER column
// is a signed 64-bit value, and round-tripping through int64 is
// lossless bit-for-bit even when the unsigned value is above 2^63.
func BindUint64(v uint64) int64 {
	return int64(v)
}

// UnbindUint64 reverses BindUint64.
func UnbindUint64(v int64) uint64 {
	return uint64(v)
}

// NodeIDArgs returns the (instance, index) column pair used to bind a
// NodeID: two consecutive integer columns, per spec.md §4.3.
func NodeIDArgs(instance, index uint64) (int64, int64) {
	return BindUint64(instance), BindUint64(index)
}

// PackPermissions packs the two permission bits into the single blob
// column spec.md §4.3 describes ("one blob column containing the packed
// bitfield").
func PackPermissions(canWrite, canExecute bool) []byte {
	var b byte
	if canWrite {
		b |= 0x1
	}
	if canExecute {
		b |= 0x2
	}
	return []byte{b}
}

// UnpackPermissions reverses PackPermissions.
func UnpackPermissions(blob []byte) (canWrite, canExecute bool, err error) {
	if len(blob) != 1 {
		return false, false, fmt.Errorf("store: permissions blob must be 1 byte, got %d", len(blob))
	}
	b := blob[0]
	return b&0x1 != 0, b&0x2 != 0, nil
}
