package codec

import (
	"encoding/binary"
	"fmt"
)

// Body accumulates the little-endian-encoded field values of one
// message, in declaration order, with no padding.
type Body struct {
	buf []byte
}

// NewBody returns an empty Body ready for writing.
func NewBody() *Body { return &Body{} }

// Bytes returns the accumulated body bytes.
func (b *Body) Bytes() []byte { return b.buf }

// WriteUint8 appends a single byte.
func (b *Body) WriteUint8(v uint8) { b.buf = append(b.buf, v) }

// WriteBool appends 1 byte: 0 or 1.
func (b *Body) WriteBool(v bool) {
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
}

// WriteUint16 appends 2 bytes, little-endian.
func (b *Body) WriteUint16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// WriteUint32 appends 4 bytes, little-endian.
func (b *Body) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// WriteUint64 appends 8 bytes, little-endian.
func (b *Body) WriteUint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// WriteString appends a length-prefixed (u16) string. It fails if the
// string is longer than 65535 bytes rather than truncate it.
func (b *Body) WriteString(s string) error {
	if len(s) > MaxBodyLength {
		return fmt.Errorf("codec: string of %d bytes exceeds %d byte limit: %w", len(s), MaxBodyLength, ErrBodyTooLarge)
	}
	b.WriteUint16(uint16(len(s)))
	b.buf = append(b.buf, s...)
	return nil
}

// WriteVectorHeader appends the u16 element-count prefix of a vector. It
// fails rather than truncate if count exceeds 65535.
func (b *Body) WriteVectorHeader(count int) error {
	if count > MaxBodyLength {
		return fmt.Errorf("codec: vector of %d elements exceeds %d element limit: %w", count, MaxBodyLength, ErrBodyTooLarge)
	}
	b.WriteUint16(uint16(count))
	return nil
}

// WriteUint64Vector appends a vector of uint64 scalars: a u16 count
// followed by the packed 8-byte little-endian elements.
func (b *Body) WriteUint64Vector(vs []uint64) error {
	if err := b.WriteVectorHeader(len(vs)); err != nil {
		return err
	}
	for _, v := range vs {
		b.WriteUint64(v)
	}
	return nil
}

// BodyReader decodes the fields of one message body in declaration
// order. Reads past the end of the body return an error rather than
// panicking, since body bytes may originate from a corrupt log file.
type BodyReader struct {
	buf []byte
	pos int
}

// NewBodyReader wraps buf for sequential field decoding.
func NewBodyReader(buf []byte) *BodyReader {
	return &BodyReader{buf: buf}
}

func (r *BodyReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("codec: body truncated: need %d bytes at offset %d, have %d total", n, r.pos, len(r.buf))
	}
	return nil
}

// ReadUint8 reads a single byte.
func (r *BodyReader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadBool reads a single byte and interprets it as 0/1.
func (r *BodyReader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadUint16 reads 2 little-endian bytes.
func (r *BodyReader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads 4 little-endian bytes.
func (r *BodyReader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// ReadUint64 reads 8 little-endian bytes.
func (r *BodyReader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// ReadString reads a u16-length-prefixed string.
func (r *BodyReader) ReadString() (string, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// ReadVectorHeader reads the u16 element count prefix of a vector.
func (r *BodyReader) ReadVectorHeader() (int, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ReadUint64Vector reads a vector of packed uint64 scalars.
func (r *BodyReader) ReadUint64Vector() ([]uint64, error) {
	n, err := r.ReadVectorHeader()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i], err = r.ReadUint64()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Remaining reports how many unread bytes are left in the body. A
// well-formed message should leave this at 0 once fully decoded.
func (r *BodyReader) Remaining() int {
	return len(r.buf) - r.pos
}
