package wire

import (
	"encoding/binary"
	"io"
)

// MaxVarintLen32 is the longest encoding of a 32-bit value.
const MaxVarintLen32 = 5

// AppendUvarint32 appends v in 7-bit groups, least significant first, with
// the top bit of each byte set when more bytes follow.
func AppendUvarint32(dst []byte, v uint32) []byte {
	return binary.AppendUvarint(dst, uint64(v))
}

// SizeUvarint32 returns the encoded length of v.
func SizeUvarint32(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// ReadUvarint32 decodes one value from r.
func ReadUvarint32(r io.ByteReader) (uint32, error) {
	var v uint32
	for i := 0; i < MaxVarintLen32; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if i == MaxVarintLen32-1 && b > 0x0f {
			return 0, ErrVarintOverflow
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b < 0x80 {
			return v, nil
		}
	}
	return 0, ErrVarintOverflow
}

// ToUnsigned reinterprets the bits of v. Negative values map to large
// unsigned values and take the full five bytes on the wire.
func ToUnsigned(v int32) uint32 {
	return uint32(v)
}

// ToSigned reinterprets the bits of v.
func ToSigned(v uint32) int32 {
	return int32(v)
}
