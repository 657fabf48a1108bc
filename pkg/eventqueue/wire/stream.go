package wire

import (
	"fmt"
	"io"
	"strings"
)

// FormatVersion is the only stream version this package reads and writes.
const FormatVersion = 1

// StreamWriter writes records of typed fields. Field writes outside
// BeginRecord/EndRecord, and I/O failures, are reported by the next
// EndRecord, Flush or Close.
type StreamWriter interface {
	BeginRecord()
	EndRecord() error

	WriteBool(v bool)
	WriteUint8(v uint8)
	WriteInt16(v int16)
	WriteUint16(v uint16)
	WriteInt32(v int32)
	WriteUint32(v uint32)
	WriteInt64(v int64)
	WriteUint64(v uint64)
	WriteFloat32(v float32)
	WriteFloat64(v float64)
	WriteString(v string)
	WriteBytes(v []byte)

	// Flush pushes buffered records to the underlying writer.
	Flush() error
	// Close terminates the stream and flushes. It does not close the
	// underlying writer.
	Close() error
}

// StreamReader reads records written by the matching StreamWriter.
type StreamReader interface {
	// NextRecord advances to the next record, skipping whatever is left of
	// the current one. Returns false at the end of the stream.
	NextRecord() (bool, error)

	ReadBool() (bool, error)
	ReadUint8() (uint8, error)
	ReadInt16() (int16, error)
	ReadUint16() (uint16, error)
	ReadInt32() (int32, error)
	ReadUint32() (uint32, error)
	ReadInt64() (int64, error)
	ReadUint64() (uint64, error)
	ReadFloat32() (float32, error)
	ReadFloat64() (float64, error)
	ReadString() (string, error)
	ReadBytes() ([]byte, error)
}

// Format selects a stream codec.
type Format int

const (
	// FormatBinary is the compact length-prefixed layout.
	FormatBinary Format = iota
	// FormatText is the JSON layout.
	FormatText
)

// String returns "binary" or "text".
func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatText:
		return "text"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat parses "binary" or "text" (also "json").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "binary":
		return FormatBinary, nil
	case "text", "json":
		return FormatText, nil
	default:
		return 0, fmt.Errorf("unknown wire format %q", s)
	}
}

// NewWriter creates a StreamWriter for the format.
func NewWriter(w io.Writer, f Format) (StreamWriter, error) {
	switch f {
	case FormatBinary:
		return NewBinaryWriter(w), nil
	case FormatText:
		return NewTextWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown wire format %v", f)
	}
}

// NewReader creates a StreamReader for the format and validates the header.
func NewReader(r io.Reader, f Format) (StreamReader, error) {
	switch f {
	case FormatBinary:
		br, err := NewBinaryReader(r)
		if err != nil {
			return nil, err
		}
		return br, nil
	case FormatText:
		tr, err := NewTextReader(r)
		if err != nil {
			return nil, err
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("unknown wire format %v", f)
	}
}
