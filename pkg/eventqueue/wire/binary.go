package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// BinaryWriter writes the compact binary layout. Each record is buffered in
// memory until EndRecord so its length can be written first.
type BinaryWriter struct {
	w    *bufio.Writer
	rec  []byte
	open bool
	err  error
}

// Compile-time interface check.
var _ StreamWriter = (*BinaryWriter)(nil)

// NewBinaryWriter starts a binary stream on w by writing the version byte.
func NewBinaryWriter(w io.Writer) *BinaryWriter {
	bw := &BinaryWriter{w: bufio.NewWriter(w)}
	bw.err = bw.w.WriteByte(FormatVersion)
	return bw
}

func (b *BinaryWriter) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// field returns false when no record is open.
func (b *BinaryWriter) field() bool {
	if !b.open {
		b.fail(formatErr("write field", ErrNoRecord))
		return false
	}
	return true
}

// BeginRecord implements StreamWriter.
func (b *BinaryWriter) BeginRecord() {
	if b.open {
		b.fail(formatErr("begin record", errors.New("previous record not ended")))
	}
	b.open = true
	b.rec = b.rec[:0]
}

// EndRecord implements StreamWriter.
func (b *BinaryWriter) EndRecord() error {
	if !b.open {
		b.fail(formatErr("end record", ErrNoRecord))
		return b.err
	}
	b.open = false
	if len(b.rec) > math.MaxInt32 {
		b.fail(formatErr("end record", errors.New("record exceeds 2 GiB")))
		return b.err
	}
	if b.err != nil {
		return b.err
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(b.rec)))
	if _, err := b.w.Write(hdr[:]); err != nil {
		b.fail(err)
		return b.err
	}
	if _, err := b.w.Write(b.rec); err != nil {
		b.fail(err)
	}
	return b.err
}

// WriteBool implements StreamWriter.
func (b *BinaryWriter) WriteBool(v bool) {
	if v {
		b.WriteUint8(1)
	} else {
		b.WriteUint8(0)
	}
}

// WriteUint8 implements StreamWriter.
func (b *BinaryWriter) WriteUint8(v uint8) {
	if b.field() {
		b.rec = append(b.rec, v)
	}
}

// WriteInt16 implements StreamWriter.
func (b *BinaryWriter) WriteInt16(v int16) {
	b.WriteUint16(uint16(v))
}

// WriteUint16 implements StreamWriter.
func (b *BinaryWriter) WriteUint16(v uint16) {
	if b.field() {
		b.rec = binary.LittleEndian.AppendUint16(b.rec, v)
	}
}

// WriteInt32 implements StreamWriter. Encoded as a varint of the raw bits.
func (b *BinaryWriter) WriteInt32(v int32) {
	b.WriteUint32(ToUnsigned(v))
}

// WriteUint32 implements StreamWriter. Encoded as a varint.
func (b *BinaryWriter) WriteUint32(v uint32) {
	if b.field() {
		b.rec = AppendUvarint32(b.rec, v)
	}
}

// WriteInt64 implements StreamWriter.
func (b *BinaryWriter) WriteInt64(v int64) {
	b.WriteUint64(uint64(v))
}

// WriteUint64 implements StreamWriter.
func (b *BinaryWriter) WriteUint64(v uint64) {
	if b.field() {
		b.rec = binary.LittleEndian.AppendUint64(b.rec, v)
	}
}

// WriteFloat32 implements StreamWriter.
func (b *BinaryWriter) WriteFloat32(v float32) {
	if b.field() {
		b.rec = binary.LittleEndian.AppendUint32(b.rec, math.Float32bits(v))
	}
}

// WriteFloat64 implements StreamWriter.
func (b *BinaryWriter) WriteFloat64(v float64) {
	b.WriteUint64(math.Float64bits(v))
}

// WriteString implements StreamWriter.
func (b *BinaryWriter) WriteString(v string) {
	if b.field() {
		b.rec = AppendUvarint32(b.rec, uint32(len(v)))
		b.rec = append(b.rec, v...)
	}
}

// WriteBytes implements StreamWriter.
func (b *BinaryWriter) WriteBytes(v []byte) {
	if b.field() {
		b.rec = AppendUvarint32(b.rec, uint32(len(v)))
		b.rec = append(b.rec, v...)
	}
}

// Flush implements StreamWriter.
func (b *BinaryWriter) Flush() error {
	if b.err != nil {
		return b.err
	}
	if err := b.w.Flush(); err != nil {
		b.fail(err)
	}
	return b.err
}

// Close implements StreamWriter.
func (b *BinaryWriter) Close() error {
	if b.open {
		b.fail(formatErr("close", errors.New("record not ended")))
	}
	return b.Flush()
}

// BinaryReader reads the binary layout.
type BinaryReader struct {
	r *bufio.Reader

	// remaining counts unread payload bytes of the current record.
	remaining int
	inRecord  bool
	scratch   [8]byte
}

// Compile-time interface check.
var _ StreamReader = (*BinaryReader)(nil)

// NewBinaryReader validates the version byte and returns a reader
// positioned before the first record.
func NewBinaryReader(r io.Reader) (*BinaryReader, error) {
	br := &BinaryReader{r: bufio.NewReader(r)}
	v, err := br.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, formatErr("read version", err)
	}
	if v != FormatVersion {
		return nil, formatErr("read version", ErrUnsupportedVersion)
	}
	return br, nil
}

// NextRecord implements StreamReader.
func (b *BinaryReader) NextRecord() (bool, error) {
	if b.remaining > 0 {
		if _, err := b.r.Discard(b.remaining); err != nil {
			return false, formatErr("skip record", truncated(err))
		}
		b.remaining = 0
	}
	b.inRecord = false

	hdr := b.scratch[:4]
	if _, err := io.ReadFull(b.r, hdr); err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, formatErr("read record length", truncated(err))
	}
	n := int32(binary.LittleEndian.Uint32(hdr))
	if n < 0 {
		return false, formatErr("read record length", ErrMalformed)
	}
	b.remaining = int(n)
	b.inRecord = true
	return true, nil
}

func truncated(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// take reads exactly n bytes of the current record.
func (b *BinaryReader) take(op string, n int) ([]byte, error) {
	if !b.inRecord {
		return nil, formatErr(op, ErrNoRecord)
	}
	if n > b.remaining {
		return nil, formatErr(op, ErrOverRead)
	}
	var buf []byte
	if n <= len(b.scratch) {
		buf = b.scratch[:n]
	} else {
		buf = make([]byte, n)
	}
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return nil, formatErr(op, truncated(err))
	}
	b.remaining -= n
	return buf, nil
}

// recordByteReader feeds varint decoding from the current record.
type recordByteReader struct {
	b *BinaryReader
}

func (rb recordByteReader) ReadByte() (byte, error) {
	if rb.b.remaining < 1 {
		return 0, ErrOverRead
	}
	c, err := rb.b.r.ReadByte()
	if err != nil {
		return 0, truncated(err)
	}
	rb.b.remaining--
	return c, nil
}

func (b *BinaryReader) readVarint(op string) (uint32, error) {
	if !b.inRecord {
		return 0, formatErr(op, ErrNoRecord)
	}
	v, err := ReadUvarint32(recordByteReader{b})
	if err != nil {
		return 0, formatErr(op, err)
	}
	return v, nil
}

// ReadBool implements StreamReader.
func (b *BinaryReader) ReadBool() (bool, error) {
	buf, err := b.take("read bool", 1)
	if err != nil {
		return false, err
	}
	switch buf[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, formatErr("read bool", ErrMalformed)
	}
}

// ReadUint8 implements StreamReader.
func (b *BinaryReader) ReadUint8() (uint8, error) {
	buf, err := b.take("read uint8", 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadInt16 implements StreamReader.
func (b *BinaryReader) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

// ReadUint16 implements StreamReader.
func (b *BinaryReader) ReadUint16() (uint16, error) {
	buf, err := b.take("read uint16", 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// ReadInt32 implements StreamReader.
func (b *BinaryReader) ReadInt32() (int32, error) {
	v, err := b.readVarint("read int32")
	return ToSigned(v), err
}

// ReadUint32 implements StreamReader.
func (b *BinaryReader) ReadUint32() (uint32, error) {
	return b.readVarint("read uint32")
}

// ReadInt64 implements StreamReader.
func (b *BinaryReader) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

// ReadUint64 implements StreamReader.
func (b *BinaryReader) ReadUint64() (uint64, error) {
	buf, err := b.take("read uint64", 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// ReadFloat32 implements StreamReader.
func (b *BinaryReader) ReadFloat32() (float32, error) {
	buf, err := b.take("read float32", 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
}

// ReadFloat64 implements StreamReader.
func (b *BinaryReader) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadString implements StreamReader.
func (b *BinaryReader) ReadString() (string, error) {
	buf, err := b.readLengthPrefixed("read string")
	return string(buf), err
}

// ReadBytes implements StreamReader.
func (b *BinaryReader) ReadBytes() ([]byte, error) {
	return b.readLengthPrefixed("read bytes")
}

func (b *BinaryReader) readLengthPrefixed(op string) ([]byte, error) {
	n, err := b.readVarint(op)
	if err != nil {
		return nil, err
	}
	if int64(n) > int64(b.remaining) {
		return nil, formatErr(op, ErrOverRead)
	}
	out, err := readPayload(b.r, int(n))
	if err != nil {
		return nil, formatErr(op, truncated(err))
	}
	b.remaining -= int(n)
	return out, nil
}

// payloadChunk bounds the up-front allocation for a length-prefixed field;
// longer payloads grow with the bytes actually read.
const payloadChunk = 64 << 10

func readPayload(r io.Reader, n int) ([]byte, error) {
	if n <= payloadChunk {
		out := make([]byte, n)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var buf bytes.Buffer
	buf.Grow(payloadChunk)
	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
