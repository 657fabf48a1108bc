package wire

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"

	jsoniter "github.com/json-iterator/go"
)

const (
	versionField = "jsonFormatVersion"
	eventsField  = "events"
)

// TextWriter writes the JSON layout. Each record is a JSON array of its
// fields; byte slices are base64 strings.
type TextWriter struct {
	stream  *jsoniter.Stream
	records int
	fields  int
	open    bool
	closed  bool
	err     error
}

// Compile-time interface check.
var _ StreamWriter = (*TextWriter)(nil)

// NewTextWriter starts a JSON stream on w.
func NewTextWriter(w io.Writer) *TextWriter {
	s := jsoniter.NewStream(jsoniter.ConfigDefault, w, 4096)
	s.WriteObjectStart()
	s.WriteObjectField(versionField)
	s.WriteInt(FormatVersion)
	s.WriteMore()
	s.WriteObjectField(eventsField)
	s.WriteArrayStart()
	return &TextWriter{stream: s}
}

func (t *TextWriter) fail(err error) {
	if t.err == nil {
		t.err = err
	}
}

// field writes the separator before a value. Returns false when no record
// is open.
func (t *TextWriter) field() bool {
	if !t.open {
		t.fail(formatErr("write field", ErrNoRecord))
		return false
	}
	if t.fields > 0 {
		t.stream.WriteMore()
	}
	t.fields++
	return true
}

// BeginRecord implements StreamWriter.
func (t *TextWriter) BeginRecord() {
	if t.open {
		t.fail(formatErr("begin record", errors.New("previous record not ended")))
		return
	}
	if t.records > 0 {
		t.stream.WriteMore()
	}
	t.stream.WriteArrayStart()
	t.open = true
	t.fields = 0
}

// EndRecord implements StreamWriter.
func (t *TextWriter) EndRecord() error {
	if !t.open {
		t.fail(formatErr("end record", ErrNoRecord))
		return t.err
	}
	t.stream.WriteArrayEnd()
	t.open = false
	t.records++
	if t.stream.Error != nil {
		t.fail(t.stream.Error)
	}
	return t.err
}

// WriteBool implements StreamWriter.
func (t *TextWriter) WriteBool(v bool) {
	if t.field() {
		t.stream.WriteBool(v)
	}
}

// WriteUint8 implements StreamWriter.
func (t *TextWriter) WriteUint8(v uint8) {
	if t.field() {
		t.stream.WriteUint8(v)
	}
}

// WriteInt16 implements StreamWriter.
func (t *TextWriter) WriteInt16(v int16) {
	if t.field() {
		t.stream.WriteInt16(v)
	}
}

// WriteUint16 implements StreamWriter.
func (t *TextWriter) WriteUint16(v uint16) {
	if t.field() {
		t.stream.WriteUint16(v)
	}
}

// WriteInt32 implements StreamWriter.
func (t *TextWriter) WriteInt32(v int32) {
	if t.field() {
		t.stream.WriteInt32(v)
	}
}

// WriteUint32 implements StreamWriter.
func (t *TextWriter) WriteUint32(v uint32) {
	if t.field() {
		t.stream.WriteUint32(v)
	}
}

// WriteInt64 implements StreamWriter.
func (t *TextWriter) WriteInt64(v int64) {
	if t.field() {
		t.stream.WriteInt64(v)
	}
}

// WriteUint64 implements StreamWriter.
func (t *TextWriter) WriteUint64(v uint64) {
	if t.field() {
		t.stream.WriteUint64(v)
	}
}

// WriteFloat32 implements StreamWriter. NaN and infinities have no JSON
// form and fail the stream.
func (t *TextWriter) WriteFloat32(v float32) {
	if !t.field() {
		return
	}
	if !finite(float64(v)) {
		t.fail(formatErr("write float32", fmt.Errorf("%w: %v has no JSON form", ErrMalformed, v)))
		t.stream.WriteNil()
		return
	}
	t.stream.WriteFloat32(v)
}

// WriteFloat64 implements StreamWriter. NaN and infinities have no JSON
// form and fail the stream.
func (t *TextWriter) WriteFloat64(v float64) {
	if !t.field() {
		return
	}
	if !finite(v) {
		t.fail(formatErr("write float64", fmt.Errorf("%w: %v has no JSON form", ErrMalformed, v)))
		t.stream.WriteNil()
		return
	}
	t.stream.WriteFloat64(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// WriteString implements StreamWriter.
func (t *TextWriter) WriteString(v string) {
	if t.field() {
		t.stream.WriteString(v)
	}
}

// WriteBytes implements StreamWriter.
func (t *TextWriter) WriteBytes(v []byte) {
	if t.field() {
		t.stream.WriteString(base64.StdEncoding.EncodeToString(v))
	}
}

// Flush implements StreamWriter.
func (t *TextWriter) Flush() error {
	if t.err != nil {
		return t.err
	}
	if err := t.stream.Flush(); err != nil {
		t.fail(err)
	}
	return t.err
}

// Close implements StreamWriter. It closes the events array and the
// top-level object.
func (t *TextWriter) Close() error {
	if t.closed {
		return t.err
	}
	if t.open {
		t.fail(formatErr("close", errors.New("record not ended")))
	}
	t.closed = true
	t.stream.WriteArrayEnd()
	t.stream.WriteObjectEnd()
	return t.Flush()
}

// TextReader reads the JSON layout.
type TextReader struct {
	iter *jsoniter.Iterator

	inRecord bool
	// hasNext reports whether the current record has an unread field.
	hasNext bool
	done    bool
}

// Compile-time interface check.
var _ StreamReader = (*TextReader)(nil)

// NewTextReader validates the header and returns a reader positioned
// before the first record.
func NewTextReader(r io.Reader) (*TextReader, error) {
	iter := jsoniter.Parse(jsoniter.ConfigDefault, r, 4096)

	if field := iter.ReadObject(); field != versionField {
		return nil, headerErr(iter, fmt.Errorf("%w: expected %q first, got %q", ErrMalformed, versionField, field))
	}
	version := iter.ReadInt()
	if iter.Error != nil {
		return nil, headerErr(iter, ErrMalformed)
	}
	if version != FormatVersion {
		return nil, formatErr("read version", ErrUnsupportedVersion)
	}
	if field := iter.ReadObject(); field != eventsField {
		return nil, headerErr(iter, fmt.Errorf("%w: expected %q, got %q", ErrMalformed, eventsField, field))
	}
	return &TextReader{iter: iter}, nil
}

func headerErr(iter *jsoniter.Iterator, err error) error {
	if iter.Error != nil && iter.Error != io.EOF {
		return formatErr("read header", fmt.Errorf("%w: %v", err, iter.Error))
	}
	return formatErr("read header", err)
}

// iterErr converts a parser failure into a FormatError.
func (t *TextReader) iterErr(op string) error {
	if t.iter.Error == nil {
		return nil
	}
	if t.iter.Error == io.EOF {
		return formatErr(op, io.ErrUnexpectedEOF)
	}
	return formatErr(op, fmt.Errorf("%w: %v", ErrMalformed, t.iter.Error))
}

// NextRecord implements StreamReader.
func (t *TextReader) NextRecord() (bool, error) {
	if t.done {
		return false, nil
	}
	if t.inRecord {
		for t.hasNext {
			t.iter.Skip()
			t.hasNext = t.iter.ReadArray()
		}
		t.inRecord = false
		if err := t.iterErr("skip record"); err != nil {
			return false, err
		}
	}

	if !t.iter.ReadArray() {
		t.done = true
		if err := t.iterErr("read events"); err != nil {
			return false, err
		}
		return false, nil
	}
	if t.iter.WhatIsNext() != jsoniter.ArrayValue {
		return false, formatErr("read record", fmt.Errorf("%w: record is not an array", ErrMalformed))
	}
	t.hasNext = t.iter.ReadArray()
	if err := t.iterErr("read record"); err != nil {
		return false, err
	}
	t.inRecord = true
	return true, nil
}

// before checks that the current record has another field.
func (t *TextReader) before(op string) error {
	if !t.inRecord {
		return formatErr(op, ErrNoRecord)
	}
	if !t.hasNext {
		return formatErr(op, ErrOverRead)
	}
	return nil
}

// after advances past the separator or the end of the record.
func (t *TextReader) after(op string) error {
	if err := t.iterErr(op); err != nil {
		return err
	}
	t.hasNext = t.iter.ReadArray()
	return t.iterErr(op)
}

// ReadBool implements StreamReader.
func (t *TextReader) ReadBool() (bool, error) {
	const op = "read bool"
	if err := t.before(op); err != nil {
		return false, err
	}
	v := t.iter.ReadBool()
	return v, t.after(op)
}

// ReadUint8 implements StreamReader.
func (t *TextReader) ReadUint8() (uint8, error) {
	const op = "read uint8"
	if err := t.before(op); err != nil {
		return 0, err
	}
	v := t.iter.ReadUint8()
	return v, t.after(op)
}

// ReadInt16 implements StreamReader.
func (t *TextReader) ReadInt16() (int16, error) {
	const op = "read int16"
	if err := t.before(op); err != nil {
		return 0, err
	}
	v := t.iter.ReadInt16()
	return v, t.after(op)
}

// ReadUint16 implements StreamReader.
func (t *TextReader) ReadUint16() (uint16, error) {
	const op = "read uint16"
	if err := t.before(op); err != nil {
		return 0, err
	}
	v := t.iter.ReadUint16()
	return v, t.after(op)
}

// ReadInt32 implements StreamReader.
func (t *TextReader) ReadInt32() (int32, error) {
	const op = "read int32"
	if err := t.before(op); err != nil {
		return 0, err
	}
	v := t.iter.ReadInt32()
	return v, t.after(op)
}

// ReadUint32 implements StreamReader.
func (t *TextReader) ReadUint32() (uint32, error) {
	const op = "read uint32"
	if err := t.before(op); err != nil {
		return 0, err
	}
	v := t.iter.ReadUint32()
	return v, t.after(op)
}

// ReadInt64 implements StreamReader.
func (t *TextReader) ReadInt64() (int64, error) {
	const op = "read int64"
	if err := t.before(op); err != nil {
		return 0, err
	}
	v := t.iter.ReadInt64()
	return v, t.after(op)
}

// ReadUint64 implements StreamReader.
func (t *TextReader) ReadUint64() (uint64, error) {
	const op = "read uint64"
	if err := t.before(op); err != nil {
		return 0, err
	}
	v := t.iter.ReadUint64()
	return v, t.after(op)
}

// ReadFloat32 implements StreamReader.
func (t *TextReader) ReadFloat32() (float32, error) {
	const op = "read float32"
	if err := t.before(op); err != nil {
		return 0, err
	}
	v := t.iter.ReadFloat32()
	return v, t.after(op)
}

// ReadFloat64 implements StreamReader.
func (t *TextReader) ReadFloat64() (float64, error) {
	const op = "read float64"
	if err := t.before(op); err != nil {
		return 0, err
	}
	v := t.iter.ReadFloat64()
	return v, t.after(op)
}

// ReadString implements StreamReader.
func (t *TextReader) ReadString() (string, error) {
	const op = "read string"
	if err := t.before(op); err != nil {
		return "", err
	}
	v := t.iter.ReadString()
	return v, t.after(op)
}

// ReadBytes implements StreamReader.
func (t *TextReader) ReadBytes() ([]byte, error) {
	const op = "read bytes"
	if err := t.before(op); err != nil {
		return nil, err
	}
	s := t.iter.ReadString()
	if err := t.after(op); err != nil {
		return nil, err
	}
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, formatErr(op, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	return out, nil
}
