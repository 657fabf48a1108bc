package wire

import (
	"fmt"
	"io"
	"time"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
)

// Timestamps in compact mode count 100ns ticks since 0001-01-01 UTC.
const (
	ticksPerSecond = 10_000_000
	nanosPerTick   = 100
	unixToInternal = 62135596800 // seconds from 0001-01-01 to 1970-01-01
)

// ToTicks converts t to 100ns ticks since 0001-01-01 UTC.
func ToTicks(t time.Time) int64 {
	return (t.Unix()+unixToInternal)*ticksPerSecond + int64(t.Nanosecond())/nanosPerTick
}

// FromTicks converts ticks back to a UTC time.
func FromTicks(ticks int64) time.Time {
	sec := ticks / ticksPerSecond
	rem := ticks % ticksPerSecond
	return time.Unix(sec-unixToInternal, rem*nanosPerTick).UTC()
}

// Serializer writes events to a stream, interning type names and positions.
// Not safe for concurrent use.
type Serializer struct {
	w       StreamWriter
	types   *Types
	verbose bool

	typeIDs     map[string]int32
	positionIDs map[string]int32
}

// NewSerializer creates a Serializer. Type names and positions are interned
// the same way in both modes: the first occurrence writes a fresh ID followed
// by the fully qualified value, later ones write the ID alone. Verbose only
// changes timestamps, which are written as RFC 3339 strings instead of
// ticks; a Deserializer must use the same mode.
func NewSerializer(w StreamWriter, types *Types, verbose bool) *Serializer {
	s := &Serializer{types: types, verbose: verbose}
	s.Reset(w)
	return s
}

// Reset attaches s to a new stream and forgets all interned values.
func (s *Serializer) Reset(w StreamWriter) {
	s.w = w
	s.typeIDs = make(map[string]int32)
	s.positionIDs = make(map[string]int32)
}

// Serialize writes one event as a record.
func (s *Serializer) Serialize(evt event.Event) error {
	if evt == nil {
		return formatErr("serialize", fmt.Errorf("%w: nil event", ErrUnknownType))
	}
	codec, name, ok := s.types.lookup(evt)
	if !ok {
		return formatErr("serialize", fmt.Errorf("%w: %s", ErrUnknownType, name))
	}

	s.w.BeginRecord()
	s.writeInterned(s.typeIDs, name)
	if pos := evt.EnqueuePosition(); pos == "" {
		s.w.WriteInt32(0)
	} else {
		s.writeInterned(s.positionIDs, pos)
	}
	if s.verbose {
		s.w.WriteString(evt.EnqueuedAt().UTC().Format(time.RFC3339Nano))
	} else {
		s.w.WriteInt64(ToTicks(evt.EnqueuedAt()))
	}
	codec.Write(s.w, evt)
	return s.w.EndRecord()
}

// writeInterned writes the ID of value, followed by value itself the first
// time it is seen. IDs start at 1.
func (s *Serializer) writeInterned(table map[string]int32, value string) {
	if id, ok := table[value]; ok {
		s.w.WriteInt32(id)
		return
	}
	id := int32(len(table) + 1)
	table[value] = id
	s.w.WriteInt32(id)
	s.w.WriteString(value)
}

// Deserializer reads events written by a Serializer.
// Not safe for concurrent use.
type Deserializer struct {
	r       StreamReader
	types   *Types
	verbose bool

	typeNames []string
	positions []string
}

// NewDeserializer creates a Deserializer. verbose must match the writer.
func NewDeserializer(r StreamReader, types *Types, verbose bool) *Deserializer {
	d := &Deserializer{types: types, verbose: verbose}
	d.Reset(r)
	return d
}

// Reset attaches d to a new stream and forgets all interned values.
func (d *Deserializer) Reset(r StreamReader) {
	d.r = r
	d.typeNames = nil
	d.positions = nil
}

// Read returns the next event, or io.EOF at the end of the stream.
// The event is stamped with its recorded position and time.
func (d *Deserializer) Read() (event.Event, error) {
	ok, err := d.r.NextRecord()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}

	name, err := d.readInterned(&d.typeNames, "read type")
	if err != nil {
		return nil, err
	}
	codec, ok := d.types.byNameLookup(name)
	if !ok {
		return nil, formatErr("read type", fmt.Errorf("%w: %s", ErrUnknownType, name))
	}

	position, err := d.readPosition()
	if err != nil {
		return nil, err
	}
	at, err := d.readTime()
	if err != nil {
		return nil, err
	}

	evt := codec.New()
	if err := codec.Read(d.r, evt); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	evt.Stamp(position, at)
	return evt, nil
}

func (d *Deserializer) readPosition() (string, error) {
	id, err := d.r.ReadInt32()
	if err != nil {
		return "", err
	}
	if id == 0 {
		return "", nil
	}
	return d.resolve(&d.positions, id, "read position")
}

func (d *Deserializer) readInterned(table *[]string, op string) (string, error) {
	id, err := d.r.ReadInt32()
	if err != nil {
		return "", err
	}
	return d.resolve(table, id, op)
}

// resolve maps id to a known value, or reads the value when id is the next
// fresh ID.
func (d *Deserializer) resolve(table *[]string, id int32, op string) (string, error) {
	switch {
	case id >= 1 && int(id) <= len(*table):
		return (*table)[id-1], nil
	case int(id) == len(*table)+1:
		value, err := d.r.ReadString()
		if err != nil {
			return "", err
		}
		*table = append(*table, value)
		return value, nil
	default:
		return "", formatErr(op, fmt.Errorf("%w: unexpected id %d", ErrMalformed, id))
	}
}

func (d *Deserializer) readTime() (time.Time, error) {
	if !d.verbose {
		ticks, err := d.r.ReadInt64()
		if err != nil {
			return time.Time{}, err
		}
		return FromTicks(ticks), nil
	}
	s, err := d.r.ReadString()
	if err != nil {
		return time.Time{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, formatErr("read time", fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	return at.UTC(), nil
}
