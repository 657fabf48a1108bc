// Package wire persists event streams in a binary or JSON text format.
//
// A stream is a sequence of records, one per event. Each record starts with
// the event's type and enqueue position, both interned per stream: the first
// occurrence carries an integer ID and the full string, later occurrences
// only the ID. Then comes the enqueue timestamp and the event's own fields.
//
// Binary layout:
//
//	[version byte = 1] ([int32 LE payload length][payload])*
//
// Text layout:
//
//	{"jsonFormatVersion":1,"events":[[type,position,time,field...],...]}
//
// Event types opt in by implementing Serializable and being registered:
//
//	types := wire.NewTypes()
//	wire.Register[FileSaved](types)
//
//	err := wire.Encode(w, types, q.Pending(), wire.Options{Format: wire.FormatText})
//
// Readers tolerate an event reading fewer fields than were written; the rest
// of the record is skipped. Reading past the end of a record fails with
// ErrOverRead.
package wire
