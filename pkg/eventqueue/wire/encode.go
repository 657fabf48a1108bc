package wire

import (
	"errors"
	"io"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
)

// Options select the stream layout.
type Options struct {
	Format  Format
	Verbose bool
}

// Encode writes events as one complete stream.
func Encode(w io.Writer, types *Types, events []event.Event, opts Options) error {
	sw, err := NewWriter(w, opts.Format)
	if err != nil {
		return err
	}
	s := NewSerializer(sw, types, opts.Verbose)
	for _, evt := range events {
		if err := s.Serialize(evt); err != nil {
			return err
		}
	}
	return sw.Close()
}

// Decode reads every event of a stream written by Encode.
func Decode(r io.Reader, types *Types, opts Options) ([]event.Event, error) {
	sr, err := NewReader(r, opts.Format)
	if err != nil {
		return nil, err
	}
	d := NewDeserializer(sr, types, opts.Verbose)

	var events []event.Event
	for {
		evt, err := d.Read()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, evt)
	}
}
