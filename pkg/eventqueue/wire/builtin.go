package wire

import (
	"reflect"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
)

func registerBuiltins(t *Types) {
	t.Replace(reflect.TypeFor[*event.ShutdownRequest](), Codec{
		New: func() event.Event { return event.NewShutdownRequest() },
		Write: func(w StreamWriter, evt event.Event) {
			w.WriteBool(evt.(*event.ShutdownRequest).Cancelled())
		},
		Read: func(r StreamReader, evt event.Event) error {
			cancelled, err := r.ReadBool()
			if err != nil {
				return err
			}
			if cancelled {
				evt.(*event.ShutdownRequest).Cancel()
			}
			return nil
		},
	})

	t.Replace(reflect.TypeFor[*event.ShuttingDown](), Codec{
		New:   func() event.Event { return event.NewShuttingDown() },
		Write: func(StreamWriter, event.Event) {},
		Read:  func(StreamReader, event.Event) error { return nil },
	})

	t.Replace(reflect.TypeFor[*event.ShutDown](), Codec{
		New:   func() event.Event { return event.NewShutDown() },
		Write: func(StreamWriter, event.Event) {},
		Read:  func(StreamReader, event.Event) error { return nil },
	})

	// The handler error itself is not portable; only its text survives.
	t.Replace(reflect.TypeFor[*event.UnhandledError](), Codec{
		New: func() event.Event { return &event.UnhandledError{} },
		Write: func(w StreamWriter, evt event.Event) {
			e := evt.(*event.UnhandledError)
			w.WriteString(e.SourceType)
			w.WriteString(e.Message)
		},
		Read: func(r StreamReader, evt event.Event) error {
			e := evt.(*event.UnhandledError)
			var err error
			if e.SourceType, err = r.ReadString(); err != nil {
				return err
			}
			e.Message, err = r.ReadString()
			return err
		},
	})
}
