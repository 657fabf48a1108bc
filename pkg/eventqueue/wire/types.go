package wire

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
)

// Serializable is implemented by events that can be written to a stream.
// ReadFields must read the fields in the order WriteFields wrote them.
type Serializable interface {
	event.Event
	WriteFields(w StreamWriter)
	ReadFields(r StreamReader) error
}

// Codec creates, writes and reads one event type.
type Codec struct {
	New   func() event.Event
	Write func(w StreamWriter, evt event.Event)
	Read  func(r StreamReader, evt event.Event) error
}

// Types maps event types to codecs by their fully qualified name.
// Safe for concurrent use.
type Types struct {
	mu     sync.RWMutex
	byName map[string]Codec
	byType map[reflect.Type]string
}

// NewTypes creates a registry holding the lifecycle sentinels and
// *event.UnhandledError.
func NewTypes() *Types {
	t := &Types{
		byName: make(map[string]Codec),
		byType: make(map[reflect.Type]string),
	}
	registerBuiltins(t)
	return t
}

// Add registers c for eventType under event.TypeName(eventType).
func (t *Types) Add(eventType reflect.Type, c Codec) error {
	if c.New == nil || c.Write == nil || c.Read == nil {
		return fmt.Errorf("codec for %v is incomplete", eventType)
	}
	name := event.TypeName(eventType)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	t.byName[name] = c
	t.byType[eventType] = name
	return nil
}

// Replace registers c for eventType, overwriting an existing codec.
func (t *Types) Replace(eventType reflect.Type, c Codec) {
	name := event.TypeName(eventType)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.byName[name] = c
	t.byType[eventType] = name
}

// Register adds a Serializable event type. T is the struct type; *T must
// implement Serializable.
func Register[T any, PT interface {
	*T
	Serializable
}](types *Types) error {
	return types.Add(reflect.TypeFor[PT](), Codec{
		New: func() event.Event {
			return PT(new(T))
		},
		Write: func(w StreamWriter, evt event.Event) {
			evt.(PT).WriteFields(w)
		},
		Read: func(r StreamReader, evt event.Event) error {
			return evt.(PT).ReadFields(r)
		},
	})
}

// MustRegister is Register that panics on error.
func MustRegister[T any, PT interface {
	*T
	Serializable
}](types *Types) {
	if err := Register[T, PT](types); err != nil {
		panic(err)
	}
}

// lookup returns the codec and name for evt's runtime type.
func (t *Types) lookup(evt event.Event) (Codec, string, bool) {
	typ := reflect.TypeOf(evt)

	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.byType[typ]
	if !ok {
		return Codec{}, event.TypeName(typ), false
	}
	return t.byName[name], name, true
}

// byNameLookup returns the codec registered under name.
func (t *Types) byNameLookup(name string) (Codec, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.byName[name]
	return c, ok
}

// Has reports whether evt's type is registered.
func (t *Types) Has(evt event.Event) bool {
	_, _, ok := t.lookup(evt)
	return ok
}

// Names returns the registered type names, sorted.
func (t *Types) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
