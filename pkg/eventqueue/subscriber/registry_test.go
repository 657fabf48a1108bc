package subscriber_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/subscriber"
)

// saved is implemented by every "file saved" flavour.
type saved interface {
	event.Event
	SavedPath() string
}

type fileSaved struct {
	event.Base
	Path string
}

func (e *fileSaved) SavedPath() string { return e.Path }

type autoSaved struct {
	event.Base
	Path string
}

func (e *autoSaved) SavedPath() string { return e.Path }

type fileClosed struct {
	event.Base
}

// recorder counts deliveries and can fail on demand.
type recorder struct {
	name  string
	seen  []event.Event
	fail  error
	panic any
	pad   [64]byte
}

func (r *recorder) HandleEvent(_ context.Context, evt event.Event) error {
	r.seen = append(r.seen, evt)
	if r.panic != nil {
		panic(r.panic)
	}
	return r.fail
}

func TestAddRejectsDuplicatePair(t *testing.T) {
	reg := subscriber.NewRegistry()
	h := &recorder{name: "h"}

	assert.True(t, subscriber.Subscribe[*fileSaved](reg, h))
	assert.False(t, subscriber.Subscribe[*fileSaved](reg, h))
	assert.True(t, subscriber.Subscribe[*fileClosed](reg, h), "same handler, other type")
	assert.Equal(t, 2, reg.Len())
}

func TestAddRejectsWeakDuplicateOfStrong(t *testing.T) {
	reg := subscriber.NewRegistry()
	h := &recorder{name: "h"}

	require.True(t, subscriber.Subscribe[*fileSaved](reg, h))
	assert.False(t, subscriber.SubscribeWeak[*fileSaved](reg, h))
}

func TestAddRejectsNonComparableHandler(t *testing.T) {
	reg := subscriber.NewRegistry()
	assert.False(t, reg.Add(sliceHandler{}, event.TypeOf[*fileSaved]()))
	assert.False(t, reg.Add(nil, event.TypeOf[*fileSaved]()))
}

type sliceHandler []int

func (sliceHandler) HandleEvent(context.Context, event.Event) error { return nil }

func TestRemoveIsScopedToPair(t *testing.T) {
	reg := subscriber.NewRegistry()
	h := &recorder{name: "h"}
	subscriber.Subscribe[*fileSaved](reg, h)
	subscriber.Subscribe[*fileClosed](reg, h)

	assert.True(t, subscriber.Unsubscribe[*fileSaved](reg, h))
	assert.False(t, subscriber.Unsubscribe[*fileSaved](reg, h))

	errs := reg.Dispatch(context.Background(), &fileSaved{})
	assert.Empty(t, errs)
	assert.Empty(t, h.seen)

	reg.Dispatch(context.Background(), &fileClosed{})
	assert.Len(t, h.seen, 1)
}

func TestDispatchExactType(t *testing.T) {
	reg := subscriber.NewRegistry()
	h := &recorder{}
	subscriber.Subscribe[*fileSaved](reg, h)

	reg.Dispatch(context.Background(), &fileClosed{})
	assert.Empty(t, h.seen)

	evt := &fileSaved{Path: "a"}
	reg.Dispatch(context.Background(), evt)
	require.Len(t, h.seen, 1)
	assert.Same(t, evt, h.seen[0])
}

func TestDispatchCovariantInterface(t *testing.T) {
	reg := subscriber.NewRegistry()
	anySaved := &recorder{name: "saved"}
	everything := &recorder{name: "all"}
	subscriber.Subscribe[saved](reg, anySaved)
	subscriber.Subscribe[event.Event](reg, everything)

	ctx := context.Background()
	reg.Dispatch(ctx, &fileSaved{Path: "a"})
	reg.Dispatch(ctx, &autoSaved{Path: "b"})
	reg.Dispatch(ctx, &fileClosed{})

	assert.Len(t, anySaved.seen, 2)
	assert.Len(t, everything.seen, 3)
}

func TestDispatchOrderFollowsRegistration(t *testing.T) {
	reg := subscriber.NewRegistry()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		reg.Add(subscriber.Func(func(context.Context, *fileSaved) error {
			order = append(order, name)
			return nil
		}), event.TypeOf[*fileSaved]())
	}

	reg.Dispatch(context.Background(), &fileSaved{})
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	reg := subscriber.NewRegistry()
	boom := errors.New("boom")
	failing := &recorder{name: "failing", fail: boom}
	panicking := &recorder{name: "panicking", panic: "kaboom"}
	healthy := &recorder{name: "healthy"}
	subscriber.Subscribe[*fileSaved](reg, failing)
	subscriber.Subscribe[*fileSaved](reg, panicking)
	subscriber.Subscribe[*fileSaved](reg, healthy)

	errs := reg.Dispatch(context.Background(), &fileSaved{})
	require.Len(t, errs, 2)
	assert.Len(t, healthy.seen, 1)

	assert.ErrorIs(t, errs[0], boom)
	var herr *subscriber.HandlerError
	require.ErrorAs(t, errs[0], &herr)
	assert.Equal(t, "*subscriber_test.recorder", herr.Handler)
	assert.Equal(t, event.NameOf(&fileSaved{}), herr.EventType)

	var perr *subscriber.PanicError
	require.ErrorAs(t, errs[1], &perr)
	assert.Equal(t, "kaboom", perr.Value)
	assert.NotEmpty(t, perr.Stack)
}

func TestPanicErrorUnwrapsErrorValues(t *testing.T) {
	cause := errors.New("inner")
	reg := subscriber.NewRegistry()
	subscriber.Subscribe[*fileSaved](reg, &recorder{panic: cause})

	errs := reg.Dispatch(context.Background(), &fileSaved{})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cause)
}

func TestDisableAndClear(t *testing.T) {
	reg := subscriber.NewRegistry()
	h := &recorder{}
	subscriber.Subscribe[*fileSaved](reg, h)

	reg.DisableAndClear()
	assert.True(t, reg.Disabled())
	assert.Equal(t, 0, reg.Len())
	assert.False(t, subscriber.Subscribe[*fileSaved](reg, h))
	assert.False(t, subscriber.Unsubscribe[*fileSaved](reg, h))
	reg.Clear()

	assert.Empty(t, reg.Dispatch(context.Background(), &fileSaved{}))
	assert.Empty(t, h.seen)
}

func TestClear(t *testing.T) {
	reg := subscriber.NewRegistry()
	subscriber.Subscribe[*fileSaved](reg, &recorder{})
	subscriber.Subscribe[*fileClosed](reg, &recorder{})
	reg.Clear()
	assert.Equal(t, 0, reg.Len())
	assert.False(t, reg.Disabled())
	assert.True(t, subscriber.Subscribe[*fileSaved](reg, &recorder{}))
}

func TestHandlerCanReenterRegistry(t *testing.T) {
	reg := subscriber.NewRegistry()
	late := &recorder{name: "late"}
	var self *subscriber.FuncHandler[*fileSaved]
	self = subscriber.Func(func(ctx context.Context, evt *fileSaved) error {
		subscriber.Subscribe[*fileSaved](reg, late)
		subscriber.Unsubscribe[*fileSaved](reg, self)
		return nil
	})
	subscriber.Subscribe[*fileSaved](reg, self)

	reg.Dispatch(context.Background(), &fileSaved{})
	assert.Empty(t, late.seen, "registered during dispatch, not part of the snapshot")

	reg.Dispatch(context.Background(), &fileSaved{})
	assert.Len(t, late.seen, 1)
	assert.Equal(t, 1, reg.Len())
}

func TestRemovedDuringDispatchIsSkipped(t *testing.T) {
	reg := subscriber.NewRegistry()
	victim := &recorder{name: "victim"}
	remover := subscriber.Func(func(context.Context, *fileSaved) error {
		subscriber.Unsubscribe[*fileSaved](reg, victim)
		return nil
	})
	subscriber.Subscribe[*fileSaved](reg, remover)
	subscriber.Subscribe[*fileSaved](reg, victim)

	reg.Dispatch(context.Background(), &fileSaved{})
	assert.Empty(t, victim.seen)
}

func TestWeakSubscriberDelivers(t *testing.T) {
	reg := subscriber.NewRegistry()
	h := &recorder{name: "weak"}
	require.True(t, subscriber.SubscribeWeak[*fileSaved](reg, h))

	reg.Dispatch(context.Background(), &fileSaved{})
	assert.Len(t, h.seen, 1)

	assert.True(t, subscriber.Unsubscribe[*fileSaved](reg, h))
	runtime.KeepAlive(h)
}

func TestWeakSubscriberPruned(t *testing.T) {
	reg := subscriber.NewRegistry()
	func() {
		h := &recorder{name: "gone"}
		require.True(t, subscriber.SubscribeWeak[*fileSaved](reg, h))
	}()
	require.Equal(t, 1, reg.Len())

	for i := 0; i < 5; i++ {
		runtime.GC()
	}

	errs := reg.Dispatch(context.Background(), &fileSaved{})
	assert.Empty(t, errs)
	assert.Equal(t, 0, reg.Len())

	// The slot is free again for a new registration.
	assert.True(t, subscriber.SubscribeWeak[*fileSaved](reg, &recorder{name: "new"}))
}

func TestFuncIgnoresOtherTypes(t *testing.T) {
	calls := 0
	h := subscriber.Func(func(context.Context, *fileSaved) error {
		calls++
		return nil
	})
	require.NoError(t, h.HandleEvent(context.Background(), &fileClosed{}))
	require.NoError(t, h.HandleEvent(context.Background(), &fileSaved{}))
	assert.Equal(t, 1, calls)
}
