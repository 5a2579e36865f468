package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/roundtable/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen []Notification
}

func (r *recorder) Observe(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestHub_DeliversInOrder(t *testing.T) {
	hub := NewHub(nil)
	rec := &recorder{}
	hub.Register("rec", rec)

	for i := 0; i < 10; i++ {
		hub.Publish(Notification{Index: i, Sender: "alice", Content: "hi"})
	}
	hub.Close()

	require.Len(t, rec.seen, 10)
	for i, n := range rec.seen {
		assert.Equal(t, i, n.Index)
	}
}

func TestHub_FuncAdapter(t *testing.T) {
	hub := NewHub(nil)
	var got []string
	hub.Register("fn", Func(func(sender, content string) {
		got = append(got, sender+": "+content)
	}))

	hub.Notify("bob", "hello")
	hub.Close()

	assert.Equal(t, []string{"bob: hello"}, got)
}

func TestHub_SlowObserverDoesNotBlock(t *testing.T) {
	var dropped atomic.Int32
	hub := NewHub(nil, WithQueueSize(1), WithDropHandler(func(string) { dropped.Add(1) }))

	release := make(chan struct{})
	hub.Register("slow", ObserverFunc(func(context.Context, Notification) error {
		<-release
		return nil
	}))
	fast := &recorder{}
	hub.Register("fast", fast)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			hub.Notify("alice", "msg")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a slow observer")
	}
	assert.Greater(t, dropped.Load(), int32(0))

	close(release)
	hub.Close()
	assert.Greater(t, fast.count(), 0)
}

func TestHub_RecoversFromFailingObservers(t *testing.T) {
	hub := NewHub(nil)
	hub.Register("panics", ObserverFunc(func(context.Context, Notification) error {
		panic("boom")
	}))
	hub.Register("errors", ObserverFunc(func(context.Context, Notification) error {
		return errors.New("nope")
	}))
	rec := &recorder{}
	hub.Register("ok", rec)

	hub.Notify("alice", "one")
	hub.Notify("alice", "two")

	testutil.AssertEventuallyTrue(t, func() bool { return rec.count() == 2 }, time.Second)
	hub.Close()
}

func TestHub_ClosedHubIgnoresCalls(t *testing.T) {
	hub := NewHub(nil)
	hub.Close()
	hub.Close()

	rec := &recorder{}
	hub.Register("late", rec)
	hub.Notify("alice", "ignored")

	assert.Equal(t, 0, hub.Len())
	assert.Equal(t, 0, rec.count())
}
