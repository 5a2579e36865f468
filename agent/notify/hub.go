// Package notify fans transcript updates out to registered observers
// without ever blocking the conversation.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultQueueSize is the per-observer buffer used when none is configured.
const DefaultQueueSize = 64

// Notification is one transcript update.
type Notification struct {
	SessionID string    `json:"session_id,omitempty"`
	Index     int       `json:"index"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives notifications. Errors are logged and otherwise ignored.
type Observer interface {
	Observe(ctx context.Context, n Notification) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, n Notification) error

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Func adapts a plain (sender, content) callback to Observer.
func Func(fn func(sender, content string)) Observer {
	return ObserverFunc(func(_ context.Context, n Notification) error {
		fn(n.Sender, n.Content)
		return nil
	})
}

// Option configures a Hub.
type Option func(*Hub)

// WithQueueSize sets the per-observer buffer size.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithDropHandler is called whenever a notification is dropped for an observer.
func WithDropHandler(fn func(observer string)) Option {
	return func(h *Hub) { h.onDrop = fn }
}

type subscriber struct {
	name  string
	obs   Observer
	queue chan Notification
}

// Hub delivers notifications to observers. Each observer has its own bounded
// queue drained by its own goroutine.
type Hub struct {
	mu        sync.RWMutex
	subs      []*subscriber
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	queueSize int
	onDrop    func(observer string)
	logger    *zap.Logger
}

// NewHub creates a notification hub.
func NewHub(logger *zap.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		ctx:       ctx,
		cancel:    cancel,
		queueSize: DefaultQueueSize,
		logger:    logger.With(zap.String("component", "notify_hub")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds an observer. name is used in logs only. Registering on a
// closed hub is a no-op.
func (h *Hub) Register(name string, obs Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || obs == nil {
		return
	}
	if name == "" {
		name = fmt.Sprintf("observer-%d", len(h.subs)+1)
	}
	sub := &subscriber{name: name, obs: obs, queue: make(chan Notification, h.queueSize)}
	h.subs = append(h.subs, sub)

	h.wg.Add(1)
	go h.drain(sub)
}

// Len returns the number of registered observers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Notify enqueues a plain (sender, content) notification.
func (h *Hub) Notify(sender, content string) {
	h.Publish(Notification{Sender: sender, Content: content, Timestamp: time.Now()})
}

// Publish enqueues n for every observer. It never blocks: when an observer's
// queue is full the notification is dropped for that observer.
func (h *Hub) Publish(n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, sub := range h.subs {
		select {
		case sub.queue <- n:
		default:
			h.logger.Warn("observer queue full, dropping notification",
				zap.String("observer", sub.name),
				zap.Int("index", n.Index),
			)
			if h.onDrop != nil {
				h.onDrop(sub.name)
			}
		}
	}
}

func (h *Hub) drain(sub *subscriber) {
	defer h.wg.Done()
	for n := range sub.queue {
		h.deliver(sub, n)
	}
}

func (h *Hub) deliver(sub *subscriber, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("observer panicked",
				zap.String("observer", sub.name),
				zap.Any("panic", r),
			)
		}
	}()
	if err := sub.obs.Observe(h.ctx, n); err != nil {
		h.logger.Warn("observer failed",
			zap.String("observer", sub.name),
			zap.Error(err),
		)
	}
}

// Close stops accepting notifications, delivers what is already queued and
// waits for the observer goroutines to exit.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		for _, sub := range h.subs {
			close(sub.queue)
		}
		h.mu.Unlock()

		h.wg.Wait()
		h.cancel()
	})
}
