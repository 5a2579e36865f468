package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/roundtable/agent/assessment"
	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/notify"
	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/config"
	"github.com/BaSui01/roundtable/types"
	"go.uber.org/zap"
)

// sessionTeardownTimeout bounds the runtime's EndSession call on Close.
const sessionTeardownTimeout = 5 * time.Second

// Session owns one Scheduler and runs every operation on a single goroutine.
// It is safe for concurrent use.
type Session struct {
	sched *Scheduler
	ops   chan func()
	quit  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
	onClose   func(id string)
	logger    *zap.Logger
}

// NewSession creates a scheduler from opts and starts its session loop.
func NewSession(opts Options) (*Session, error) {
	sched, err := New(opts)
	if err != nil {
		return nil, err
	}
	return startSession(sched), nil
}

func startSession(sched *Scheduler) *Session {
	s := &Session{
		sched:  sched,
		ops:    make(chan func()),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: sched.logger,
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		default:
		}
		select {
		case op := <-s.ops:
			op()
		case <-s.quit:
			return
		}
	}
}

// submit runs fn on the session goroutine and waits for it.
func (s *Session) submit(ctx context.Context, fn func(*Scheduler)) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn(s.sched)
	}
	select {
	case s.ops <- op:
	case <-s.quit:
		return s.closedError()
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (s *Session) closedError() error {
	return types.NewError(types.ErrSessionClosed, "session "+s.ID()+" is closed")
}

// ID 返回会话标识
func (s *Session) ID() string { return s.sched.SessionID() }

// State is safe to call while a round is running.
func (s *Session) State() State { return s.sched.State() }

// AppendAndGetIndex appends an external message and returns its index.
func (s *Session) AppendAndGetIndex(sender, content string) (int, error) {
	var (
		idx    int
		appErr error
	)
	if err := s.submit(context.Background(), func(sc *Scheduler) {
		idx, appErr = sc.AppendAndGetIndex(sender, content)
	}); err != nil {
		return -1, err
	}
	return idx, appErr
}

// RunRound runs one round. Cancelling ctx aborts the round between turns.
func (s *Session) RunRound(ctx context.Context, topic string) (RoundOutcome, error) {
	var (
		out      RoundOutcome
		roundErr error
	)
	if err := s.submit(ctx, func(sc *Scheduler) {
		out, roundErr = sc.RunRound(ctx, topic)
	}); err != nil {
		return RoundOutcome{}, err
	}
	return out, roundErr
}

// GetCursor returns a participant's cursor.
func (s *Session) GetCursor(name string) (int, error) {
	var (
		cursor int
		getErr error
	)
	if err := s.submit(context.Background(), func(sc *Scheduler) {
		cursor, getErr = sc.GetCursor(name)
	}); err != nil {
		return -1, err
	}
	return cursor, getErr
}

// SetCursor moves a participant's cursor forward.
func (s *Session) SetCursor(name string, idx int) error {
	var setErr error
	if err := s.submit(context.Background(), func(sc *Scheduler) {
		setErr = sc.SetCursor(name, idx)
	}); err != nil {
		return err
	}
	return setErr
}

// RegisterObserver subscribes fn to every appended message.
func (s *Session) RegisterObserver(fn func(sender, content string)) error {
	return s.submit(context.Background(), func(sc *Scheduler) {
		sc.RegisterObserver(fn)
	})
}

// Subscribe registers a named observer that receives full notifications.
func (s *Session) Subscribe(name string, obs notify.Observer) error {
	return s.submit(context.Background(), func(sc *Scheduler) {
		sc.Hub().Register(name, obs)
	})
}

// ReloadIfChanged applies cfg between rounds when it differs from the active config.
func (s *Session) ReloadIfChanged(cfg config.ConversationConfig) (bool, error) {
	var changed bool
	err := s.submit(context.Background(), func(sc *Scheduler) {
		changed = sc.ReloadIfChanged(cfg)
	})
	return changed, err
}

// Transcript returns a copy of the message log.
func (s *Session) Transcript() ([]conversation.Message, error) {
	var msgs []conversation.Message
	err := s.submit(context.Background(), func(sc *Scheduler) {
		msgs = sc.Transcript()
	})
	return msgs, err
}

// DisplayString renders the transcript as "sender: content" lines.
func (s *Session) DisplayString() (string, error) {
	var out string
	err := s.submit(context.Background(), func(sc *Scheduler) {
		out = sc.log.DisplayString()
	})
	return out, err
}

// Assessment returns the latest assessment of a participant.
func (s *Session) Assessment(name string) (assessment.Assessment, bool, error) {
	var (
		a  assessment.Assessment
		ok bool
	)
	err := s.submit(context.Background(), func(sc *Scheduler) {
		a, ok = sc.Assessment(name)
	})
	return a, ok, err
}

// Secretary returns the accepted secretary and the open nomination, if any.
func (s *Session) Secretary() (string, *Nomination, error) {
	var (
		secretary string
		pending   *Nomination
	)
	err := s.submit(context.Background(), func(sc *Scheduler) {
		secretary = sc.Secretary()
		if n, ok := sc.PendingNomination(); ok {
			pending = &n
		}
	})
	return secretary, pending, err
}

// Close stops the session loop after the running operation, closes the
// notification hub and ends the session in the runtime. Later calls return
// SESSION_CLOSED.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.sched.Close()

		if ender, ok := s.sched.base.(runtime.SessionEnder); ok {
			ctx, cancel := context.WithTimeout(context.Background(), sessionTeardownTimeout)
			if err := ender.EndSession(ctx, s.ID()); err != nil {
				s.logger.Warn("failed to end runtime session", zap.Error(err))
			}
			cancel()
		}
		if s.onClose != nil {
			s.onClose(s.ID())
		}
		s.logger.Info("session closed")
	})
}
