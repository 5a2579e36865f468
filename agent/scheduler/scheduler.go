package scheduler

import (
	"fmt"
	"sync/atomic"

	"github.com/BaSui01/roundtable/agent/assessment"
	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/notify"
	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/agent/sidechannel"
	"github.com/BaSui01/roundtable/config"
	"github.com/BaSui01/roundtable/internal/metrics"
	"github.com/BaSui01/roundtable/internal/retry"
	"github.com/BaSui01/roundtable/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const instrumentationName = "github.com/BaSui01/roundtable/agent/scheduler"

// State 调度器状态
type State int32

const (
	StateIdle State = iota
	StateAssessing
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAssessing:
		return "ASSESSING"
	case StateDispatching:
		return "DISPATCHING"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options 调度器构造参数
type Options struct {
	// SessionID 为空时自动生成 UUID
	SessionID    string
	Participants []conversation.Participant
	Runtime      runtime.Runtime
	Config       config.ConversationConfig

	// Hub 为空时调度器自建并在 Close 时关闭
	Hub     *notify.Hub
	Metrics *metrics.Collector
	Tracer  trace.Tracer
	Logger  *zap.Logger
}

// Scheduler drives the rounds of one conversation session.
//
// A Scheduler has a single writer. Apart from State it is not safe for
// concurrent use; Session serializes access when several goroutines share one.
type Scheduler struct {
	id           string
	participants []conversation.Participant
	byName       map[string]conversation.Participant

	base runtime.Runtime
	rt   runtime.Runtime

	log         *conversation.Log
	cursors     map[string]int
	assessor    *assessment.Assessor
	detector    *sidechannel.Detector
	nominations nominations
	retryer     *retry.Retryer

	hub    *notify.Hub
	ownHub bool

	cfg         config.ConversationConfig
	mode        conversation.Mode
	fingerprint string

	lastSpeaker string
	rounds      int
	state       atomic.Int32

	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// New creates a scheduler. The configuration and participant list are
// validated up front and reported as INVALID_CONFIG.
func New(opts Options) (*Scheduler, error) {
	if opts.Runtime == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "runtime is required")
	}
	if len(opts.Participants) == 0 {
		return nil, types.NewError(types.ErrInvalidConfig, "at least one participant is required")
	}
	if err := conversation.ValidateParticipants(opts.Participants); err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "invalid participants").WithCause(err)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	mode, err := conversation.ParseMode(opts.Config.Mode)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, err.Error())
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	logger = logger.With(zap.String("component", "scheduler"), zap.String("session_id", id))

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	s := &Scheduler{
		id:           id,
		participants: append([]conversation.Participant(nil), opts.Participants...),
		byName:       make(map[string]conversation.Participant, len(opts.Participants)),
		base:         opts.Runtime,
		log:          conversation.NewLog(),
		cursors:      make(map[string]int, len(opts.Participants)),
		detector:     sidechannel.NewDetector(logger),
		hub:          opts.Hub,
		metrics:      opts.Metrics,
		tracer:       tracer,
		logger:       logger,
	}
	for _, p := range s.participants {
		s.byName[p.Name] = p
		s.cursors[p.Name] = -1
	}
	if s.hub == nil {
		s.hub = notify.NewHub(logger,
			notify.WithQueueSize(opts.Config.ObserverQueueSize),
			notify.WithDropHandler(s.metrics.RecordNotificationDropped),
		)
		s.ownHub = true
	}

	s.apply(opts.Config, mode)
	s.assessor = assessment.NewAssessor(s.rt, policyOf(opts.Config), opts.Config.Seed, logger)

	logger.Info("scheduler created",
		zap.String("mode", string(mode)),
		zap.Int("participants", len(s.participants)),
	)
	return s, nil
}

// apply installs cfg: runtime decoration, retry policy and mode.
func (s *Scheduler) apply(cfg config.ConversationConfig, mode conversation.Mode) {
	rt := s.base
	if cfg.RateLimit > 0 {
		rt = runtime.WithRateLimit(rt, rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}
	rt = runtime.WithTimeout(rt, runtime.Timeouts{
		Turn:       cfg.TurnTimeout,
		Assessment: cfg.AssessmentTimeout,
		Broadcast:  cfg.BroadcastTimeout,
	})

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.BroadcastAttempts
	policy.InitialDelay = cfg.BroadcastBackoff
	policy.Retryable = retryableBroadcast
	if policy.MaxDelay < cfg.BroadcastBackoff {
		policy.MaxDelay = cfg.BroadcastBackoff
	}

	s.rt = rt
	s.retryer = retry.New(policy, s.logger)
	s.cfg = cfg
	s.mode = mode
	s.fingerprint = cfg.Fingerprint()
	if s.assessor != nil {
		s.assessor.SetRuntime(rt)
		s.assessor.SetPolicy(policyOf(cfg))
	}
}

func policyOf(cfg config.ConversationConfig) assessment.Policy {
	return assessment.Policy{
		Threshold:     cfg.Threshold,
		UrgencyWeight: cfg.UrgencyWeight,
		GroupWeight:   cfg.GroupWeight,
	}
}

// ReloadIfChanged applies cfg when its fingerprint differs from the active
// configuration. Invalid configurations are logged and ignored. Call it
// between rounds.
func (s *Scheduler) ReloadIfChanged(cfg config.ConversationConfig) bool {
	if cfg.Fingerprint() == s.fingerprint {
		return false
	}
	if err := cfg.Validate(); err != nil {
		s.logger.Warn("ignoring invalid conversation config", zap.Error(err))
		return false
	}
	mode, err := conversation.ParseMode(cfg.Mode)
	if err != nil {
		s.logger.Warn("ignoring invalid conversation mode", zap.Error(err))
		return false
	}

	previous := s.mode
	s.apply(cfg, mode)
	s.logger.Info("conversation config reloaded",
		zap.String("previous_mode", string(previous)),
		zap.String("mode", string(mode)),
		zap.Float64("threshold", cfg.Threshold),
	)
	return true
}

// SessionID 返回会话标识
func (s *Scheduler) SessionID() string { return s.id }

// Mode returns the active dispatch mode.
func (s *Scheduler) Mode() conversation.Mode { return s.mode }

// State 返回当前状态，可并发调用
func (s *Scheduler) State() State { return State(s.state.Load()) }

func (s *Scheduler) setState(st State) { s.state.Store(int32(st)) }

// Hub returns the notification hub of the session.
func (s *Scheduler) Hub() *notify.Hub { return s.hub }

// Participants returns the participants in registration order.
func (s *Scheduler) Participants() []conversation.Participant {
	return append([]conversation.Participant(nil), s.participants...)
}

// Transcript returns a copy of the message log.
func (s *Scheduler) Transcript() []conversation.Message { return s.log.Messages() }

// Len returns the number of logged messages.
func (s *Scheduler) Len() int { return s.log.Len() }

// LastSpeaker returns the speaker recorded by the last single-speaker round.
func (s *Scheduler) LastSpeaker() string { return s.lastSpeaker }

// Assessment returns the latest assessment of a participant.
func (s *Scheduler) Assessment(name string) (assessment.Assessment, bool) {
	return s.assessor.Last(name)
}

// AppendAndGetIndex appends an external message, typically from the human
// moderator, and returns its index.
func (s *Scheduler) AppendAndGetIndex(sender, content string) (int, error) {
	return s.appendMessage(conversation.Message{Sender: sender, Content: content, Kind: conversation.KindChat})
}

// GetCursor returns the index of the last message a participant has seen,
// or -1 before its first turn.
func (s *Scheduler) GetCursor(name string) (int, error) {
	cursor, ok := s.cursors[name]
	if !ok {
		return -1, unknownParticipant(name)
	}
	return cursor, nil
}

// SetCursor moves a participant's cursor forward. Smaller values are ignored.
// Indices beyond the end of the log are clamped to the last message.
func (s *Scheduler) SetCursor(name string, idx int) error {
	current, ok := s.cursors[name]
	if !ok {
		return unknownParticipant(name)
	}
	if last := s.log.Len() - 1; idx > last {
		s.logger.Warn("cursor beyond end of log clamped",
			zap.String("participant", name),
			zap.Int("requested", idx),
			zap.Int("last_index", last),
		)
		idx = last
	}
	if idx < current {
		s.logger.Warn("ignoring cursor move backwards",
			zap.String("participant", name),
			zap.Int("current", current),
			zap.Int("requested", idx),
		)
		return nil
	}
	s.cursors[name] = idx
	return nil
}

// RegisterObserver subscribes fn to every message appended to the log.
func (s *Scheduler) RegisterObserver(fn func(sender, content string)) {
	s.hub.Register(fmt.Sprintf("observer-%d", s.hub.Len()+1), notify.Func(fn))
}

// Close releases the hub when the scheduler owns it.
func (s *Scheduler) Close() {
	if s.ownHub {
		s.hub.Close()
	}
}

func (s *Scheduler) appendMessage(msg conversation.Message) (int, error) {
	idx, err := s.log.AppendMessage(msg)
	if err != nil {
		return -1, err
	}
	stored, _ := s.log.At(idx)
	s.metrics.RecordMessage(string(stored.Kind))
	s.hub.Publish(notify.Notification{
		SessionID: s.id,
		Index:     stored.Index,
		Sender:    stored.Sender,
		Content:   stored.Content,
		Kind:      string(stored.Kind),
		Timestamp: stored.Timestamp,
	})
	return idx, nil
}

func unknownParticipant(name string) error {
	return types.NewError(types.ErrUnknownParticipant, fmt.Sprintf("unknown participant %q", name)).
		WithParticipant(name)
}
