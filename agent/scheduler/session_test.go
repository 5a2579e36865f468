package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/notify"
	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/internal/metrics"
	"github.com/BaSui01/roundtable/testutil"
	"github.com/BaSui01/roundtable/testutil/fixtures"
	"github.com/BaSui01/roundtable/testutil/mocks"
	"github.com/BaSui01/roundtable/types"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type endingRuntime struct {
	*mocks.MockRuntime
	mu    sync.Mutex
	ended []string
}

func (r *endingRuntime) EndSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, sessionID)
	return nil
}

func newSession(t *testing.T, rt runtime.Runtime, mode conversation.Mode) *Session {
	t.Helper()
	sess, err := NewSession(Options{
		SessionID:    "s-1",
		Participants: fixtures.Panel(),
		Runtime:      rt,
		Config:       testConfig(mode),
	})
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func TestSession_ConcurrentAppendsAreSerialized(t *testing.T) {
	sess := newSession(t, mocks.NewMockRuntime(), conversation.ModeSequential)

	const writers = 8
	var wg sync.WaitGroup
	indices := make(chan int, writers*10)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				idx, err := sess.AppendAndGetIndex(conversation.HumanSender, "ping")
				if err == nil {
					indices <- idx
				}
			}
		}()
	}
	wg.Wait()
	close(indices)

	seen := make(map[int]bool)
	for idx := range indices {
		assert.False(t, seen[idx], "index %d assigned twice", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, writers*10)

	msgs, err := sess.Transcript()
	require.NoError(t, err)
	for i, m := range msgs {
		assert.Equal(t, i, m.Index)
	}
}

func TestSession_RoundAndAccessors(t *testing.T) {
	rt := bobThenAlice().
		WithTurns("bob", "I nominate alice as secretary.").
		WithTurns("alice", "Sure, I accept the nomination.")
	sess := newSession(t, rt, conversation.ModeSequential)
	ctx := testutil.TestContext(t)

	var (
		mu   sync.Mutex
		seen []notify.Notification
	)
	require.NoError(t, sess.Subscribe("recorder", notify.ObserverFunc(func(_ context.Context, n notify.Notification) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, n)
		return nil
	})))

	_, err := sess.AppendAndGetIndex(conversation.HumanSender, "Who takes minutes?")
	require.NoError(t, err)
	out, err := sess.RunRound(ctx, "Who takes minutes?")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, out.Speakers())

	secretary, pending, err := sess.Secretary()
	require.NoError(t, err)
	assert.Empty(t, secretary)
	require.NotNil(t, pending)
	assert.Equal(t, "alice", pending.Nominee)

	_, err = sess.RunRound(ctx, "Who takes minutes?")
	require.NoError(t, err)
	secretary, pending, err = sess.Secretary()
	require.NoError(t, err)
	assert.Equal(t, "alice", secretary)
	assert.Nil(t, pending)

	cursor, err := sess.GetCursor("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, cursor)
	require.NoError(t, sess.SetCursor("carol", 2))
	cursor, err = sess.GetCursor("carol")
	require.NoError(t, err)
	assert.Equal(t, 2, cursor)

	a, ok, err := sess.Assessment("bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 8.0, a.Priority)

	display, err := sess.DisplayString()
	require.NoError(t, err)
	assert.Equal(t, "human: Who takes minutes?\nbob: I nominate alice as secretary.\nalice: Sure, I accept the nomination.", display)

	testutil.AssertEventuallyTrue(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second)
	mu.Lock()
	assert.Equal(t, "s-1", seen[2].SessionID)
	assert.Equal(t, 2, seen[2].Index)
	assert.Equal(t, string(conversation.KindChat), seen[2].Kind)
	mu.Unlock()
}

func TestSession_ClosedOperationsFail(t *testing.T) {
	rt := &endingRuntime{MockRuntime: mocks.NewMockRuntime()}
	sess := newSession(t, rt, conversation.ModeHybrid)

	sess.Close()
	sess.Close()

	_, err := sess.AppendAndGetIndex(conversation.HumanSender, "late")
	assert.True(t, types.IsErrorCode(err, types.ErrSessionClosed))
	_, err = sess.RunRound(context.Background(), "")
	assert.True(t, types.IsErrorCode(err, types.ErrSessionClosed))
	_, err = sess.GetCursor("alice")
	assert.True(t, types.IsErrorCode(err, types.ErrSessionClosed))
	assert.True(t, types.IsErrorCode(sess.RegisterObserver(func(string, string) {}), types.ErrSessionClosed))
	_, err = sess.ReloadIfChanged(testConfig(conversation.ModeAllSpeak))
	assert.True(t, types.IsErrorCode(err, types.ErrSessionClosed))

	rt.mu.Lock()
	defer rt.mu.Unlock()
	assert.Equal(t, []string{"s-1"}, rt.ended)
}

func TestSession_StateVisibleDuringRound(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	rt := bobThenAlice().WithTurnFunc(func(ctx context.Context, participant, _ string) (*runtime.Output, error) {
		close(entered)
		<-release
		return runtime.TextOutput(participant + " finally answers."), nil
	})
	sess := newSession(t, rt, conversation.ModePurePriority)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = sess.RunRound(context.Background(), "")
	}()

	<-entered
	assert.Equal(t, StateDispatching, sess.State())
	close(release)
	<-done
	assert.Equal(t, StateIdle, sess.State())
}

func TestSession_ReloadIfChanged(t *testing.T) {
	sess := newSession(t, bobThenAlice(), conversation.ModeSequential)

	changed, err := sess.ReloadIfChanged(testConfig(conversation.ModeSequential))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = sess.ReloadIfChanged(testConfig(conversation.ModeAllSpeak))
	require.NoError(t, err)
	assert.True(t, changed)

	out, err := sess.RunRound(testutil.TestContext(t), "")
	require.NoError(t, err)
	assert.Equal(t, conversation.ModeAllSpeak, out.Mode)
	assert.Len(t, out.Spoken, 2)
}

func TestManager_Lifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("roundtable", reg, nil)
	m := NewManager(collector, nil)

	opts := Options{
		SessionID:    "room-1",
		Participants: fixtures.Panel(),
		Runtime:      mocks.NewMockRuntime(),
		Config:       testConfig(conversation.ModeHybrid),
	}
	sess, err := m.Open(opts)
	require.NoError(t, err)
	assert.Equal(t, "room-1", sess.ID())

	_, err = m.Open(opts)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))

	opts.SessionID = ""
	other, err := m.Open(opts)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Contains(t, m.List(), "room-1")
	assert.Contains(t, m.List(), other.ID())

	got, ok := m.Get("room-1")
	require.True(t, ok)
	assert.Same(t, sess, got)

	require.NoError(t, m.CloseSession("room-1"))
	_, ok = m.Get("room-1")
	assert.False(t, ok)
	assert.True(t, types.IsErrorCode(m.CloseSession("room-1"), types.ErrSessionClosed))

	other.Close()
	assert.Equal(t, 0, m.Len())

	expected := `
# HELP roundtable_active_sessions Number of open conversation sessions
# TYPE roundtable_active_sessions gauge
roundtable_active_sessions 0
`
	require.NoError(t, promtestutil.GatherAndCompare(reg, strings.NewReader(expected), "roundtable_active_sessions"))
}

func TestManager_CloseClosesAll(t *testing.T) {
	m := NewManager(nil, nil)
	for i := 0; i < 3; i++ {
		_, err := m.Open(Options{
			Participants: fixtures.Panel(),
			Runtime:      mocks.NewMockRuntime(),
			Config:       testConfig(conversation.ModeSequential),
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, m.Len())

	m.Close()
	assert.Equal(t, 0, m.Len())
}
