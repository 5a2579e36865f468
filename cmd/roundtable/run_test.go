package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/agent/scheduler"
	"github.com/BaSui01/roundtable/config"
	"github.com/BaSui01/roundtable/testutil"
	"github.com/BaSui01/roundtable/testutil/fixtures"
	"github.com/BaSui01/roundtable/testutil/mocks"
)

const panelScript = `
participants:
  alice:
    expertise: distributed systems
    assessments:
      - |
        SELF_IMPORTANCE: 5
        PERCEIVED_GAP: 5
        UNIQUE_PERSPECTIVE: 5
        EMOTIONAL_INVESTMENT: 5
        EXPERTISE_RELEVANCE: 5
        URGENCY: 8
        GROUP_IMPORTANCE: 8
    turns:
      - text: Alice would start by sharding the write path.
  bob:
    assessments:
      - |
        SELF_IMPORTANCE: 0
        PERCEIVED_GAP: 0
        UNIQUE_PERSPECTIVE: 0
        EMOTIONAL_INVESTMENT: 0
        EXPERTISE_RELEVANCE: 0
        URGENCY: 0
        GROUP_IMPORTANCE: 0
    turns:
      - text: unused
`

func TestParseRunFlags(t *testing.T) {
	opts, err := parseRunFlags([]string{"--script", "panel.yaml", "--mode", "all-speak"})
	require.NoError(t, err)
	assert.Equal(t, "panel.yaml", opts.scriptPath)
	assert.Equal(t, "all-speak", opts.mode)

	_, err = parseRunFlags(nil)
	assert.ErrorContains(t, err, "--script")
	_, err = parseRunFlags([]string{"--script", "x.yaml", "--watch"})
	assert.ErrorContains(t, err, "--config")
}

func TestOverrideMode(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, overrideMode(cfg, "Pure-Priority"))
	assert.Equal(t, string(conversation.ModePurePriority), cfg.Conversation.Mode)

	require.NoError(t, overrideMode(cfg, ""))
	assert.Equal(t, string(conversation.ModePurePriority), cfg.Conversation.Mode)
	assert.Error(t, overrideMode(cfg, "round-robin"))
}

func TestApplyReload(t *testing.T) {
	sess, err := scheduler.NewSession(scheduler.Options{
		Participants: fixtures.Panel(),
		Runtime:      mocks.NewMockRuntime(),
		Config:       config.DefaultConversationConfig(),
	})
	require.NoError(t, err)
	defer sess.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	next := config.DefaultConfig()
	next.Conversation.Threshold = 25
	applyReload(sess, "sequential", next, logger)
	assert.Equal(t, string(conversation.ModeSequential), next.Conversation.Mode)
	assert.Equal(t, 1, logs.FilterMessage("conversation config applied").Len())

	next = config.DefaultConfig()
	next.Conversation.Threshold = 30
	applyReload(sess, "round-robin", next, logger)
	warnings := logs.FilterMessage("mode override not applied to reloaded config").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Equal(t, 2, logs.FilterMessage("conversation config applied").Len())
}

func TestParticipantsFromScript(t *testing.T) {
	script := &runtime.Script{Participants: map[string]runtime.ScriptParticipant{
		"zoe":   {},
		"alice": {Expertise: "databases"},
	}}
	ps := participantsFromScript(script)
	require.Len(t, ps, 2)
	assert.Equal(t, conversation.Participant{Name: "alice", Expertise: "databases"}, ps[0])
	assert.Equal(t, "zoe", ps[1].Name)
}

func TestInitLogger(t *testing.T) {
	logger := initLogger(config.LogConfig{Level: "debug", Format: "json", OutputPaths: []string{"stdout"}})
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger = initLogger(config.LogConfig{Level: "bogus", Format: "console"})
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestConverse(t *testing.T) {
	rt := mocks.NewMockRuntime().
		WithAssessment("bob", mocks.Ratings(5, 8, 8)).
		WithTurns("bob", "Bob thinks we should ship it.")
	cfg := config.DefaultConversationConfig()
	cfg.Mode = string(conversation.ModeSequential)
	sess, err := scheduler.NewSession(scheduler.Options{
		SessionID:    "cli",
		Participants: fixtures.Panel(),
		Runtime:      rt,
		Config:       cfg,
	})
	require.NoError(t, err)
	defer sess.Close()

	in := strings.NewReader("Should we ship?\n\n   \n/transcript\n/quit\nignored\n")
	var out bytes.Buffer
	require.NoError(t, converse(testutil.TestContext(t), sess, in, &out))

	assert.Equal(t,
		"Session cli. Type a message, /transcript or /quit.\n"+
			"bob: Bob thinks we should ship it.\n"+
			"human: Should we ship?\nbob: Bob thinks we should ship it.\n",
		out.String())
}

func TestConverse_NoParticipation(t *testing.T) {
	sess, err := scheduler.NewSession(scheduler.Options{
		Participants: fixtures.Panel(),
		Runtime:      mocks.NewMockRuntime(),
		Config:       config.DefaultConversationConfig(),
	})
	require.NoError(t, err)
	defer sess.Close()

	var out bytes.Buffer
	require.NoError(t, converse(testutil.TestContext(t), sess, strings.NewReader("hello?\n"), &out))
	assert.Contains(t, out.String(), "(nobody wants to add anything)")
}

func TestNewApp_ServesHealthMetricsAndArchive(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Participants = fixtures.Panel()
	cfg.Conversation.Mode = string(conversation.ModePurePriority)
	cfg.Archive.Backend = "memory"
	cfg.Server.Enabled = true
	cfg.Server.Addr = "127.0.0.1:0"

	rt := mocks.NewMockRuntime().WithAssessment("carol", mocks.Ratings(6, 6, 6))
	a, err := newApp(testutil.TestContext(t), cfg, rt, zap.NewNop())
	require.NoError(t, err)
	defer a.close(context.Background())

	_, err = a.session.AppendAndGetIndex(conversation.HumanSender, "kick off")
	require.NoError(t, err)
	_, err = a.session.RunRound(testutil.TestContext(t), "kick off")
	require.NoError(t, err)

	testutil.AssertEventuallyTrue(t, func() bool {
		entries, err := a.store.List(context.Background(), a.session.ID())
		return err == nil && len(entries) == 2
	}, 2*time.Second)

	base := "http://" + a.httpSrv.Addr()
	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, a.session.ID(), health["session_id"])
	assert.Equal(t, "ok", health["archive"])

	metricsResp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "roundtable_rounds_total")
	assert.Contains(t, string(body), "roundtable_active_sessions 1")
}

func TestRunConversation_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "panel.yaml")
	require.NoError(t, os.WriteFile(scriptPath, []byte(panelScript), 0o600))
	configPath := filepath.Join(dir, "roundtable.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("conversation:\n  mode: all_speak\nlog:\n  level: error\n"), 0o600))

	var out bytes.Buffer
	err := runConversation(
		[]string{"--config", configPath, "--script", scriptPath, "--mode", "sequential"},
		strings.NewReader("How do we scale writes?\n/quit\n"),
		&out,
	)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "alice: Alice would start by sharding the write path.")
}
