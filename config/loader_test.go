// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "hybrid", cfg.Conversation.Mode)
	assert.Equal(t, 20.0, cfg.Conversation.Threshold)
	assert.Equal(t, 0.6, cfg.Conversation.UrgencyWeight)
	assert.Equal(t, 0.4, cfg.Conversation.GroupWeight)
	assert.Equal(t, 10, cfg.Conversation.MinResponseLength)
	assert.Equal(t, 3, cfg.Conversation.BroadcastAttempts)

	assert.Equal(t, "none", cfg.Archive.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestDefaultConversationConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConversationConfig().Validate())
}

// --- Loader 测试 ---

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roundtable.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "hybrid", cfg.Conversation.Mode)
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := writeConfig(t, `
conversation:
  mode: sequential
  threshold: 25
  turn_timeout: 5s
participants:
  - name: alice
    expertise: databases
  - name: bob
    expertise: frontend
log:
  level: debug
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "sequential", cfg.Conversation.Mode)
	assert.Equal(t, 25.0, cfg.Conversation.Threshold)
	assert.Equal(t, 5*time.Second, cfg.Conversation.TurnTimeout)
	// 未指定的字段保留默认值
	assert.Equal(t, 0.6, cfg.Conversation.UrgencyWeight)
	require.Len(t, cfg.Participants, 2)
	assert.Equal(t, "alice", cfg.Participants[0].Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, "hybrid", cfg.Conversation.Mode)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "conversation: [unclosed")
	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("ROUNDTABLE_CONVERSATION_MODE", "all_speak")
	t.Setenv("ROUNDTABLE_CONVERSATION_THRESHOLD", "12.5")
	t.Setenv("ROUNDTABLE_CONVERSATION_TURN_TIMEOUT", "3s")
	t.Setenv("ROUNDTABLE_LOG_OUTPUT_PATHS", "stdout, /tmp/rt.log")
	t.Setenv("ROUNDTABLE_TELEMETRY_ENABLED", "true")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "all_speak", cfg.Conversation.Mode)
	assert.Equal(t, 12.5, cfg.Conversation.Threshold)
	assert.Equal(t, 3*time.Second, cfg.Conversation.TurnTimeout)
	assert.Equal(t, []string{"stdout", "/tmp/rt.log"}, cfg.Log.OutputPaths)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("RT_CONVERSATION_SEED", "77")
	cfg, err := NewLoader().WithEnvPrefix("RT").Load()
	require.NoError(t, err)
	assert.Equal(t, int64(77), cfg.Conversation.Seed)
}

func TestLoader_BadEnvValue(t *testing.T) {
	t.Setenv("ROUNDTABLE_CONVERSATION_THRESHOLD", "lots")
	_, err := NewLoader().Load()
	require.Error(t, err)
}

func TestLoader_Validator(t *testing.T) {
	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err, "default config has no participants")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))
}

// --- 校验测试 ---

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Participants = []conversation.Participant{{Name: "alice"}, {Name: "bob"}}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"bad mode", func(c *Config) { c.Conversation.Mode = "round_robin" }, false},
		{"dashed mode", func(c *Config) { c.Conversation.Mode = "pure-priority" }, true},
		{"negative weight", func(c *Config) { c.Conversation.UrgencyWeight = -1 }, false},
		{"zero weights", func(c *Config) { c.Conversation.UrgencyWeight, c.Conversation.GroupWeight = 0, 0 }, false},
		{"threshold too high", func(c *Config) { c.Conversation.Threshold = 51 }, false},
		{"no attempts", func(c *Config) { c.Conversation.BroadcastAttempts = 0 }, false},
		{"duplicate participant", func(c *Config) { c.Participants = append(c.Participants, conversation.Participant{Name: "alice"}) }, false},
		{"reserved participant", func(c *Config) { c.Participants = []conversation.Participant{{Name: "human"}} }, false},
		{"no participants", func(c *Config) { c.Participants = nil }, false},
		{"unknown backend", func(c *Config) { c.Archive.Backend = "s3" }, false},
		{"bad driver", func(c *Config) { c.Archive.Backend = "database"; c.Database.Driver = "oracle" }, false},
		{"bad sample rate", func(c *Config) { c.Telemetry.SampleRate = 2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig), "got %v", err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "rt", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rt sslmode=disable", pg.DSN())

	my := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "rt"}
	assert.Equal(t, "u:p@tcp(db:3306)/rt?parseTime=true", my.DSN())

	lite := DatabaseConfig{Driver: "sqlite", Name: "file.db"}
	assert.Equal(t, "file.db", lite.DSN())
}
