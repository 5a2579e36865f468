// =============================================================================
// 📦 Roundtable 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Conversation: DefaultConversationConfig(),
		Archive:      DefaultArchiveConfig(),
		Redis:        DefaultRedisConfig(),
		Database:     DefaultDatabaseConfig(),
		Server:       DefaultServerConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultConversationConfig 返回默认对话调度配置
func DefaultConversationConfig() ConversationConfig {
	return ConversationConfig{
		Mode:                 "hybrid",
		Threshold:            20,
		UrgencyWeight:        0.6,
		GroupWeight:          0.4,
		MinResponseLength:    10,
		TurnTimeout:          90 * time.Second,
		AssessmentTimeout:    30 * time.Second,
		BroadcastTimeout:     10 * time.Second,
		BroadcastAttempts:    3,
		BroadcastBackoff:     200 * time.Millisecond,
		BroadcastConcurrency: 4,
		Seed:                 1,
		RateBurst:            1,
		ObserverQueueSize:    64,
	}
}

// DefaultArchiveConfig 返回默认归档配置
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Backend:   "none",
		KeyPrefix: "roundtable:transcript:",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "roundtable",
		Name:            "roundtable.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// DefaultServerConfig 返回默认 HTTP 服务配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:         false,
		Addr:            ":9091",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "roundtable",
		SampleRate:   0.1,
	}
}
