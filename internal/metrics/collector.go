// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 对话调度指标收集器。nil Collector 的所有方法均为空操作。
type Collector struct {
	// 轮次指标
	roundsTotal   *prometheus.CounterVec
	roundDuration *prometheus.HistogramVec

	// 发言指标
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec

	// 评估指标
	assessmentsTotal   *prometheus.CounterVec
	assessmentPriority prometheus.Histogram

	// 对话记录指标
	messagesAppended  *prometheus.CounterVec
	sideChannelEvents *prometheus.CounterVec

	// 广播与通知指标
	broadcastFailures    prometheus.Counter
	notificationsDropped *prometheus.CounterVec

	// 会话指标
	activeSessions prometheus.Gauge

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到默认 Registry。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.roundsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total number of scheduling rounds",
		},
		[]string{"mode", "outcome"},
	)

	c.roundDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Scheduling round duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	c.turnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of participant turns",
		},
		[]string{"mode", "status"},
	)

	c.turnDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Participant turn duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	c.assessmentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Total number of motivation assessments",
		},
		[]string{"result"},
	)

	c.assessmentPriority = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_priority",
			Help:      "Priority produced by assessments (0 when not motivated)",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		},
	)

	c.messagesAppended = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_appended_total",
			Help:      "Total number of messages appended to transcripts",
		},
		[]string{"kind"},
	)

	c.sideChannelEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_channel_events_total",
			Help:      "Total number of side-channel messages observed",
		},
		[]string{"type"},
	)

	c.broadcastFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_broadcast_failures_total",
			Help:      "Memory updates that failed after all retries",
		},
	)

	c.notificationsDropped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications dropped because an observer queue was full",
		},
		[]string{"observer"},
	)

	c.activeSessions = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open conversation sessions",
		},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordRound 记录一次调度轮次，outcome 为 spoken / no_participation / aborted
func (c *Collector) RecordRound(mode, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.roundsTotal.WithLabelValues(mode, outcome).Inc()
	c.roundDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordTurn 记录一次发言，status 为 ok / retried / fallback
func (c *Collector) RecordTurn(mode, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.turnsTotal.WithLabelValues(mode, status).Inc()
	c.turnDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordAssessment 记录一次评估结果
func (c *Collector) RecordAssessment(fallback bool, priority float64) {
	if c == nil {
		return
	}
	result := "ok"
	if fallback {
		result = "fallback"
	}
	c.assessmentsTotal.WithLabelValues(result).Inc()
	c.assessmentPriority.Observe(priority)
}

// RecordMessage 记录一条追加到对话记录的消息
func (c *Collector) RecordMessage(kind string) {
	if c == nil {
		return
	}
	c.messagesAppended.WithLabelValues(kind).Inc()
}

// RecordSideChannel 记录一条私信事件
func (c *Collector) RecordSideChannel(eventType string) {
	if c == nil {
		return
	}
	c.sideChannelEvents.WithLabelValues(eventType).Inc()
}

// RecordBroadcastFailure 记录一次最终失败的记忆广播
func (c *Collector) RecordBroadcastFailure() {
	if c == nil {
		return
	}
	c.broadcastFailures.Inc()
}

// RecordNotificationDropped 记录一次被丢弃的通知
func (c *Collector) RecordNotificationDropped(observer string) {
	if c == nil {
		return
	}
	c.notificationsDropped.WithLabelValues(observer).Inc()
}

// SessionOpened 活跃会话数加一
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

// SessionClosed 活跃会话数减一
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}
