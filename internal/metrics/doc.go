// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的对话调度指标采集。

# 概述

Collector 通过 promauto.With 注册到调用方提供的 Registry
（为 nil 时使用默认 Registry），便于测试隔离。
nil *Collector 的所有记录方法均为空操作，调度器可以不接入指标。

# 指标

  - rounds_total / round_duration_seconds：按 mode 与 outcome 分组。
  - turns_total / turn_duration_seconds：按 mode 与 status（ok/retried/fallback）分组。
  - assessments_total / assessment_priority：评估结果与优先级分布。
  - messages_appended_total、side_channel_events_total。
  - memory_broadcast_failures_total、notifications_dropped_total。
  - active_sessions：当前打开的会话数。
*/
package metrics
