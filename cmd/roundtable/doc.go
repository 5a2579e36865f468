// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 Roundtable 命令行程序入口。

# 概述

cmd/roundtable 在标准输入上运行一场多方 AI 对话：每条人类消息追加到
对话记录后触发一轮调度，调度器按配置的模式（hybrid、all_speak、
sequential、pure_priority）决定发言者，并把新增记录打印到标准输出。
参与者响应来自 YAML 脚本运行时。

# 主要能力

  - 子命令：run（启动对话）、version、help
  - 配置加载：默认值 → YAML 文件 → 环境变量 → --mode 覆盖
  - 配置热重载：--watch 监听文件变更，仅在对话配置指纹变化时生效
  - 可选 HTTP 服务：/healthz、/metrics（Prometheus）、/ws（实时记录）
  - 对话归档：memory、redis、database 后端
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭会话（排空通知）→ 关闭归档 → 关闭遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
