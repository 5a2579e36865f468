// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package runtime 定义对话核心访问外部 Agent Runtime 的最小接口。

# 核心接口

  - Runtime：GenerateTurn / GenerateAssessment / BroadcastMemoryUpdate
  - TurnResult：发言输出的和类型，变体为 Text、ToolInvocation、Empty，
    调度器以 type switch 匹配，而不是探测响应字段

# 装饰器

  - WithTimeout：为每类调用设置应用层超时，超时视同普通失败
  - WithRateLimit：基于 golang.org/x/time/rate 的调用限速

# 内置实现

  - Scripted：回放 YAML 脚本的确定性 Runtime，供 CLI 演示与集成测试使用
*/
package runtime
