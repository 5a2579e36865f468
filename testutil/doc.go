// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 roundtable 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor，用于通知扇出等异步路径
  - 对话记录辅助: Senders / Contents

# 子包

  - testutil/mocks: MockRuntime，可编程的 Agent Runtime 模拟实现，
    支持按参与者排队响应、错误注入与调用记录
  - testutil/fixtures: 预置参与者与评分文本
*/
package testutil
