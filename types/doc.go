// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 roundtable 的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。对话核心的错误分类
（InvalidMessage、AssessmentFailure、TurnFailure、SideChannelParseFailure）
统一以 Error / ErrorCode 表达，上层通过 errors.Is / errors.As 或
IsErrorCode 判断。

# 传播约定

只有 INVALID_MESSAGE 以及会话、配置类的契约错误会返回给调用方；
评估、发言与旁路解析失败都在调度器内部吸收并记录日志。
*/
package types
