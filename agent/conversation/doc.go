// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 conversation 提供多方对话的共享消息模型。

# 概述

conversation 只解决一件事：维护一个单写者、只追加、因果有序的对话记录，
并让每个参与者按自己的游标增量读取"尚未看到"的消息。谁发言、何时发言
由 agent/scheduler 决定。

# 核心类型

  - Message：不可变消息（Sender / Content / Timestamp），相等性由三者决定，
    顺序由 Timestamp 决定；Index 与 Kind 仅供观察者使用
  - Log：只追加日志，Append / AppendAt / AppendMessage 校验后返回下标，
    SliceSince(cursor) 以 O(1) 返回 log[cursor+1:]（cursor<0 返回全部）
  - Mode：调度模式枚举，支持 hybrid、all_speak、sequential、pure_priority

# 辅助函数

  - TopicSummary：取最近至多 3 条消息生成 150 字符以内的话题提示
  - FormatTranscript / Log.DisplayString：渲染为 "sender: content" 文本
*/
package conversation
