// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 scheduler 实现多方对话的轮次调度。

# 概述

每一轮（RunRound）先评估所有参与者（IDLE → ASSESSING），保留 priority > 0
的参与者并按优先级稳定降序排序，再按模式分派发言（DISPATCHING），最后回到 IDLE。
没有任何参与者有发言动机时返回 NoParticipation，日志保持不变。

# 调度模式

  - hybrid：阶段一每人独立给出初始观点，不合格时用指令性提示重试一次，
    仍失败则使用基于专长的占位消息；随后向所有参与者广播"回应刚才听到的内容"，
    阶段二每人再回应一次，失败时使用道歉消息
  - all_speak：按优先级每人发言一次，每条消息随后广播给其他参与者
  - sequential：只有一人发言；若最高优先级者即上一位发言者，则由第二名发言
  - pure_priority：只有最高优先级者发言

# 失败处理

单个回合失败（运行时错误、超时、空输出、与 FallbackMessage 相同的输出）
会被记录并替换为固定文本，仍然追加到日志并推进发言者游标，轮次总能完成。
ctx 在每个回合前检查，取消后 RoundOutcome.Aborted 为 true，已追加的消息保留。

# 并发模型

Scheduler 只有一个写者。Session 将所有操作作为闭包发送到单个 goroutine 执行，
可被多个 goroutine 共享；Manager 按会话 ID 管理多个互不共享状态的 Session。
记忆广播不是回合，通过 errgroup 限流并发执行并带退避重试，在下一个回合开始前完成。
*/
package scheduler
