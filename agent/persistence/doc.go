// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 persistence 提供对话记录归档存储。

# 核心接口

  - TranscriptStore：按会话追加与读取对话条目（Append / List / Ping / Close）。

# 后端实现

  - MemoryStore：进程内存储，用于开发与测试。
  - RedisStore：每个会话一个 Redis 列表，键为 roundtable:transcript:<会话ID>，
    可选过期时间。
  - GormStore：transcript_entries 表，AutoMigrate 建表，
    支持 postgres、mysql、sqlite。

# 接入通知

NewStoreObserver 将存储适配为 notify.Observer，注册到通知中心后，
每条新增对话记录都会异步归档，不阻塞对话调度。
*/
package persistence
