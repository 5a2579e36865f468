// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 Roundtable 的 HTTP 服务：Prometheus 指标、
实时对话记录 WebSocket 与健康检查。

# 核心类型

  - Manager：封装 net/http.Server 的生命周期，非阻塞 Start、
    优雅 Shutdown 与异步错误通道。
  - Routes / NewHandler：注册 /healthz、/metrics、/ws，
    并串联 Recovery、RequestLogger 与 RateLimit 中间件。
*/
package server
