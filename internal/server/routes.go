package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Routes 描述服务对外暴露的处理器
type Routes struct {
	// Gatherer 提供 /metrics 数据，nil 时不注册
	Gatherer prometheus.Gatherer
	// Transcript 处理 /ws 实时对话记录连接，nil 时不注册
	Transcript http.Handler
	// Health 返回健康检查附加信息
	Health func() map[string]any
	// 限流
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewHandler 构造带中间件的路由
func NewHandler(routes Routes, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if routes.Health != nil {
			for k, v := range routes.Health() {
				body[k] = v
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})

	if routes.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(routes.Gatherer, promhttp.HandlerOpts{}))
	}
	if routes.Transcript != nil {
		mux.Handle("GET /ws", routes.Transcript)
	}

	return Chain(mux,
		Recovery(logger),
		RequestLogger(logger),
		RateLimit(routes.RateLimitRPS, routes.RateLimitBurst),
	)
}
