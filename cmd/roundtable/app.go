package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/notify"
	"github.com/BaSui01/roundtable/agent/persistence"
	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/agent/scheduler"
	"github.com/BaSui01/roundtable/config"
	"github.com/BaSui01/roundtable/internal/metrics"
	"github.com/BaSui01/roundtable/internal/server"
	"github.com/BaSui01/roundtable/internal/telemetry"
)

const healthPingTimeout = 2 * time.Second

// app wires one conversation session to its ambient services.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	telemetry *telemetry.Providers
	registry  *prometheus.Registry
	metrics   *metrics.Collector

	sessions *scheduler.Manager
	session  *scheduler.Session

	store    persistence.TranscriptStore
	stream   *notify.WebSocketObserver
	httpSrv  *server.Manager
	shutdown []func(context.Context)
}

func newApp(ctx context.Context, cfg *config.Config, rt runtime.Runtime, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ready := false
	defer func() {
		if !ready {
			a.close(context.Background())
		}
	}()

	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry unavailable, continuing without export", zap.Error(err))
		providers = &telemetry.Providers{}
	}
	a.telemetry = providers
	a.shutdown = append(a.shutdown, func(ctx context.Context) {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	})

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCollector("roundtable", a.registry, logger)
	a.sessions = scheduler.NewManager(a.metrics, logger)

	a.session, err = a.sessions.Open(scheduler.Options{
		Participants: cfg.Participants,
		Runtime:      rt,
		Config:       cfg.Conversation,
		Tracer:       a.telemetry.Tracer(),
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	a.store, err = persistence.NewStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open transcript archive: %w", err)
	}
	if a.store != nil {
		if err = a.session.Subscribe("archive", persistence.NewStoreObserver(a.store, a.session.ID())); err != nil {
			return nil, err
		}
	}

	if cfg.Server.Enabled {
		if err = a.startServer(); err != nil {
			return nil, err
		}
	}
	ready = true
	return a, nil
}

func (a *app) startServer() error {
	a.stream = notify.NewWebSocketObserver(a.logger)
	if err := a.session.Subscribe("websocket", a.stream); err != nil {
		return err
	}

	handler := server.NewHandler(server.Routes{
		Gatherer:   a.registry,
		Transcript: a.stream,
		Health:     a.health,
	}, a.logger)

	a.httpSrv = server.NewManager(handler, server.Config{
		Addr:            a.cfg.Server.Addr,
		ReadTimeout:     a.cfg.Server.ReadTimeout,
		WriteTimeout:    a.cfg.Server.WriteTimeout,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
	}, a.logger)
	if err := a.httpSrv.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	return nil
}

func (a *app) health() map[string]any {
	info := map[string]any{
		"session_id":      a.session.ID(),
		"state":           a.session.State().String(),
		"active_sessions": a.sessions.Len(),
	}
	if a.stream != nil {
		info["stream_clients"] = a.stream.Clients()
	}
	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), healthPingTimeout)
		defer cancel()
		if err := a.store.Ping(ctx); err != nil {
			info["archive"] = err.Error()
		} else {
			info["archive"] = "ok"
		}
	}
	return info
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("http server shutdown failed", zap.Error(err))
		}
	}
	if a.sessions != nil {
		// drains the hub so the archive and stream see every message
		a.sessions.Close()
	}
	if a.stream != nil {
		a.stream.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("transcript archive close failed", zap.Error(err))
		}
	}
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		a.shutdown[i](ctx)
	}
}

// participantsFromScript lists scripted participants when the config names none.
func participantsFromScript(script *runtime.Script) []conversation.Participant {
	names := make([]string, 0, len(script.Participants))
	for name := range script.Participants {
		names = append(names, name)
	}
	sort.Strings(names)

	ps := make([]conversation.Participant, 0, len(names))
	for _, name := range names {
		ps = append(ps, conversation.Participant{
			Name:      name,
			Expertise: script.Participants[name].Expertise,
		})
	}
	return ps
}
