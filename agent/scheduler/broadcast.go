package scheduler

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// broadcast records text in the memory of every named participant. Updates
// run concurrently up to BroadcastConcurrency, each retried with backoff, and
// all finish before broadcast returns. Failures are logged and counted, never
// returned. It reports how many participants could not be updated.
func (s *Scheduler) broadcast(ctx context.Context, recipients []string, text string) int {
	if len(recipients) == 0 {
		return 0
	}
	ctx = runtime.WithSession(ctx, s.id)

	var g errgroup.Group
	g.SetLimit(s.cfg.BroadcastConcurrency)

	var failed atomic.Int32
	for _, name := range recipients {
		g.Go(func() error {
			err := s.retryer.Do(ctx, func(ctx context.Context) error {
				return s.rt.BroadcastMemoryUpdate(ctx, name, text)
			})
			if err != nil {
				failed.Add(1)
				s.metrics.RecordBroadcastFailure()
				s.logger.Warn("memory update failed",
					zap.String("participant", name),
					zap.Error(err),
				)
			}
			// 单个参与者失败不影响其他广播
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// retryableBroadcast honours the retryable flag of classified errors. Other
// runtime errors are treated as transient.
func retryableBroadcast(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if types.GetErrorCode(err) != "" {
		return types.IsRetryable(err)
	}
	return true
}

// others returns every participant name except exclude.
func (s *Scheduler) others(exclude string) []string {
	names := make([]string, 0, len(s.participants))
	for _, p := range s.participants {
		if p.Name != exclude {
			names = append(names, p.Name)
		}
	}
	return names
}
