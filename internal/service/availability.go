package service

import (
	"context"
	"time"

	"github.com/onurbyrmv0/chat-relay/pkg/log"
)

// Start probes the durable store once and begins serving. If the probe
// fails the relay starts degraded and keeps retrying in the background.
// ctx bounds the lifetime of the recovery loop.
func (s *relayService) Start(ctx context.Context) {
	s.baseCtx = ctx
	if err := s.durable.Ping(ctx); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("history store unreachable at startup, running degraded")
		s.markUnavailable(ctx)
		return
	}
	s.available.Store(true)
}

func (s *relayService) StoreAvailable() bool {
	return s.available.Load()
}

// markUnavailable flips the relay into degraded mode and spawns a single
// recovery loop. Concurrent failures collapse onto one loop.
func (s *relayService) markUnavailable(ctx context.Context) {
	s.available.Store(false)
	if !s.retrying.CompareAndSwap(false, true) {
		return
	}
	loopCtx := s.baseCtx
	if loopCtx == nil {
		loopCtx = context.Background()
	}
	go s.retryLoop(loopCtx)
}

func (s *relayService) retryLoop(ctx context.Context) {
	l := log.L()
	ticker := time.NewTicker(s.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.retrying.Store(false)
			return
		case <-ticker.C:
			if err := s.durable.Ping(ctx); err != nil {
				l.Debug().Err(err).Msg("history store still unreachable")
				continue
			}
			s.available.Store(true)
			l.Info().Msg("history store reachable again, leaving degraded mode")
			s.retrying.Store(false)
			// A failure between the two stores above finds the flag
			// still taken and spawns nothing; re-check so the relay
			// never sits degraded without a loop running.
			if !s.available.Load() {
				s.markUnavailable(ctx)
			}
			return
		}
	}
}
