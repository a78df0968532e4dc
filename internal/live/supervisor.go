package live

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/varun4522/calm-sub002/internal/metrics"
)

// Supervisor keeps a subscription alive: when the feed drops it re-subscribes
// with exponential backoff and replays a reconcile fetch to pick up rows
// missed while disconnected. A bare Subscription stays silent on drop; wrap
// it in a Supervisor when that gap matters.
type Supervisor struct {
	feed      Feed
	filter    Filter
	handler   Handler
	reconcile func(context.Context) error

	baseBackoff time.Duration
	maxBackoff  time.Duration
	log         *zap.SugaredLogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

type SupervisorOption func(*Supervisor)

// WithBackoff overrides the default 500ms..30s backoff bounds.
func WithBackoff(base, max time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.baseBackoff = base
		s.maxBackoff = max
	}
}

// WithReconcile registers a replay fetch run after every (re)subscribe.
func WithReconcile(fn func(context.Context) error) SupervisorOption {
	return func(s *Supervisor) { s.reconcile = fn }
}

func NewSupervisor(feed Feed, filter Filter, h Handler, log *zap.SugaredLogger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		feed:        feed,
		filter:      filter,
		handler:     h,
		baseBackoff: 500 * time.Millisecond,
		maxBackoff:  30 * time.Second,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the supervision loop. Stop (or ctx cancellation) ends it.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.stopped = stopped
	s.mu.Unlock()

	go func() {
		defer close(stopped)
		s.run(ctx)
	}()
}

// Stop cancels the loop and waits for it to exit. Idempotent.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (s *Supervisor) run(ctx context.Context) {
	backoff := s.baseBackoff
	first := true
	for {
		if ctx.Err() != nil {
			return
		}
		sub, err := s.feed.Subscribe(ctx, s.filter, s.handler)
		if err != nil {
			s.log.Warnw("feed subscribe failed", "channel", s.filter.Channel(""), "err", err)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.maxBackoff)
			continue
		}
		if !first {
			metrics.FeedResubscribes.Inc()
		}
		first = false
		backoff = s.baseBackoff

		// Replay a fetch so rows inserted while disconnected are merged.
		if s.reconcile != nil {
			if err := s.reconcile(ctx); err != nil {
				s.log.Warnw("reconcile fetch failed", "err", err)
			}
		}

		select {
		case <-ctx.Done():
			sub.Cancel()
			return
		case <-sub.Done():
			sub.Cancel()
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.maxBackoff)
		}
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
