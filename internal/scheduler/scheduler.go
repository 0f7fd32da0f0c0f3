// Package scheduler implements the outbound rate-limit scheduler: a
// single consumer goroutine draining a queue.Queue under a sliding
// send-count window plus a per-channel minimum spacing, sleep-waking rather
// than busy-polling, and cancellable via context.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/haldoran/twitchirc/internal/queue"
)

// RateClass selects which bound and per-channel spacing apply to a message.
// Relaxed applies when the sender is the target channel's owner or a
// moderator; Normal otherwise.
type RateClass int

const (
	Normal RateClass = iota
	Relaxed
)

// Config holds the tunables the algorithm itself treats as fixed constants
// in production (window, bounds, and per-channel deltas), exposed as a
// struct so tests can shrink the time scale without altering the
// algorithm.
type Config struct {
	Window       time.Duration
	NormalBound  int
	RelaxedBound int
	NormalDelta  time.Duration
	RelaxedDelta time.Duration
}

// DefaultConfig returns Twitch's published limits: a 32s window (the nominal
// 30s plus a 2s margin for clock and network skew -- undercutting it risks a
// 30-minute global send ban), 20 sends/window normal, 100 relaxed, and
// 1250ms/50ms minimum per-channel spacing.
func DefaultConfig() Config {
	return Config{
		Window:       32 * time.Second,
		NormalBound:  20,
		RelaxedBound: 100,
		NormalDelta:  1250 * time.Millisecond,
		RelaxedDelta: 50 * time.Millisecond,
	}
}

func (c Config) boundFor(rc RateClass) int {
	if rc == Relaxed {
		return c.RelaxedBound
	}
	return c.NormalBound
}

func (c Config) deltaFor(rc RateClass) time.Duration {
	if rc == Relaxed {
		return c.RelaxedDelta
	}
	return c.NormalDelta
}

// ClassifyFunc reports the rate class that applies when sending to channel.
type ClassifyFunc func(channel string) RateClass

// SendFunc performs the actual transport send. An error here aborts the
// in-flight message (it is not requeued) but does not stop the scheduler.
type SendFunc func(ctx context.Context, line string) error

// Snapshot is a point-in-time view of scheduler state for observability
// (nothing in the scheduler itself depends on it).
type Snapshot struct {
	QueueDepth      int
	WindowOccupancy int
	WindowBound     int
	NextDrainETA    time.Duration
}

// Scheduler drains a queue.Queue under the sliding-window and per-channel
// spacing rules. A Scheduler is single-use: once Run returns, construct a
// new one (with a fresh queue, typically) rather than calling Run again --
// this mirrors the facade's policy of discarding scheduler state entirely on
// disconnect and starting fresh at the next login.
//
// Messages leave in strict FIFO order across the whole queue: while the
// head message waits out its channel's minimum spacing, messages for other
// channels queued behind it wait too.
type Scheduler struct {
	q        *queue.Queue
	classify ClassifyFunc
	send     SendFunc
	logger   *slog.Logger
	cfg      Config

	mu                 sync.Mutex
	sendTimestamps     []time.Time
	lastSendPerChannel map[string]time.Time
}

// New builds a Scheduler over q using DefaultConfig. classify and send must
// be non-nil; logger may be nil (defaults to slog.Default()).
func New(q *queue.Queue, classify ClassifyFunc, send SendFunc, logger *slog.Logger) *Scheduler {
	return NewWithConfig(q, classify, send, logger, DefaultConfig())
}

// NewWithConfig builds a Scheduler with a non-default Config. Production
// code should use New; this exists so tests can exercise the sliding-window
// algorithm on a compressed time scale.
func NewWithConfig(q *queue.Queue, classify ClassifyFunc, send SendFunc, logger *slog.Logger, cfg Config) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		q:                  q,
		classify:           classify,
		send:               send,
		logger:             logger,
		cfg:                cfg,
		lastSendPerChannel: make(map[string]time.Time),
	}
}

// Run drains the queue until ctx is cancelled. It alternates between
// draining (sending while the window and per-channel spacing allow it) and
// hibernating (sleeping until the window frees up, a new message arrives, or
// ctx is cancelled).
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		msg, ok := s.q.Peek()
		if !ok {
			if !s.waitOn(ctx, 0, true) {
				return
			}
			continue
		}

		class := s.classify(msg.Channel)
		bound := s.cfg.boundFor(class)

		now := time.Now()
		s.trim(now)

		if s.windowCount() >= bound {
			wait := s.ticksTillReset(bound, now)
			if !s.waitOn(ctx, wait, true) {
				return
			}
			continue
		}

		if last, ok := s.lastSend(msg.Channel); ok {
			if shortfall := last.Add(s.cfg.deltaFor(class)).Sub(now); shortfall > 0 {
				// Not cancellable by a new-work signal -- only shutdown can
				// cut this short, per spec.
				if !s.waitOn(ctx, shortfall, false) {
					return
				}
				continue
			}
		}

		dequeued, ok := s.q.Dequeue()
		if !ok {
			// Lost a race with nothing (single consumer) -- defensive only.
			continue
		}

		if err := s.send(ctx, dequeued.Line); err != nil {
			s.logger.Error("scheduler: send failed, message dropped", "channel", dequeued.Channel, "error", err)
		}

		sentAt := time.Now()
		s.recordSend(dequeued.Channel, sentAt)
	}
}

// waitOn blocks until d elapses, ctx is cancelled, or (if wakeable) the
// queue signals new work. d == 0 with wakeable means "wait indefinitely for
// new work". Returns false iff ctx was cancelled.
func (s *Scheduler) waitOn(ctx context.Context, d time.Duration, wakeable bool) bool {
	var timerC <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timerC = timer.C
	}

	var wake <-chan struct{}
	if wakeable {
		wake = s.q.Wake()
	}

	select {
	case <-ctx.Done():
		return false
	case <-timerC:
		return true
	case <-wake:
		return true
	}
}

func (s *Scheduler) trim(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.cfg.Window)
	i := 0
	for i < len(s.sendTimestamps) && s.sendTimestamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		s.sendTimestamps = s.sendTimestamps[i:]
	}
}

func (s *Scheduler) windowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sendTimestamps)
}

func (s *Scheduler) ticksTillReset(bound int, now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sendTimestamps) < bound {
		return 0
	}
	oldest := s.sendTimestamps[len(s.sendTimestamps)-bound]
	if wait := oldest.Add(s.cfg.Window).Sub(now); wait > 0 {
		return wait
	}
	return 0
}

func (s *Scheduler) lastSend(channel string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastSendPerChannel[channel]
	return t, ok
}

func (s *Scheduler) recordSend(channel string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendTimestamps = append(s.sendTimestamps, at)
	s.lastSendPerChannel[channel] = at
}

// Snapshot reports current occupancy for observability. Safe to call from
// any goroutine.
func (s *Scheduler) Snapshot() Snapshot {
	now := time.Now()
	s.trim(now)

	s.mu.Lock()
	occupancy := len(s.sendTimestamps)
	s.mu.Unlock()

	return Snapshot{
		QueueDepth:      s.q.Len(),
		WindowOccupancy: occupancy,
		WindowBound:     s.cfg.NormalBound,
		NextDrainETA:    s.ticksTillReset(s.cfg.NormalBound, now),
	}
}
