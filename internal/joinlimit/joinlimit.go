// Package joinlimit throttles JOIN/PART control frames to Twitch's
// published join-rate limit, which is separate from the chat-send sliding
// window: roughly 20 per 10 seconds per connection.
// Unlike chat sends, control-frame ordering across distinct channels carries
// no FIFO requirement, so a token bucket -- rather than the sliding-window
// plus per-channel-spacing algorithm the scheduler package uses -- is the
// right fit here.
package joinlimit

import (
	"context"

	"golang.org/x/time/rate"
)

// DefaultRate and DefaultBurst match Twitch's published join-rate limit.
const (
	DefaultRate  = 2 // ~20 per 10s, expressed as events/sec
	DefaultBurst = 20
)

// Limiter throttles JOIN/PART frames.
type Limiter struct {
	limiter *rate.Limiter
}

// New builds a Limiter with Twitch's default join-rate limit.
func New() *Limiter {
	return &Limiter{limiter: rate.NewLimiter(DefaultRate, DefaultBurst)}
}

// Wait blocks until a JOIN/PART frame may be sent, or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
