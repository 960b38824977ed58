package pulsekit

import (
	"time"

	"github.com/jpillora/backoff"
)

// retryAction is the policy's verdict on a failed send: try again after a
// delay, or give up and drop the batch.
type retryAction struct {
	retry bool
	delay time.Duration
}

// retryPolicy computes backoff delays and retry budgets for failed sends.
// Only transient connection failures are retried; encode, auth and
// lifecycle failures cannot improve on a resend.
type retryPolicy struct {
	maxAttempts int
	b           *backoff.Backoff
}

func newRetryPolicy(config *Config) *retryPolicy {
	return &retryPolicy{
		maxAttempts: config.MaxRetries,
		b: &backoff.Backoff{
			Min:    config.BaseDelay,
			Max:    config.MaxDelay,
			Factor: config.Multiplier,
		},
	}
}

// nextAction decides whether the send should be attempted again after the
// given failure. attempt is 1-based, so the delay following the first failed
// attempt is BaseDelay, then BaseDelay*Multiplier, capped at MaxDelay.
func (p *retryPolicy) nextAction(attempt int, kind ErrorKind) retryAction {
	if !kind.Retryable() {
		return retryAction{}
	}
	if attempt >= p.maxAttempts {
		return retryAction{}
	}
	return retryAction{
		retry: true,
		delay: p.b.ForAttempt(float64(attempt - 1)),
	}
}
