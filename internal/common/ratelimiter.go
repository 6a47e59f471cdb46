package common

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimiter combines several restrictions. A request is only allowed when
// every restriction allows it.
type RateLimiter struct {
	limiters []*rate.Limiter
}

func NewRateLimiter(restrictions []Restriction) *RateLimiter {
	rl := &RateLimiter{}
	for _, restriction := range restrictions {
		rl.limiters = append(rl.limiters, rate.NewLimiter(restriction.Limit(), restriction.Burst()))
	}
	return rl
}

// Allowed decides if a request may go out now.
// Vital requests block until every restriction lets them through (or the
// context ends). Non vital requests are rejected straight away when any
// restriction would make them wait.
func (rl *RateLimiter) Allowed(ctx context.Context, vital bool) (bool, error) {
	if rl == nil {
		return true, nil
	}
	if !vital {
		reservations := make([]*rate.Reservation, 0, len(rl.limiters))
		for _, limiter := range rl.limiters {
			reservation := limiter.Reserve()
			if !reservation.OK() || reservation.Delay() > 0 {
				reservation.Cancel()
				for _, r := range reservations {
					r.Cancel()
				}
				log.Debug().Msg("Rejecting non vital request because restrictions do not allow it")
				return false, nil
			}
			reservations = append(reservations, reservation)
		}
		return true, nil
	}
	for _, limiter := range rl.limiters {
		if err := limiter.Wait(ctx); err != nil {
			return false, errors.Wrap(err, "waiting for rate limiter")
		}
	}
	return true, nil
}
