package common

import (
	"time"

	"golang.org/x/time/rate"
)

// A restriction means that only the specified number of requests
// are allowed for a specific time duration
type Restriction struct {
	Requests int
	Duration time.Duration
}

// Limit converts the restriction into a token bucket refill rate.
// A restriction without requests or duration does not limit anything.
func (rest Restriction) Limit() rate.Limit {
	if rest.Requests <= 0 || rest.Duration <= 0 {
		return rate.Inf
	}
	return rate.Every(rest.Duration / time.Duration(rest.Requests))
}

// Burst is how many requests may go out back to back before the rate applies.
func (rest Restriction) Burst() int {
	if rest.Requests <= 0 {
		return 1
	}
	return rest.Requests
}
