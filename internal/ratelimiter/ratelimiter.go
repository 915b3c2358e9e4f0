package ratelimiter

import "time"

type Limiter interface {
	// Allow records a hit for key and reports whether it is within the limit.
	// When it is not, the duration is how long until the window resets.
	Allow(key string) (bool, time.Duration)
}

type Config struct {
	RequestsPerTimeFrame int
	TimeFrame            time.Duration
	Enabled              bool
}
