package pricefeed

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned when the upstream answered 429 and no
	// cached data could stand in.
	ErrRateLimited = errors.New("price feed rate limited")
	// ErrUpstreamUnavailable covers every other upstream failure.
	ErrUpstreamUnavailable = errors.New("price feed unavailable")
)

// StatusError is a non-200 upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko status %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is classify a StatusError by sentinel.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == 429
	case ErrUpstreamUnavailable:
		return e.StatusCode != 429
	}
	return false
}
