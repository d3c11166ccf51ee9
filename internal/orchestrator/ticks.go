package orchestrator

import (
	"errors"
	"fmt"
	"math"
)

// Full representable tick range of the exchange.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var ErrTickOutOfBounds = errors.New("tick out of bounds")

var logTickBase = math.Log(1.0001)

// PriceToTick converts a price to a tick, flooring toward negative infinity.
func PriceToTick(price float64) (int32, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("invalid price %v", price)
	}
	tick := math.Floor(math.Log(price) / logTickBase)
	if tick < float64(MinTick) || tick > float64(MaxTick) {
		return 0, fmt.Errorf("%w: price %v gives tick %.0f", ErrTickOutOfBounds, price, tick)
	}
	return int32(tick), nil
}

// TickRange converts optional price bounds to ticks. A missing bound
// takes the edge of the full range.
func TickRange(priceLower, priceUpper *float64) (int32, int32, error) {
	lower, upper := MinTick, MaxTick
	var err error
	if priceLower != nil {
		if lower, err = PriceToTick(*priceLower); err != nil {
			return 0, 0, fmt.Errorf("lower bound: %w", err)
		}
	}
	if priceUpper != nil {
		if upper, err = PriceToTick(*priceUpper); err != nil {
			return 0, 0, fmt.Errorf("upper bound: %w", err)
		}
	}
	if lower >= upper {
		return 0, 0, fmt.Errorf("tick lower %d must be below tick upper %d", lower, upper)
	}
	return lower, upper, nil
}
