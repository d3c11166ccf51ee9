package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Fee tiers supported by the exchange, in hundredths of a basis point.
const (
	FeeLow    uint32 = 500
	FeeMedium uint32 = 3000
	FeeHigh   uint32 = 10000
)

// SwapRoute is an ordered token path with the fee tier of each hop.
type SwapRoute struct {
	Path       []common.Address `json:"path"`
	Fees       []uint32         `json:"fees"`
	IsMultiHop bool             `json:"isMultiHop"`
}

// Validate checks the path/fee shape of the route.
func (r SwapRoute) Validate() error {
	if len(r.Path) != 2 && len(r.Path) != 3 {
		return fmt.Errorf("route path must have 2 or 3 tokens, got %d", len(r.Path))
	}
	if len(r.Fees) != len(r.Path)-1 {
		return fmt.Errorf("route has %d fees for %d tokens", len(r.Fees), len(r.Path))
	}
	for i := 1; i < len(r.Path); i++ {
		if r.Path[i] == r.Path[i-1] {
			return fmt.Errorf("route repeats token %s", r.Path[i].Hex())
		}
	}
	if r.IsMultiHop != (len(r.Path) == 3) {
		return fmt.Errorf("route multi-hop flag does not match path length")
	}
	return nil
}

// TokenIn returns the first token of the path.
func (r SwapRoute) TokenIn() common.Address {
	return r.Path[0]
}

// TokenOut returns the last token of the path.
func (r SwapRoute) TokenOut() common.Address {
	return r.Path[len(r.Path)-1]
}
