package token

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"retroswap/internal/model"
)

// Default Sepolia token addresses.
const (
	DefaultUSDCAddress = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
	DefaultWETHAddress = "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"
	DefaultWBTCAddress = "0x29f2D40B0605204364af54EC677bD022dA425d03"
	DefaultDAIAddress  = "0x3e622317f8C93f7328350cF0B56d9eD4C620C5d6"
)

// Registry is an immutable symbol/address index of supported tokens.
type Registry struct {
	tokens    []model.TokenInfo
	bySymbol  map[string]int
	byAddress map[common.Address]int
}

// NewRegistry builds a registry. Symbols and addresses must be unique.
func NewRegistry(tokens []model.TokenInfo) (*Registry, error) {
	r := &Registry{
		tokens:    make([]model.TokenInfo, 0, len(tokens)),
		bySymbol:  make(map[string]int, len(tokens)),
		byAddress: make(map[common.Address]int, len(tokens)),
	}
	for _, info := range tokens {
		symbol := strings.ToUpper(strings.TrimSpace(info.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("token %s has no symbol", info.Address.Hex())
		}
		if info.Decimals > 18 {
			return nil, fmt.Errorf("token %s decimals %d out of range", symbol, info.Decimals)
		}
		if _, ok := r.bySymbol[symbol]; ok {
			return nil, fmt.Errorf("duplicate token symbol: %s", symbol)
		}
		if _, ok := r.byAddress[info.Address]; ok {
			return nil, fmt.Errorf("duplicate token address: %s", info.Address.Hex())
		}
		info.Symbol = symbol
		r.bySymbol[symbol] = len(r.tokens)
		r.byAddress[info.Address] = len(r.tokens)
		r.tokens = append(r.tokens, info)
	}
	return r, nil
}

// Addresses overrides the default token addresses by symbol.
type Addresses struct {
	USDC string
	WETH string
	WBTC string
	DAI  string
}

// DefaultTokens returns the supported token set with overrides applied.
// Empty overrides keep the default address.
func DefaultTokens(overrides Addresses) ([]model.TokenInfo, error) {
	entries := []struct {
		symbol   string
		name     string
		decimals uint8
		address  string
		fallback string
	}{
		{"USDC", "USD Coin", 6, overrides.USDC, DefaultUSDCAddress},
		{"WETH", "Wrapped Ether", 18, overrides.WETH, DefaultWETHAddress},
		{"WBTC", "Wrapped Bitcoin", 8, overrides.WBTC, DefaultWBTCAddress},
		{"DAI", "Dai Stablecoin", 18, overrides.DAI, DefaultDAIAddress},
	}

	tokens := make([]model.TokenInfo, 0, len(entries))
	for _, e := range entries {
		raw := strings.TrimSpace(e.address)
		if raw == "" {
			raw = e.fallback
		}
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("%s address: %w", e.symbol, err)
		}
		tokens = append(tokens, model.TokenInfo{
			Address:  addr,
			Symbol:   e.symbol,
			Name:     e.name,
			Decimals: e.decimals,
		})
	}
	return tokens, nil
}

// ByAddress looks a token up by address.
func (r *Registry) ByAddress(addr common.Address) (model.TokenInfo, bool) {
	idx, ok := r.byAddress[addr]
	if !ok {
		return model.TokenInfo{}, false
	}
	return r.tokens[idx], true
}

// ByHex parses a hex address and looks it up. Hex case is ignored.
func (r *Registry) ByHex(input string) (model.TokenInfo, bool) {
	addr, err := ParseAddress(input)
	if err != nil {
		return model.TokenInfo{}, false
	}
	return r.ByAddress(addr)
}

// BySymbol looks a token up by symbol, case-insensitively.
func (r *Registry) BySymbol(symbol string) (model.TokenInfo, bool) {
	idx, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return model.TokenInfo{}, false
	}
	return r.tokens[idx], true
}

// Resolve accepts either a symbol or a hex address.
func (r *Registry) Resolve(input string) (model.TokenInfo, bool) {
	if IsValidAddress(strings.TrimSpace(input)) {
		return r.ByHex(input)
	}
	return r.BySymbol(input)
}

// All returns the tokens in registration order.
func (r *Registry) All() []model.TokenInfo {
	out := make([]model.TokenInfo, len(r.tokens))
	copy(out, r.tokens)
	return out
}

// ParseAddress converts a hex string into an address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAddresses converts string addresses, skipping blanks.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}
