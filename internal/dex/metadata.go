package dex

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"retroswap/internal/model"
)

// FetchTokenMeta loads token metadata via ERC20 calls. Symbol and name
// fall back to the bytes32 encoding; only decimals is mandatory.
func FetchTokenMeta(ctx context.Context, caller ContractCaller, token common.Address, logger *zap.Logger) (model.TokenInfo, error) {
	meta := model.TokenInfo{Address: token}
	if caller == nil {
		return meta, fmt.Errorf("contract caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		return callMethod(ctx, caller, token, parsed, method)
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, err
	}
	if meta.Decimals, err = asUint8(values[0]); err != nil {
		return meta, err
	}

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

// VerifyTokens compares registered token metadata against the chain and
// logs mismatches. It returns the number of tokens that disagree.
func VerifyTokens(ctx context.Context, caller ContractCaller, tokens []model.TokenInfo, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	mismatches := 0
	for _, registered := range tokens {
		onchain, err := FetchTokenMeta(ctx, caller, registered.Address, logger)
		if err != nil {
			logger.Warn("token metadata fetch failed", zap.String("symbol", registered.Symbol), zap.Error(err))
			mismatches++
			continue
		}
		if onchain.Decimals != registered.Decimals {
			logger.Warn("token decimals mismatch",
				zap.String("symbol", registered.Symbol),
				zap.Uint8("registered", registered.Decimals),
				zap.Uint8("onchain", onchain.Decimals),
			)
			mismatches++
		}
	}
	return mismatches
}
