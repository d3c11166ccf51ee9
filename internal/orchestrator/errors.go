package orchestrator

import (
	"errors"
	"fmt"

	"retroswap/internal/wallet"
)

var (
	// ErrNotConnected is returned when no signing account is active.
	ErrNotConnected = wallet.ErrNotConnected
	// ErrInsufficientAllowance marks an allowance below the spend amount.
	// It is resolved by approval and never returned to callers.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrContractCallFailed matches every ContractCallError.
	ErrContractCallFailed = errors.New("contract call failed")
	// ErrUnknownToken is returned for tokens missing from the registry.
	ErrUnknownToken = errors.New("unknown token")
)

// ContractCallError is a rejected, failed or reverted on-chain step.
type ContractCallError struct {
	Step  string
	Token string
	Err   error
}

func (e *ContractCallError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s %s: %v", e.Step, e.Token, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ContractCallError) Unwrap() error {
	return e.Err
}

func (e *ContractCallError) Is(target error) bool {
	return target == ErrContractCallFailed
}

// Reason returns the underlying failure message for display.
func (e *ContractCallError) Reason() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
