package claimcore

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Preflight failure reasons.
const (
	ReasonWrongChain = "wrong chain"
	ReasonNoContract = "no contract"
	ReasonNoBalance  = "no balance"
	ReasonRPCError   = "rpc_error"
)

// PreflightFailure names the first structural precondition that did not hold.
type PreflightFailure struct {
	Reason string
	Detail string
}

func (f *PreflightFailure) Error() string {
	if f.Detail == "" {
		return f.Reason
	}
	return f.Reason + ": " + f.Detail
}

// Preflight runs the read-only checks before a claim: chain id, contract code, native balance.
type Preflight struct {
	Chain           ChainReader
	ExpectedChainID *big.Int
	Contract        common.Address
}

// Check short-circuits on the first failing condition. No retry: these are not transient faults.
func (p Preflight) Check(ctx context.Context, account common.Address) *PreflightFailure {
	id, err := p.Chain.ChainID(ctx)
	if err != nil {
		return &PreflightFailure{Reason: ReasonRPCError, Detail: fmt.Sprintf("chainId: %s: %v", ClassifyRPCError(err), err)}
	}
	if p.ExpectedChainID != nil && id.Cmp(p.ExpectedChainID) != 0 {
		return &PreflightFailure{Reason: ReasonWrongChain, Detail: fmt.Sprintf("chainId %s (expected %s)", id, p.ExpectedChainID)}
	}

	code, err := p.Chain.CodeAt(ctx, p.Contract, nil)
	if err != nil {
		return &PreflightFailure{Reason: ReasonRPCError, Detail: fmt.Sprintf("getCode: %s: %v", ClassifyRPCError(err), err)}
	}
	if len(code) == 0 {
		return &PreflightFailure{Reason: ReasonNoContract, Detail: "no bytecode at " + p.Contract.Hex()}
	}

	bal, err := p.Chain.BalanceAt(ctx, account, nil)
	if err != nil {
		return &PreflightFailure{Reason: ReasonRPCError, Detail: fmt.Sprintf("balance: %s: %v", ClassifyRPCError(err), err)}
	}
	if bal == nil || bal.Sign() <= 0 {
		return &PreflightFailure{Reason: ReasonNoBalance, Detail: account.Hex() + " has 0 for gas"}
	}
	return nil
}
