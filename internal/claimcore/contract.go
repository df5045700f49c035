package claimcore

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ClaimABI exposes the single method we call: claim(uint256 amount, bytes32[] proof).
const ClaimABI = `[{"type":"function","name":"claim","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"proof","type":"bytes32[]"}],"outputs":[]}]`

var claimABI = mustParseABI(ClaimABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("claim ABI: %v", err))
	}
	return parsed
}

// PackClaim ABI-encodes claim(amount, proof).
func PackClaim(amount *big.Int, proof [][32]byte) ([]byte, error) {
	return claimABI.Pack("claim", amount, proof)
}

// ClaimContract is what the submitter needs from the on-chain claim contract.
type ClaimContract interface {
	EstimateClaim(ctx context.Context, from common.Address, amount *big.Int, proof [][32]byte) (uint64, error)
	SendClaim(ctx context.Context, key *AccountKey, amount *big.Int, proof [][32]byte, fee FeeQuote, gasLimit uint64) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// ClaimBackend is satisfied by *ethclient.Client.
type ClaimBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// ClaimBinding is the go-ethereum implementation of ClaimContract.
type ClaimBinding struct {
	backend ClaimBackend
	address common.Address
	chainID *big.Int
	bound   *bind.BoundContract
}

func NewClaimBinding(backend ClaimBackend, address common.Address, chainID *big.Int) *ClaimBinding {
	return &ClaimBinding{
		backend: backend,
		address: address,
		chainID: chainID,
		bound:   bind.NewBoundContract(address, claimABI, backend, backend, backend),
	}
}

func (c *ClaimBinding) Address() common.Address { return c.address }

func (c *ClaimBinding) EstimateClaim(ctx context.Context, from common.Address, amount *big.Int, proof [][32]byte) (uint64, error) {
	data, err := PackClaim(amount, proof)
	if err != nil {
		return 0, fmt.Errorf("pack claim: %w", err)
	}
	return c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &c.address, Value: big.NewInt(0), Data: data})
}

// SendClaim signs locally and broadcasts with explicit fee and gas limit. An empty quote lets bind pick fees.
func (c *ClaimBinding) SendClaim(ctx context.Context, key *AccountKey, amount *big.Int, proof [][32]byte, fee FeeQuote, gasLimit uint64) (*types.Transaction, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key.Private, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = gasLimit
	switch {
	case fee.GasPrice != nil:
		opts.GasPrice = fee.GasPrice
	case fee.MaxFeePerGas != nil:
		opts.GasFeeCap = fee.MaxFeePerGas
		opts.GasTipCap = fee.MaxPriorityFeePerGas
	}
	return c.bound.Transact(opts, "claim", amount, proof)
}

// WaitMined blocks until the tx is included once. A reverted receipt is an error.
func (c *ClaimBinding) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	rc, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait %s: %w", tx.Hash().Hex(), err)
	}
	if rc.Status == types.ReceiptStatusFailed {
		return rc, fmt.Errorf("transaction reverted in block %d: %s", rc.BlockNumber.Uint64(), tx.Hash().Hex())
	}
	return rc, nil
}
