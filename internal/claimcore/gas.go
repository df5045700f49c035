package claimcore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader is the read-only slice of an RPC client used for fees and preflight.
// *ethclient.Client satisfies it.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// FeeSnapshot is the network fee state at one moment. Any field may be nil.
type FeeSnapshot struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// defaultPriorityFee is used when the node has no eth_maxPriorityFeePerGas.
var defaultPriorityFee = big.NewInt(1_000_000_000)

// FetchFeeSnapshot reads legacy gas price and, on London-enabled chains, builds
// maxFee = 2*baseFee + tip. It fails only when neither source answers.
func FetchFeeSnapshot(ctx context.Context, r ChainReader) (FeeSnapshot, error) {
	var snap FeeSnapshot
	gp, gpErr := r.SuggestGasPrice(ctx)
	if gpErr == nil && gp != nil && gp.Sign() > 0 {
		snap.GasPrice = gp
	}
	head, hErr := r.HeaderByNumber(ctx, nil)
	if hErr == nil && head != nil && head.BaseFee != nil {
		tip, err := r.SuggestGasTipCap(ctx)
		if err != nil || tip == nil {
			tip = new(big.Int).Set(defaultPriorityFee)
		}
		maxFee := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
		snap.MaxFeePerGas = maxFee.Add(maxFee, tip)
		snap.MaxPriorityFeePerGas = tip
	}
	if gpErr != nil && hErr != nil {
		return snap, fmt.Errorf("fee data: %w", errors.Join(gpErr, hErr))
	}
	return snap, nil
}

// FeeQuote holds the fee fields attached to the claim tx.
// At most one pricing mode is set; an empty quote defers to the network default.
type FeeQuote struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Mode                 string
}

func (q FeeQuote) IsEmpty() bool {
	return q.GasPrice == nil && q.MaxFeePerGas == nil && q.MaxPriorityFeePerGas == nil
}

func (q FeeQuote) String() string {
	switch {
	case q.GasPrice != nil:
		return fmt.Sprintf("%s; gasPrice=%s gwei", q.Mode, FormatGwei(q.GasPrice))
	case q.MaxFeePerGas != nil:
		return fmt.Sprintf("%s; maxFee=%s gwei tip=%s gwei", q.Mode, FormatGwei(q.MaxFeePerGas), FormatGwei(q.MaxPriorityFeePerGas))
	}
	return q.Mode
}

// GasPolicy turns a fee snapshot into a quote.
type GasPolicy struct {
	Fixed      *big.Int // absolute override, wei
	Ceiling    *big.Int // cap for every component, wei
	Multiplier float64
}

// NewGasPolicy builds a policy from gwei settings; non-finite or non-positive thresholds are unset.
func NewGasPolicy(fixedGwei, multiplier, ceilingGwei float64) GasPolicy {
	return GasPolicy{
		Fixed:      gweiToWei(fixedGwei),
		Ceiling:    gweiToWei(ceilingGwei),
		Multiplier: multiplier,
	}
}

// pct is round(multiplier*100), never below 1.
func (p GasPolicy) pct() int64 {
	m := p.Multiplier
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		m = 1
	}
	v := math.Round(m * 100)
	if v < 1 {
		v = 1
	}
	if v > math.MaxInt32 {
		v = math.MaxInt32
	}
	return int64(v)
}

// Quote computes fee params. Priority: fixed price, legacy gas price, EIP-1559, empty.
func (p GasPolicy) Quote(snap FeeSnapshot) FeeQuote {
	if p.Fixed != nil && p.Fixed.Sign() > 0 {
		return FeeQuote{
			GasPrice: clampTo(new(big.Int).Set(p.Fixed), p.Ceiling),
			Mode:     "fixed " + FormatGwei(p.Fixed) + " gwei",
		}
	}
	pct := p.pct()
	mode := fmt.Sprintf("%.2f", float64(pct)/100)
	if snap.GasPrice != nil && snap.GasPrice.Sign() > 0 {
		return FeeQuote{
			GasPrice: clampTo(mulPct(snap.GasPrice, pct), p.Ceiling),
			Mode:     "network * " + mode,
		}
	}
	if snap.MaxFeePerGas != nil && snap.MaxPriorityFeePerGas != nil {
		return FeeQuote{
			MaxFeePerGas:         clampTo(mulPct(snap.MaxFeePerGas, pct), p.Ceiling),
			MaxPriorityFeePerGas: clampTo(mulPct(snap.MaxPriorityFeePerGas, pct), p.Ceiling),
			Mode:                 "eip1559 * " + mode,
		}
	}
	return FeeQuote{Mode: "no-fee-data"}
}
