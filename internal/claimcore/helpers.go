package claimcore

import (
	"math"
	"math/big"
	"strings"
)

// gweiToWei converts a configured gwei amount. Non-finite or non-positive values mean "unset" and return nil.
func gweiToWei(g float64) *big.Int {
	if math.IsNaN(g) || math.IsInf(g, 0) || g <= 0 {
		return nil
	}
	wei, _ := new(big.Float).SetFloat64(math.Round(g * 1e9)).Int(nil)
	if wei.Sign() <= 0 {
		return nil
	}
	return wei
}

// mulPct returns a*pct/100 with integer math.
func mulPct(a *big.Int, pct int64) *big.Int {
	if a == nil {
		return nil
	}
	x := new(big.Int).Mul(a, big.NewInt(pct))
	return x.Quo(x, big.NewInt(100))
}

func clampTo(x, ceiling *big.Int) *big.Int {
	if x == nil || ceiling == nil {
		return x
	}
	if x.Cmp(ceiling) > 0 {
		return new(big.Int).Set(ceiling)
	}
	return x
}

// Human-readable helpers (native coin / gwei).
func FormatEther(x *big.Int) string {
	if x == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(new(big.Int).Set(x), big.NewInt(1_000_000_000_000_000_000))
	return r.FloatString(6)
}

func FormatGwei(x *big.Int) string {
	if x == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(new(big.Int).Set(x), big.NewInt(1_000_000_000))
	return r.FloatString(2)
}

// MaskHex keeps the first 6 and last 4 chars of a secret.
func MaskHex(h string) string {
	h = strings.TrimSpace(h)
	if len(h) <= 10 {
		return "***"
	}
	return h[:6] + "…" + h[len(h)-4:]
}
