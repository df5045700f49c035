package claimcore

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts = 2
	DefaultBaseBackoff = 2 * time.Second
	DefaultJitter      = 1500 * time.Millisecond
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Submitter estimates, sends and confirms the claim tx with bounded retry.
type Submitter struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      time.Duration
	Sleep       SleepFunc
	Log         logrus.FieldLogger
}

func NewSubmitter(maxAttempts int, log logrus.FieldLogger) *Submitter {
	return &Submitter{
		MaxAttempts: maxAttempts,
		BaseBackoff: DefaultBaseBackoff,
		Jitter:      DefaultJitter,
		Log:         log,
	}
}

// GasLimitFor adds the fixed +20% safety margin to an estimate.
func GasLimitFor(estimate uint64) uint64 {
	return estimate * 12 / 10
}

func (s *Submitter) backoff() time.Duration {
	d := s.BaseBackoff
	if s.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(s.Jitter)))
	}
	return d
}

func (s *Submitter) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

func (s *Submitter) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Submit returns Submitted, or the classification of the last error once attempts are exhausted.
func (s *Submitter) Submit(ctx context.Context, c ClaimContract, key *AccountKey, amount *big.Int, proof [][32]byte, fee FeeQuote) Outcome {
	maxAttempts := s.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	var (
		tx       *types.Transaction
		lastErr  error
		attempts int
	)
	for attempts = 1; attempts <= maxAttempts; attempts++ {
		tx, lastErr = s.sendOnce(ctx, c, key, amount, proof, fee)
		if lastErr == nil {
			break
		}
		s.log().WithError(lastErr).WithField("attempt", fmt.Sprintf("%d/%d", attempts, maxAttempts)).Warn("claim attempt failed")
		if attempts == maxAttempts {
			break
		}
		if err := s.sleep(ctx, s.backoff()); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}
	if lastErr != nil {
		return classified(key, lastErr, attempts)
	}

	s.log().WithField("tx", tx.Hash().Hex()).Info("⏳ claim sent")
	rc, err := c.WaitMined(ctx, tx)
	if err != nil {
		out := classified(key, err, attempts)
		out.TxHash = tx.Hash()
		return out
	}
	return Outcome{
		Kind:        OutcomeSubmitted,
		Address:     key.Address,
		TxHash:      tx.Hash(),
		BlockNumber: rc.BlockNumber.Uint64(),
		Attempts:    attempts,
	}
}

func (s *Submitter) sendOnce(ctx context.Context, c ClaimContract, key *AccountKey, amount *big.Int, proof [][32]byte, fee FeeQuote) (*types.Transaction, error) {
	est, err := c.EstimateClaim(ctx, key.Address, amount, proof)
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	tx, err := c.SendClaim(ctx, key, amount, proof, fee, GasLimitFor(est))
	if err != nil {
		return nil, fmt.Errorf("send claim: %w", err)
	}
	return tx, nil
}

func classified(key *AccountKey, err error, attempts int) Outcome {
	out := Outcome{Kind: Classify(err), Address: key.Address, Err: err, Attempts: attempts}
	switch out.Kind {
	case OutcomeAlreadyClaimed:
		out.Reason = "already claimed"
	case OutcomeNotEligible:
		out.Reason = "not whitelisted (proof mismatch / not eligible)"
	default:
		out.Kind = OutcomeFailed
		out.Reason = err.Error()
		if r := RevertReason(err); r != "" {
			out.Reason = "reverted: " + r + " (" + err.Error() + ")"
		}
	}
	return out
}
