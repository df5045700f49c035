package claimcore

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type OutcomeKind int

const (
	OutcomeSubmitted OutcomeKind = iota
	OutcomeAlreadyClaimed
	OutcomeNotEligible
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeAlreadyClaimed:
		return "already_claimed"
	case OutcomeNotEligible:
		return "not_eligible"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is the terminal result for one key.
type Outcome struct {
	Kind        OutcomeKind
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	Reason      string
	Err         error
	Attempts    int
}

// Success is true for outcomes that count toward the batch summary.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeSubmitted || o.Kind == OutcomeAlreadyClaimed
}

// Status is the one-line, user-facing description.
func (o Outcome) Status() string {
	who := o.Address.Hex()
	if o.Address == (common.Address{}) {
		who = "<invalid key>"
	}
	switch o.Kind {
	case OutcomeSubmitted:
		return fmt.Sprintf("✅ %s block %d tx %s", who, o.BlockNumber, o.TxHash.Hex())
	case OutcomeAlreadyClaimed:
		return fmt.Sprintf("ℹ️  %s already claimed", who)
	case OutcomeNotEligible:
		return fmt.Sprintf("❌ %s not eligible (%s)", who, o.Reason)
	case OutcomeSkipped:
		return fmt.Sprintf("❌ %s skipped: %s", who, o.Reason)
	}
	return fmt.Sprintf("❌ %s %s", who, o.Reason)
}

func skipped(addr common.Address, reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Address: addr, Reason: reason}
}

func failed(addr common.Address, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Address: addr, Reason: err.Error(), Err: err}
}

// BatchResult aggregates a finished run.
type BatchResult struct {
	Success  int
	Total    int
	Outcomes []Outcome
}

func (r BatchResult) String() string {
	return fmt.Sprintf("%d/%d", r.Success, r.Total)
}
