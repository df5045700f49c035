package claimcore

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Processor runs the whole claim flow for one key inside its own session.
type Processor struct {
	ClaimURL        string
	Network         Network
	ExpectedChainID *big.Int
	ContractAddress common.Address

	Sessions  SessionFactory
	Proofs    ProofFetcher
	Chain     ChainReader
	Contract  ClaimContract
	Gas       GasPolicy
	Submitter *Submitter

	SettlePause           time.Duration
	ForgetImportedAccount bool
	Sleep                 SleepFunc
	Log                   logrus.FieldLogger
}

func (p *Processor) log() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

func (p *Processor) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

// Process never panics and never returns an error: every failure after key validation
// degrades to an Outcome so the batch keeps going. The session is closed on every path.
func (p *Processor) Process(ctx context.Context, rawKey string, index, total int) (out Outcome) {
	log := p.log().WithField("key", fmt.Sprintf("%d/%d", index, total))

	key, err := ParsePrivateKey(rawKey)
	if err != nil {
		log.WithField("secret", MaskHex(rawKey)).Warn("bad private key")
		return Outcome{Kind: OutcomeSkipped, Reason: "bad private key", Err: err}
	}
	log = log.WithField("address", key.Address.Hex())

	var sess Session
	defer func() {
		if r := recover(); r != nil {
			out = failed(key.Address, fmt.Errorf("panic: %v", r))
		}
		if sess == nil {
			return
		}
		if p.ForgetImportedAccount {
			p.forget(ctx, log, sess, key.Address)
		}
		if cerr := sess.Close(); cerr != nil {
			log.WithError(cerr).Warn("session close failed")
		}
	}()

	sess, err = p.Sessions.Open(ctx)
	if err != nil {
		return failed(key.Address, fmt.Errorf("open session: %w", err))
	}
	return p.claim(ctx, log, sess, key)
}

func (p *Processor) claim(ctx context.Context, log logrus.FieldLogger, sess Session, key *AccountKey) Outcome {
	w, pg := sess.Wallet(), sess.Page()
	if err := w.AddNetwork(ctx, p.Network); err != nil {
		return failed(key.Address, fmt.Errorf("add network %s: %w", p.Network.Name, err))
	}
	if err := w.SwitchNetwork(ctx, p.Network.Name); err != nil {
		return failed(key.Address, fmt.Errorf("switch network %s: %w", p.Network.Name, err))
	}
	if err := w.ImportKey(ctx, key.Hex); err != nil {
		return failed(key.Address, fmt.Errorf("import key: %w", err))
	}

	log.Info("→ open claim page")
	if err := pg.Navigate(ctx, p.ClaimURL); err != nil {
		return failed(key.Address, fmt.Errorf("open claim page: %w", err))
	}
	if !Connect(ctx, sess) {
		log.Debug("no connect control or pending confirmation")
	}
	if err := p.sleep(ctx, p.SettlePause); err != nil {
		return failed(key.Address, err)
	}

	proof, err := p.Proofs.Fetch(ctx, p.ClaimURL, pg)
	if err != nil {
		var ne *NotEligibleError
		if errors.As(err, &ne) {
			return Outcome{Kind: OutcomeNotEligible, Address: key.Address, Reason: ne.Reason, Err: err}
		}
		return failed(key.Address, err)
	}
	if proof.Address != nil && *proof.Address != key.Address {
		return skipped(key.Address, "proof belongs to "+proof.Address.Hex())
	}

	pre := Preflight{Chain: p.Chain, ExpectedChainID: p.ExpectedChainID, Contract: p.ContractAddress}
	if f := pre.Check(ctx, key.Address); f != nil {
		return Outcome{Kind: OutcomeSkipped, Address: key.Address, Reason: f.Error(), Err: f}
	}

	snap, err := FetchFeeSnapshot(ctx, p.Chain)
	if err != nil {
		log.WithError(err).Warn("fee data unavailable")
	}
	quote := p.Gas.Quote(snap)
	log.WithField("amount", proof.Amount.String()).Infof("Gas mode: %s", quote)

	sub := NewSubmitter(DefaultMaxAttempts, log)
	if p.Submitter != nil {
		cp := *p.Submitter
		cp.Log = log
		sub = &cp
	}
	return sub.Submit(ctx, p.Contract, key, proof.Amount, proof.Proof, quote)
}

func (p *Processor) forget(ctx context.Context, log logrus.FieldLogger, sess Session, addr common.Address) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("forget account panicked: %v", r)
		}
	}()
	if err := sess.Wallet().ForgetAccount(ctx, addr); err != nil {
		log.WithError(err).Warn("forget imported account failed")
	}
}
