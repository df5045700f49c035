package main

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ligun0805/airdrop-claimer/internal/browser"
	"github.com/ligun0805/airdrop-claimer/internal/chain"
	"github.com/ligun0805/airdrop-claimer/internal/claimcore"
	"github.com/ligun0805/airdrop-claimer/internal/config"
	"github.com/ligun0805/airdrop-claimer/internal/metrics"
	"github.com/sirupsen/logrus"
)

// deps are the collaborators a batch needs; tests swap them for fakes.
type deps struct {
	Sessions claimcore.SessionFactory
	Chain    claimcore.ChainReader
	Contract claimcore.ClaimContract
	Recorder claimcore.Recorder
}

// newProcessor maps settings onto a per-key processor.
func newProcessor(st config.Settings, d deps, log logrus.FieldLogger) *claimcore.Processor {
	chainID := big.NewInt(st.ChainID)
	sub := claimcore.NewSubmitter(st.MaxAttempts, log)
	return &claimcore.Processor{
		ClaimURL: st.ClaimURL,
		Network: claimcore.Network{
			Name:     st.NetworkName,
			RPCURL:   st.RPCURL,
			ChainID:  chainID,
			Symbol:   st.NetworkSymbol,
			Explorer: st.NetworkExplorer,
		},
		ExpectedChainID:       chainID,
		ContractAddress:       common.HexToAddress(st.ClaimContract),
		Sessions:              d.Sessions,
		Proofs:                claimcore.ProofFetcher{APIBase: st.APIBase},
		Chain:                 d.Chain,
		Contract:              d.Contract,
		Gas:                   claimcore.NewGasPolicy(st.FixedGasPriceGwei, st.GasMultiplier, st.MaxGasPriceGwei),
		Submitter:             sub,
		SettlePause:           st.PauseAfterConnect(),
		ForgetImportedAccount: st.ForgetImportedAccount,
		Log:                   log,
	}
}

// runBatch validates the key list, then hands it to the runner. It opens no session for an empty list.
func runBatch(ctx context.Context, st config.Settings, keys []string, d deps, sleep claimcore.SleepFunc, log logrus.FieldLogger) (claimcore.BatchResult, error) {
	if len(keys) == 0 {
		return claimcore.BatchResult{}, claimcore.ErrEmptyKeyList
	}
	p := newProcessor(st, d, log)
	if sleep != nil {
		p.Sleep = sleep
		p.Submitter.Sleep = sleep
	}
	r := &claimcore.Runner{
		Processor: p,
		Delay:     st.Delay,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Sleep:     sleep,
		Recorder:  d.Recorder,
		Log:       log,
	}
	return r.Run(ctx, keys)
}

// runClaim is the root command: it wires RPC, the browser, metrics and the batch.
func runClaim(ctx context.Context, st config.Settings) error {
	log := newLogger(st.LogLevel, st.LogFormat, nil)

	keys, err := claimcore.ReadKeyFile(st.KeysFile)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%s: %w", st.KeysFile, claimcore.ErrEmptyKeyList)
	}

	ec, err := chain.Dial(ctx, st.RPCURL, st.RPCRPS)
	if err != nil {
		return err
	}
	defer ec.Close()

	extDir := st.ExtensionDir
	if extDir == "" {
		extDir, err = browser.ExtensionFetcher{Log: log}.Ensure(ctx, st.MMVersion, extensionCacheDir())
		if err != nil {
			return fmt.Errorf("metamask extension: %w", err)
		}
	}

	d := deps{
		Sessions: browser.NewLauncher(browser.Options{
			ExtensionDir:   extDir,
			ChromePath:     st.ChromePath,
			Headless:       st.Headless,
			NavTimeout:     st.NavTimeout(),
			WalletPassword: st.WalletPassword,
			Log:            log,
		}),
		Chain:    ec,
		Contract: claimcore.NewClaimBinding(ec, common.HexToAddress(st.ClaimContract), big.NewInt(st.ChainID)),
	}

	if st.MetricsAddr != "" {
		rec := metrics.NewRecorder()
		d.Recorder = rec
		mctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := rec.Serve(mctx, st.MetricsAddr, log); err != nil {
				log.WithError(err).Error("metrics server")
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	log.WithFields(logrus.Fields{
		"claim":    st.ClaimURL,
		"contract": st.ClaimContract,
		"rpc":      st.RPCURL,
		"delay":    st.Delay.String(),
	}).Info("starting claim batch")

	_, err = runBatch(ctx, st, keys, d, nil, log)
	return err
}

func extensionCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "airdrop-claimer")
	}
	return filepath.Join(os.TempDir(), "airdrop-claimer")
}
