package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ligun0805/airdrop-claimer/internal/claimcore"
	"github.com/ligun0805/airdrop-claimer/internal/config"
	"github.com/sirupsen/logrus"
)

type countingFactory struct{ opened int }

func (f *countingFactory) Open(context.Context) (claimcore.Session, error) {
	f.opened++
	return nil, errors.New("no browser in tests")
}

func noSleep(context.Context, time.Duration) error { return nil }

func quietLogger() *logrus.Logger {
	var buf bytes.Buffer
	return newLogger("error", "text", &buf)
}

func testSettings() config.Settings {
	st := config.Defaults()
	st.ClaimURL = "https://app.xter.io/airdrop/xter-42"
	st.ClaimContract = "0x9999999999999999999999999999999999999999"
	return st
}

func TestRunBatchEmptyKeyList(t *testing.T) {
	f := &countingFactory{}
	_, err := runBatch(context.Background(), testSettings(), nil, deps{Sessions: f}, noSleep, quietLogger())
	if !errors.Is(err, claimcore.ErrEmptyKeyList) {
		t.Fatalf("err = %v", err)
	}
	if f.opened != 0 {
		t.Errorf("sessions opened = %d", f.opened)
	}
	if exitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", exitCode(err))
	}
}

func TestRunBatchCountsEveryKey(t *testing.T) {
	f := &countingFactory{}
	keys := []string{"not-a-key", "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"}
	res, err := runBatch(context.Background(), testSettings(), keys, deps{Sessions: f}, noSleep, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if res.String() != "0/2" {
		t.Errorf("result = %s", res)
	}
	if f.opened != 1 {
		t.Errorf("sessions opened = %d, want 1 (invalid key opens none)", f.opened)
	}
	if res.Outcomes[0].Kind != claimcore.OutcomeSkipped || res.Outcomes[1].Kind != claimcore.OutcomeFailed {
		t.Errorf("outcomes = %v, %v", res.Outcomes[0].Kind, res.Outcomes[1].Kind)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("config: %w", config.ErrMissingClaimURL), 1},
		{fmt.Errorf("keys.txt: %w", claimcore.ErrEmptyKeyList), 1},
		{context.Canceled, 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestLoadSettingsLayers(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "claimer.yaml")
	yml := "claim_url: https://app.xter.io/airdrop/from-file\n" +
		"claim_contract: \"0x9999999999999999999999999999999999999999\"\n" +
		"gas_multiplier: 1.1\n" +
		"delay_range_sec: \"5,6\"\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GAS_MULTIPLIER", "1.25")
	t.Setenv("CLAIM_URL", "")
	t.Setenv("KEYS_FILE", "")

	st, err := loadSettings(globalFlags{configFile: cfgPath, keysFile: "wallets.txt", metricsAddr: ":9100"})
	if err != nil {
		t.Fatal(err)
	}
	if st.ClaimURL != "https://app.xter.io/airdrop/from-file" {
		t.Errorf("claim url = %s", st.ClaimURL)
	}
	if st.GasMultiplier != 1.25 {
		t.Errorf("env must win over file: multiplier = %v", st.GasMultiplier)
	}
	if st.Delay.Min != 5*time.Second || st.Delay.Max != 6*time.Second {
		t.Errorf("delay = %s", st.Delay)
	}
	if st.KeysFile != "wallets.txt" || st.MetricsAddr != ":9100" {
		t.Errorf("flags not applied: %s %s", st.KeysFile, st.MetricsAddr)
	}
}

func TestLoadSettingsRejectsMissingClaimURL(t *testing.T) {
	t.Setenv("CLAIM_URL", "")
	t.Setenv("CLAIM_CONTRACT", "0x9999999999999999999999999999999999999999")
	_, err := loadSettings(globalFlags{})
	if !errors.Is(err, config.ErrMissingClaimURL) {
		t.Fatalf("err = %v", err)
	}
}

func TestDescribeKeys(t *testing.T) {
	lines := describeKeys([]string{
		"0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		"0xdeadbeefdeadbeef",
	})
	if lines[0] != "[1] 0x2c7536E3605D9C16a7a3D7b1898e529396a65c23" {
		t.Errorf("line 1 = %s", lines[0])
	}
	if lines[1] != "[2] invalid (0xdead…beef)" {
		t.Errorf("line 2 = %s", lines[1])
	}
}

type stubChain struct{}

func (stubChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(56), nil }
func (stubChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{1, 2, 3}, nil
}
func (stubChain) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(1), nil
}
func (stubChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}
func (stubChain) SuggestGasTipCap(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (stubChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func TestPrintNetworkState(t *testing.T) {
	st := testSettings()
	st.GasMultiplier = 1.1
	var out bytes.Buffer
	if err := printNetworkState(context.Background(), &out, stubChain{}, st); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"chainId: 56 (ok)",
		"3 bytes",
		"gasPrice: 3.00 gwei",
		"quote: network * 1.10; gasPrice=3.30 gwei",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("debug", "json", &buf)
	log.WithField("key", "1/3").Debug("hello")
	if !strings.Contains(buf.String(), `"key":"1/3"`) || !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Errorf("json output = %s", buf.String())
	}
}
