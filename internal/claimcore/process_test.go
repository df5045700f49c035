package claimcore

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestProcessBadKeyOpensNoSession(t *testing.T) {
	f := &fakeFactory{}
	p := newTestProcessor(f, healthyChain(), &fakeContract{})
	out := p.Process(context.Background(), "not-a-key", 1, 1)
	if out.Kind != OutcomeSkipped || out.Reason != "bad private key" {
		t.Fatalf("out = %+v", out)
	}
	if len(f.sessions) != 0 {
		t.Errorf("sessions opened = %d", len(f.sessions))
	}
	if !strings.Contains(out.Status(), "<invalid key>") {
		t.Errorf("Status() = %q", out.Status())
	}
}

func TestProcessEligibleKeySubmits(t *testing.T) {
	h, addr := newKeyHex(t)
	f := &fakeFactory{pages: []*fakePage{{status: 200, body: eligibleBody}}}
	c := &fakeContract{}
	p := newTestProcessor(f, healthyChain(), c)
	p.Gas = NewGasPolicy(0, 1.1, 0)

	out := p.Process(context.Background(), "0x"+h, 1, 1)
	if out.Kind != OutcomeSubmitted {
		t.Fatalf("kind = %s (%s)", out.Kind, out.Reason)
	}
	if out.Address != addr {
		t.Errorf("address = %s", out.Address.Hex())
	}
	s := f.sessions[0]
	if s.closed != 1 {
		t.Errorf("session closed %d times", s.closed)
	}
	if len(s.wallet.imported) != 1 || s.wallet.imported[0] != "0x"+h {
		t.Errorf("imported = %v", s.wallet.imported)
	}
	if len(s.wallet.switched) != 1 || s.wallet.switched[0] != "BSC" {
		t.Errorf("switched = %v", s.wallet.switched)
	}
	if len(s.page.navigated) != 1 || s.page.navigated[0] != p.ClaimURL {
		t.Errorf("navigated = %v", s.page.navigated)
	}
	if s.page.fetchedURL != "https://api.example.com/airdrop/v1/user/query/claim/xter-42" {
		t.Errorf("proof url = %s", s.page.fetchedURL)
	}
	// 3 gwei * 1.10
	if c.lastFee.GasPrice == nil || c.lastFee.GasPrice.Cmp(big.NewInt(3_300_000_000)) != 0 {
		t.Errorf("gas price = %v", c.lastFee.GasPrice)
	}
	if len(s.wallet.forgot) != 0 {
		t.Error("account forgotten while disabled")
	}
}

func TestProcessOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		page   *fakePage
		chain  func(*fakeChain)
		kind   OutcomeKind
		reason string
	}{
		{name: "api 404", page: &fakePage{status: 404}, kind: OutcomeNotEligible, reason: "http 404"},
		{name: "empty data", page: &fakePage{status: 200, body: `{"data":[]}`}, kind: OutcomeNotEligible, reason: "no data[0]"},
		{name: "wrong chain", page: &fakePage{status: 200, body: eligibleBody}, chain: func(c *fakeChain) { c.chainID = big.NewInt(1) }, kind: OutcomeSkipped, reason: ReasonWrongChain},
		{name: "no balance", page: &fakePage{status: 200, body: eligibleBody}, chain: func(c *fakeChain) { c.balance = new(big.Int) }, kind: OutcomeSkipped, reason: ReasonNoBalance},
		{name: "navigation error", page: &fakePage{navErr: errBoom}, kind: OutcomeFailed, reason: "open claim page"},
		{name: "panic", page: &fakePage{panicOn: "navigate"}, kind: OutcomeFailed, reason: "panic: page crashed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newKeyHex(t)
			chain := healthyChain()
			if tt.chain != nil {
				tt.chain(chain)
			}
			f := &fakeFactory{pages: []*fakePage{tt.page}}
			c := &fakeContract{}
			out := newTestProcessor(f, chain, c).Process(context.Background(), h, 1, 1)
			if out.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s (%s)", out.Kind, tt.kind, out.Reason)
			}
			if !strings.Contains(out.Reason, tt.reason) {
				t.Errorf("reason = %q, want %q", out.Reason, tt.reason)
			}
			if f.sessions[0].closed != 1 {
				t.Errorf("session closed %d times", f.sessions[0].closed)
			}
			if c.sends != 0 {
				t.Errorf("claim sent %d times on a non-submit path", c.sends)
			}
		})
	}
}

func TestProcessProofForOtherAddress(t *testing.T) {
	h, _ := newKeyHex(t)
	other := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	body := `{"data":[{"amount":"1","address":"` + other.Hex() + `","proof":["0x` + strings.Repeat("11", 32) + `"]}]}`
	f := &fakeFactory{pages: []*fakePage{{status: 200, body: body}}}
	out := newTestProcessor(f, healthyChain(), &fakeContract{}).Process(context.Background(), h, 1, 1)
	if out.Kind != OutcomeSkipped || !strings.Contains(out.Reason, other.Hex()) {
		t.Errorf("out = %+v", out)
	}
}

func TestProcessOpenFailure(t *testing.T) {
	h, _ := newKeyHex(t)
	f := &fakeFactory{openErr: errBoom}
	out := newTestProcessor(f, healthyChain(), &fakeContract{}).Process(context.Background(), h, 1, 1)
	if out.Kind != OutcomeFailed || !strings.Contains(out.Reason, "open session") {
		t.Errorf("out = %+v", out)
	}
}

func TestProcessForgetsImportedAccount(t *testing.T) {
	h, addr := newKeyHex(t)
	f := &fakeFactory{pages: []*fakePage{{status: 404}}}
	p := newTestProcessor(f, healthyChain(), &fakeContract{})
	p.ForgetImportedAccount = true
	p.Process(context.Background(), h, 1, 1)
	s := f.sessions[0]
	if len(s.wallet.forgot) != 1 || s.wallet.forgot[0] != addr {
		t.Errorf("forgot = %v", s.wallet.forgot)
	}
	if s.closed != 1 {
		t.Errorf("session closed %d times", s.closed)
	}
}
