package claimcore

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestPreflightCheck(t *testing.T) {
	account := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tests := []struct {
		name   string
		mutate func(*fakeChain)
		reason string
	}{
		{name: "ok", mutate: func(*fakeChain) {}},
		{name: "wrong chain", mutate: func(c *fakeChain) { c.chainID = big.NewInt(1) }, reason: ReasonWrongChain},
		{name: "no contract", mutate: func(c *fakeChain) { c.code = nil }, reason: ReasonNoContract},
		{name: "no balance", mutate: func(c *fakeChain) { c.balance = big.NewInt(0) }, reason: ReasonNoBalance},
		{name: "chain id rpc error", mutate: func(c *fakeChain) { c.chainErr = errBoom }, reason: ReasonRPCError},
		{name: "balance rpc error", mutate: func(c *fakeChain) { c.balErr = errBoom }, reason: ReasonRPCError},
		// wrong chain wins over the later checks
		{name: "first failure only", mutate: func(c *fakeChain) {
			c.chainID = big.NewInt(97)
			c.code = nil
			c.balance = big.NewInt(0)
		}, reason: ReasonWrongChain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := healthyChain()
			tt.mutate(chain)
			pre := Preflight{Chain: chain, ExpectedChainID: big.NewInt(56), Contract: testContract}
			f := pre.Check(context.Background(), account)
			if tt.reason == "" {
				if f != nil {
					t.Fatalf("unexpected failure: %v", f)
				}
				return
			}
			if f == nil {
				t.Fatalf("expected %q failure", tt.reason)
			}
			if f.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", f.Reason, tt.reason)
			}
			if !strings.HasPrefix(f.Error(), tt.reason) {
				t.Errorf("Error() = %q", f.Error())
			}
		})
	}
}
