package claimcore

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Network is what the wallet needs to register a chain.
type Network struct {
	Name     string
	RPCURL   string
	ChainID  *big.Int
	Symbol   string
	Explorer string
}

// Page is the browser-automation side of a session.
type Page interface {
	PageFetcher
	Navigate(ctx context.Context, url string) error
	// ClickFirstByText clicks the first element of the given tags whose text contains any of
	// the substrings. Finding nothing is (false, nil).
	ClickFirstByText(ctx context.Context, substrings []string, tags ...string) (bool, error)
}

// Wallet is the injected wallet-extension controller.
// Approve and Sign report false when no confirmation was pending.
type Wallet interface {
	AddNetwork(ctx context.Context, n Network) error
	SwitchNetwork(ctx context.Context, name string) error
	ImportKey(ctx context.Context, hexKey string) error
	Approve(ctx context.Context) (bool, error)
	Sign(ctx context.Context) (bool, error)
	ForgetAccount(ctx context.Context, addr common.Address) error
}

// Session is one exclusive browser+wallet instance, owned by a single key.
type Session interface {
	Page() Page
	Wallet() Wallet
	Close() error
}

// SessionFactory opens a fresh session for each key.
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

// ConnectLabels are the button texts common claim UIs use for connect / sign-in.
var ConnectLabels = []string{"connect wallet", "connect", "sign in", "login"}

// Connect clicks a connect control and confirms in the wallet. It is best effort:
// some claim flows have no explicit connect step, so it only reports whether anything happened.
func Connect(ctx context.Context, s Session) bool {
	clicked, err := s.Page().ClickFirstByText(ctx, ConnectLabels, "button", "a")
	if err != nil {
		clicked = false
	}
	approved, err := s.Wallet().Approve(ctx)
	if err != nil {
		approved = false
	}
	signed, err := s.Wallet().Sign(ctx)
	if err != nil {
		signed = false
	}
	return clicked || approved || signed
}
