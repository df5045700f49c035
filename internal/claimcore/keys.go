package claimcore

import (
	"bufio"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AccountKey is a validated signing key and the address it controls.
type AccountKey struct {
	Hex     string // canonical 0x-prefixed form
	Private *ecdsa.PrivateKey
	Address common.Address
}

// KeyError reports a secret that does not parse to a signing key.
type KeyError struct {
	Err error
}

func (e *KeyError) Error() string { return "bad private key: " + e.Err.Error() }
func (e *KeyError) Unwrap() error { return e.Err }

// ParsePrivateKey normalizes a hex secret (with / without 0x) and derives its address.
func ParsePrivateKey(raw string) (*AccountKey, error) {
	h := strings.TrimSpace(raw)
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	if h == "" {
		return nil, &KeyError{Err: errors.New("empty private key")}
	}
	prv, err := gethcrypto.HexToECDSA(h)
	if err != nil {
		return nil, &KeyError{Err: err}
	}
	return &AccountKey{
		Hex:     "0x" + strings.ToLower(h),
		Private: prv,
		Address: gethcrypto.PubkeyToAddress(prv.PublicKey),
	}, nil
}

// LoadKeyList reads one secret per line. Blank lines and lines starting with '#' are skipped.
// Entries are returned as written; validation happens per key so one bad line never blocks the batch.
func LoadKeyList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for first := true; sc.Scan(); first = false {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read key list: %w", err)
	}
	return out, nil
}

// ReadKeyFile is LoadKeyList over a file path.
func ReadKeyFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key list: %w", err)
	}
	defer f.Close()
	return LoadKeyList(f)
}
