package claimcore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PageFetcher issues a request from inside an authenticated page, so the site's cookies ride along.
type PageFetcher interface {
	FetchJSON(ctx context.Context, url string) (status int, body []byte, err error)
}

// ClaimProof is one account's eligibility payload.
type ClaimProof struct {
	Amount  *big.Int
	Proof   [][32]byte
	Address *common.Address // nil when the API does not echo it
}

// NotEligibleError means the API gave no usable proof. It is a skip, never a retry target.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string { return "no claim data (" + e.Reason + ")" }

func notEligible(format string, a ...any) error {
	return &NotEligibleError{Reason: fmt.Sprintf(format, a...)}
}

const claimQueryPath = "/airdrop/v1/user/query/claim/"

// ProofFetcher queries the eligibility API for the airdrop named by the claim URL.
type ProofFetcher struct {
	APIBase string // e.g. https://api.xter.io
}

// ClaimID is the last path segment of the claim page URL.
func ClaimID(claimURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(claimURL))
	if err != nil {
		return "", err
	}
	p := strings.TrimRight(u.Path, "/")
	id := p[strings.LastIndex(p, "/")+1:]
	if id == "" {
		return "", fmt.Errorf("claim URL %q has no path segment", claimURL)
	}
	return id, nil
}

func (f ProofFetcher) Endpoint(id string) string {
	return strings.TrimRight(f.APIBase, "/") + claimQueryPath + url.PathEscape(id)
}

// Fetch returns the proof or a *NotEligibleError. It never returns any other error.
func (f ProofFetcher) Fetch(ctx context.Context, claimURL string, page PageFetcher) (*ClaimProof, error) {
	id, err := ClaimID(claimURL)
	if err != nil {
		return nil, notEligible("bad claim url")
	}
	status, body, err := page.FetchJSON(ctx, f.Endpoint(id))
	if err != nil {
		return nil, notEligible("exception: %v", err)
	}
	if status < 200 || status > 299 {
		return nil, notEligible("http %d", status)
	}
	return ParseClaimResponse(body)
}

// ParseClaimResponse accepts the field-name variants the API has shipped over time.
func ParseClaimResponse(body []byte) (*ClaimProof, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var j map[string]any
	if err := dec.Decode(&j); err != nil || j == nil {
		return nil, notEligible("bad json")
	}
	data, _ := j["data"].([]any)
	if len(data) == 0 {
		return nil, notEligible("no data[0]")
	}
	it, _ := data[0].(map[string]any)
	if it == nil {
		return nil, notEligible("no data[0]")
	}

	var build map[string]any
	if b, ok := it["address_build"].(map[string]any); ok {
		build = b
	}

	rawAmount := firstPresent(
		field(it, "amount"),
		field(j, "amount"), field(j, "value"), field(j, "balance"), field(j, "claimAmount"),
	)
	rawProof := firstPresent(
		field(build, "merkle_proofs"),
		field(it, "proof"), field(it, "merkle_proof"),
		field(j, "proof"), field(j, "merkleProof"), field(j, "proofs"), field(j, "merkle_proof"),
	)
	rawAddr := firstPresent(field(it, "address"), field(j, "address"))

	proofList, _ := rawProof.([]any)
	if rawAmount == nil || len(proofList) == 0 {
		return nil, notEligible("bad shape")
	}
	amount, ok := parseAmount(rawAmount)
	if !ok {
		return nil, notEligible("bad amount")
	}
	if amount.Sign() == 0 {
		return nil, notEligible("bad shape")
	}

	out := &ClaimProof{Amount: amount, Proof: make([][32]byte, 0, len(proofList))}
	for i, el := range proofList {
		h, ok := parseHash(el)
		if !ok {
			return nil, notEligible("bad proof element %d", i)
		}
		out.Proof = append(out.Proof, h)
	}

	if rawAddr != nil {
		s, _ := rawAddr.(string)
		if s != "" {
			if !common.IsHexAddress(s) {
				return nil, notEligible("bad address %q", s)
			}
			a := common.HexToAddress(s)
			out.Address = &a
		}
	}
	return out, nil
}

func field(m map[string]any, k string) any {
	if m == nil {
		return nil
	}
	return m[k]
}

func firstPresent(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// parseAmount accepts decimal strings, 0x-hex strings and JSON numbers (fractions are floored).
func parseAmount(v any) (*big.Int, bool) {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if n, ok := new(big.Int).SetString(s, 10); ok {
			return n, n.Sign() >= 0
		}
		f, _, err := big.ParseFloat(s, 10, 256, big.ToZero)
		if err != nil || f.Sign() < 0 {
			return nil, false
		}
		n, _ := f.Int(nil)
		return n, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return big.NewInt(0), true
		}
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		n, ok := new(big.Int).SetString(s, base)
		if !ok || n.Sign() < 0 {
			return nil, false
		}
		return n, true
	}
	return nil, false
}

func parseHash(v any) ([32]byte, bool) {
	var h [32]byte
	s, ok := v.(string)
	if !ok {
		return h, false
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b := common.FromHex(s)
	if len(b) != 32 || len(s) != 66 {
		return h, false
	}
	copy(h[:], b)
	return h, true
}
