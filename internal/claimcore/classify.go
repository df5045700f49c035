package claimcore

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// Substrings that map a final claim error to a benign outcome. The contract's wording is the
// only signal we have, so this list is the whole contract of Classify.
var (
	alreadyClaimedMarkers = []string{"already claimed"}
	notEligibleMarkers    = []string{"not whitelisted", "whitelist"}
)

// Classify maps the last submit error to an outcome kind. A decoded Error(string) revert
// payload is checked first, then the raw message. Matching is case-insensitive.
func Classify(err error) OutcomeKind {
	if err == nil {
		return OutcomeSubmitted
	}
	texts := []string{err.Error()}
	if reason := RevertReason(err); reason != "" {
		texts = append([]string{reason}, texts...)
	}
	for _, t := range texts {
		s := strings.ToLower(t)
		for _, m := range alreadyClaimedMarkers {
			if strings.Contains(s, m) {
				return OutcomeAlreadyClaimed
			}
		}
		for _, m := range notEligibleMarkers {
			if strings.Contains(s, m) {
				return OutcomeNotEligible
			}
		}
	}
	return OutcomeFailed
}

// RevertReason decodes an Error(string) payload carried as JSON-RPC error data, if any.
func RevertReason(err error) string {
	var de rpc.DataError
	if !errors.As(err, &de) {
		return ""
	}
	s, ok := de.ErrorData().(string)
	if !ok || !strings.HasPrefix(s, "0x") {
		return ""
	}
	reason, uerr := abi.UnpackRevert(common.FromHex(s))
	if uerr != nil {
		return ""
	}
	return reason
}

// Message fragments per RPC class, checked in order after the structured checks.
var rpcErrorClasses = []struct {
	class string
	frags []string
}{
	{"rpc_timeout", []string{"context deadline exceeded", "client.timeout exceeded", "i/o timeout", "tls handshake timeout"}},
	{"rpc_rate_limited", []string{"too many requests", "-32005", "429"}},
	{"rpc_unavailable", []string{"connection reset", "connection refused", "broken pipe", "eof", "502", "503", "504"}},
}

// ClassifyRPCError returns a coarse class for RPC transport errors:
// rpc_timeout, rpc_rate_limited, rpc_unavailable or rpc_error.
func ClassifyRPCError(err error) string {
	if err == nil {
		return ""
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return "rpc_timeout"
	}
	var he rpc.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == http.StatusTooManyRequests:
			return "rpc_rate_limited"
		case he.StatusCode >= http.StatusInternalServerError:
			return "rpc_unavailable"
		}
	}
	s := strings.ToLower(err.Error())
	for _, c := range rpcErrorClasses {
		for _, f := range c.frags {
			if strings.Contains(s, f) {
				return c.class
			}
		}
	}
	return "rpc_error"
}
