// Package types holds the shared data model of the wallet session library:
// session state, chain identifiers and the error taxonomy surfaced to callers.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SessionState is the lifecycle state of the controller. Exactly one state is
// active at a time; operations that would overlap are rejected instead of
// interleaved.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateSwitchingChain
	StateSending
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSwitchingChain:
		return "switching_chain"
	case StateSending:
		return "sending"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Busy reports whether an operation is in flight in this state.
func (s SessionState) Busy() bool {
	return s == StateConnecting || s == StateSwitchingChain || s == StateSending
}

// ChainMismatchPolicy decides what happens when the chain id reported by the
// wallet after a switch settles disagrees with the requested target.
type ChainMismatchPolicy int

const (
	// MismatchFail fails the switch with CHAIN_SWITCH_FAILED.
	MismatchFail ChainMismatchPolicy = iota
	// MismatchAdopt silently adopts whatever chain the wallet ended up on.
	MismatchAdopt
)

func (p ChainMismatchPolicy) String() string {
	if p == MismatchAdopt {
		return "adopt"
	}
	return "fail"
}

// ParseChainID normalizes a chain id in any of the representations wallets
// emit: "0x89", "137", or a bare number.
func ParseChainID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty chain id")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		id, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hex chain id %q: %w", s, err)
		}
		return id, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return id, nil
}

// DecodeChainID normalizes a raw JSON chain-changed payload. Wallets disagree
// on the encoding: most send a quoted hex string, some send a plain number.
func DecodeChainID(raw json.RawMessage) (uint64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseChainID(s)
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	return 0, fmt.Errorf("undecodable chain id payload %s", string(raw))
}

// HexChainID renders a chain id the way wallet_switchEthereumChain wants it.
func HexChainID(id uint64) string {
	return "0x" + strconv.FormatUint(id, 16)
}
