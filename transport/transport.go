// Package transport abstracts a connected wallet's communication channel: a
// request/response surface for signing and chain calls plus asynchronous
// account and chain change notifications. One implementation exists per
// vendor flavor (injected, WalletConnect pairing, Coinbase), selected at
// discovery or construction time instead of string-matching on rdns.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
)

// Event names pushed by wallet transports.
type Event string

const (
	EventChainChanged    Event = "chainChanged"
	EventAccountsChanged Event = "accountsChanged"
	EventDisconnect      Event = "disconnect"
)

// Wallet JSON-RPC error codes (EIP-1193 / EIP-1474).
const (
	CodeUserRejected      = 4001
	CodeUnrecognizedChain = 4902
)

// Transport is the capability set every wallet channel exposes. On returns a
// scoped remove function; callers release exactly the handlers they added.
type Transport interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	On(event Event, handler func(payload json.RawMessage)) (remove func())
	Close()
}

// PairingTransport is implemented by transports with an explicit session to
// tear down (WalletConnect-style pairings). Injected browser transports
// generally do not expose this.
type PairingTransport interface {
	Transport
	Disconnect(ctx context.Context) error
}

// ChainNotifier is implemented by transports that need a synthetic
// chainChanged re-emitted after a programmatic switch, because the underlying
// channel does not always deliver one on its own.
type ChainNotifier interface {
	EmitChainChanged(chainID uint64)
}

// RPCError is a wallet-originated JSON-RPC error with a numeric code.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// ErrorCode implements the go-ethereum rpc.Error interface.
func (e *RPCError) ErrorCode() int { return e.Code }

// CodeOf extracts the JSON-RPC error code from err, whether it came from a
// go-ethereum client or one of the transports in this package.
func CodeOf(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// emitter is the shared listener table embedded by every transport.
type emitter struct {
	mu       sync.Mutex
	seq      int
	handlers map[Event]map[int]func(json.RawMessage)
}

func (e *emitter) on(event Event, handler func(json.RawMessage)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[Event]map[int]func(json.RawMessage))
	}
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[int]func(json.RawMessage))
	}
	e.seq++
	id := e.seq
	e.handlers[event][id] = handler

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[event], id)
	}
}

// emit delivers the payload to a snapshot of the current handlers. Handlers
// run outside the lock so they may add or remove listeners.
func (e *emitter) emit(event Event, payload json.RawMessage) {
	e.mu.Lock()
	snapshot := make([]func(json.RawMessage), 0, len(e.handlers[event]))
	for _, h := range e.handlers[event] {
		snapshot = append(snapshot, h)
	}
	e.mu.Unlock()

	for _, h := range snapshot {
		h(payload)
	}
}

func (e *emitter) listenerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, m := range e.handlers {
		n += len(m)
	}
	return n
}
