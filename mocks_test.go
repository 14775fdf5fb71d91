package walletsession

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/evmkit/walletsession/transport"
	"github.com/evmkit/walletsession/types"
)

// mockWallet is a scriptable wallet transport. Default behavior models a
// cooperative wallet; tests flip fields to script rejections and quirks.
type mockWallet struct {
	mu       sync.Mutex
	seq      int
	handlers map[transport.Event]map[int]func(json.RawMessage)

	chainID     uint64
	accounts    []string
	knownChains map[uint64]bool

	rejectAccounts bool
	rejectAddChain bool
	emitOnSwitch   bool
	stuckChain     bool // wallet accepts the switch but never moves

	calls  map[string]int
	lastTx map[string]any
	closed bool

	// RequestFunc, when set, overrides the scripted behavior entirely.
	RequestFunc func(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

func newMockWallet(chainID uint64, accounts ...string) *mockWallet {
	if len(accounts) == 0 {
		accounts = []string{"0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1"}
	}
	return &mockWallet{
		chainID:     chainID,
		accounts:    accounts,
		knownChains: map[uint64]bool{chainID: true},
		calls:       make(map[string]int),
	}
}

func (m *mockWallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()

	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, method, params)
	}

	switch method {
	case "eth_requestAccounts", "eth_accounts":
		if m.rejectAccounts {
			return nil, &transport.RPCError{Code: transport.CodeUserRejected, Message: "User rejected the request"}
		}
		return json.Marshal(m.accounts)

	case "eth_chainId":
		m.mu.Lock()
		defer m.mu.Unlock()
		return json.Marshal(types.HexChainID(m.chainID))

	case "wallet_switchEthereumChain":
		target, err := switchTarget(params)
		if err != nil {
			return nil, err
		}
		if !m.knownChains[target] {
			return nil, &transport.RPCError{Code: transport.CodeUnrecognizedChain, Message: "Unrecognized chain ID"}
		}
		if !m.stuckChain {
			m.mu.Lock()
			m.chainID = target
			m.mu.Unlock()
			if m.emitOnSwitch {
				m.emit(transport.EventChainChanged, mustJSON(types.HexChainID(target)))
			}
		}
		return json.RawMessage("null"), nil

	case "wallet_addEthereumChain":
		if m.rejectAddChain {
			return nil, &transport.RPCError{Code: transport.CodeUserRejected, Message: "User rejected chain add"}
		}
		target, err := addTarget(params)
		if err != nil {
			return nil, err
		}
		m.knownChains[target] = true
		return json.RawMessage("null"), nil

	case "eth_getTransactionCount":
		return json.RawMessage(`"0x7"`), nil

	case "eth_estimateGas":
		return json.RawMessage(`"0x5208"`), nil

	case "eth_gasPrice":
		return json.RawMessage(`"0x3b9aca00"`), nil

	case "eth_getBalance":
		return json.RawMessage(`"0xde0b6b3a7640000"`), nil

	case "eth_sendTransaction":
		m.mu.Lock()
		if tx, ok := params[0].(map[string]any); ok {
			m.lastTx = tx
		}
		m.mu.Unlock()
		return json.RawMessage(`"0x51a4f4a3d9f1e1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f7081920"`), nil

	case "eth_getTransactionReceipt":
		return json.RawMessage(receiptJSON), nil

	default:
		return nil, fmt.Errorf("mock wallet: unscripted method %s", method)
	}
}

func (m *mockWallet) On(event transport.Event, handler func(json.RawMessage)) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handlers == nil {
		m.handlers = make(map[transport.Event]map[int]func(json.RawMessage))
	}
	if m.handlers[event] == nil {
		m.handlers[event] = make(map[int]func(json.RawMessage))
	}
	m.seq++
	id := m.seq
	m.handlers[event][id] = handler

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers[event], id)
	}
}

func (m *mockWallet) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockWallet) emit(event transport.Event, payload json.RawMessage) {
	m.mu.Lock()
	snapshot := make([]func(json.RawMessage), 0, len(m.handlers[event]))
	for _, h := range m.handlers[event] {
		snapshot = append(snapshot, h)
	}
	m.mu.Unlock()

	for _, h := range snapshot {
		h(payload)
	}
}

func (m *mockWallet) listenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, hs := range m.handlers {
		n += len(hs)
	}
	return n
}

func (m *mockWallet) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// mockPairingWallet adds the explicit disconnect surface of pairing
// transports plus synthetic chain re-emission.
type mockPairingWallet struct {
	*mockWallet
	disconnects int
	reemitted   []uint64
}

func newMockPairingWallet(chainID uint64) *mockPairingWallet {
	return &mockPairingWallet{mockWallet: newMockWallet(chainID)}
}

func (m *mockPairingWallet) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects++
	return nil
}

func (m *mockPairingWallet) EmitChainChanged(chainID uint64) {
	m.mu.Lock()
	m.reemitted = append(m.reemitted, chainID)
	m.mu.Unlock()
	m.emit(transport.EventChainChanged, mustJSON(types.HexChainID(chainID)))
}

func (m *mockPairingWallet) reemittedChains() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint64, len(m.reemitted))
	copy(out, m.reemitted)
	return out
}

func switchTarget(params []any) (uint64, error) {
	if len(params) == 0 {
		return 0, fmt.Errorf("missing switch params")
	}
	p, ok := params[0].(map[string]string)
	if !ok {
		return 0, fmt.Errorf("unexpected switch params %T", params[0])
	}
	return types.ParseChainID(p["chainId"])
}

func addTarget(params []any) (uint64, error) {
	if len(params) == 0 {
		return 0, fmt.Errorf("missing add-chain params")
	}
	data, err := json.Marshal(params[0])
	if err != nil {
		return 0, err
	}
	var p struct {
		ChainID string `json:"chainId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, err
	}
	return types.ParseChainID(p.ChainID)
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

var receiptJSON = fmt.Sprintf(`{
	"status": "0x1",
	"cumulativeGasUsed": "0x5208",
	"gasUsed": "0x5208",
	"logs": [],
	"logsBloom": "0x%s",
	"transactionHash": "0x51a4f4a3d9f1e1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f7081920",
	"blockNumber": "0x10",
	"transactionIndex": "0x0",
	"type": "0x2"
}`, strings.Repeat("0", 512))
