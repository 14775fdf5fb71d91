package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"github.com/evmkit/walletsession/types"
)

const (
	defaultRelayURL    = "wss://relay.walletconnect.com"
	defaultPurgeDelay  = 500 * time.Millisecond
	pairingStorePrefix = "wc@2:"
)

// PairingStore persists pairing metadata between runs. Stale entries cause
// reconnect-on-reload stickiness, so Disconnect purges them shortly after the
// session ends.
type PairingStore interface {
	Set(key, value string)
	Get(key string) (string, bool)
	Keys() []string
	Delete(key string)
}

// MemoryStore is an in-process PairingStore.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// WalletConnectConfig configures a pairing transport. WalletConnect is not
// discovered by broadcast; it is constructed directly from a project id and
// an explicit allow-list of chain ids.
type WalletConnectConfig struct {
	ProjectID  string
	RelayURL   string
	ChainIDs   []uint64
	AppName    string
	AppURL     string
	Store      PairingStore
	PurgeDelay time.Duration
}

// WalletConnect is a pairing-based transport. It carries an explicit
// disconnect, a pairing URI for the QR/deep-link flow, and re-emits synthetic
// chainChanged notifications after programmatic switches because the relay
// does not always deliver one.
type WalletConnect struct {
	emitter

	cfg    WalletConnectConfig
	client *rpc.Client
	topic  string
}

// DialWalletConnect establishes the relay connection and records the pairing.
func DialWalletConnect(ctx context.Context, cfg WalletConnectConfig) (*WalletConnect, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("walletconnect: project id is required")
	}
	if len(cfg.ChainIDs) == 0 {
		return nil, fmt.Errorf("walletconnect: at least one allowed chain id is required")
	}
	if cfg.RelayURL == "" {
		cfg.RelayURL = defaultRelayURL
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.PurgeDelay <= 0 {
		cfg.PurgeDelay = defaultPurgeDelay
	}

	client, err := rpc.DialContext(ctx, cfg.RelayURL+"?projectId="+cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("walletconnect: dial relay: %w", err)
	}

	t := &WalletConnect{
		cfg:    cfg,
		client: client,
		topic:  uuid.NewString(),
	}
	t.cfg.Store.Set(pairingStorePrefix+"pairing:"+t.topic, t.PairingURI())
	return t, nil
}

// PairingURI returns the wc: URI shown as a QR code or deep link.
func (t *WalletConnect) PairingURI() string {
	chains := make([]string, 0, len(t.cfg.ChainIDs))
	for _, id := range t.cfg.ChainIDs {
		chains = append(chains, "eip155:"+types.HexChainID(id))
	}
	return fmt.Sprintf("wc:%s@2?relay-protocol=irn&projectId=%s&chains=%s",
		t.topic, t.cfg.ProjectID, strings.Join(chains, ","))
}

// Request implements Transport.
func (t *WalletConnect) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := t.client.CallContext(ctx, &result, method, params...); err != nil {
		return nil, err
	}
	return result, nil
}

// On implements Transport.
func (t *WalletConnect) On(event Event, handler func(json.RawMessage)) (remove func()) {
	return t.on(event, handler)
}

// Close implements Transport.
func (t *WalletConnect) Close() {
	t.client.Close()
}

// Disconnect implements PairingTransport. The session delete is best-effort;
// the pairing metadata purge is deferred briefly so an in-flight relay write
// does not recreate the keys.
func (t *WalletConnect) Disconnect(ctx context.Context) error {
	var result json.RawMessage
	err := t.client.CallContext(ctx, &result, "wc_sessionDelete", map[string]any{
		"topic":  t.topic,
		"reason": "user disconnect",
	})

	t.emit(EventDisconnect, nil)

	store := t.cfg.Store
	time.AfterFunc(t.cfg.PurgeDelay, func() {
		for _, key := range store.Keys() {
			if strings.HasPrefix(key, pairingStorePrefix) {
				store.Delete(key)
			}
		}
	})

	return err
}

// EmitChainChanged implements ChainNotifier.
func (t *WalletConnect) EmitChainChanged(chainID uint64) {
	payload, _ := json.Marshal(types.HexChainID(chainID))
	t.emit(EventChainChanged, payload)
}

// ListenerCount reports the number of registered handlers.
func (t *WalletConnect) ListenerCount() int {
	return t.listenerCount()
}

// WalletConnectDescriptor builds an out-of-band descriptor whose transport is
// dialed lazily during Connect.
func WalletConnectDescriptor(cfg WalletConnectConfig) Descriptor {
	return Descriptor{
		Info: NewProviderInfo("WalletConnect", "com.walletconnect"),
		Kind: KindWalletConnect,
		Dial: func(ctx context.Context) (Transport, error) {
			return DialWalletConnect(ctx, cfg)
		},
	}
}
