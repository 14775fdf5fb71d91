package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

const defaultPollInterval = 4 * time.Second

// InjectedConfig configures an injected-style transport: a directly reachable
// wallet endpoint (HTTP, WebSocket or IPC) that does not push chain or
// account notifications, so the transport synthesizes them by polling.
type InjectedConfig struct {
	RPCURL       string
	PollInterval time.Duration
}

// Injected is the window.ethereum analog: requests are forwarded verbatim to
// the wallet endpoint, chainChanged and accountsChanged are derived by
// polling eth_chainId and eth_accounts (the same HTTP-compatibility fallback
// wallets apply when no push channel exists).
type Injected struct {
	emitter

	client *rpc.Client
	cancel context.CancelFunc
	done   chan struct{}

	lastChain    json.RawMessage
	lastAccounts json.RawMessage
}

// DialInjected connects to the wallet endpoint and starts the notification
// poller.
func DialInjected(ctx context.Context, cfg InjectedConfig) (*Injected, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("injected transport: rpc url is required")
	}

	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("injected transport: dial %s: %w", cfg.RPCURL, err)
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	t := &Injected{
		client: client,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.poll(pollCtx, interval)

	return t, nil
}

// Request implements Transport.
func (t *Injected) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := t.client.CallContext(ctx, &result, method, params...); err != nil {
		return nil, err
	}
	return result, nil
}

// On implements Transport.
func (t *Injected) On(event Event, handler func(json.RawMessage)) (remove func()) {
	return t.on(event, handler)
}

// Close implements Transport.
func (t *Injected) Close() {
	t.cancel()
	<-t.done
	t.client.Close()
}

// ListenerCount reports the number of registered handlers.
func (t *Injected) ListenerCount() int {
	return t.listenerCount()
}

func (t *Injected) poll(ctx context.Context, interval time.Duration) {
	defer close(t.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce(ctx)
		}
	}
}

func (t *Injected) pollOnce(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var chain json.RawMessage
	if err := t.client.CallContext(callCtx, &chain, "eth_chainId"); err == nil {
		if t.lastChain != nil && !bytes.Equal(chain, t.lastChain) {
			t.emit(EventChainChanged, chain)
		}
		t.lastChain = chain
	}

	var accounts json.RawMessage
	if err := t.client.CallContext(callCtx, &accounts, "eth_accounts"); err == nil {
		if t.lastAccounts != nil && !bytes.Equal(accounts, t.lastAccounts) {
			t.emit(EventAccountsChanged, accounts)
		}
		t.lastAccounts = accounts
	}
}

// InjectedDescriptor wraps an already-connected injected transport in a
// descriptor for the connect flow. Trust- and Coinbase-flavored injected
// globals differ only by their rdns.
func InjectedDescriptor(info ProviderInfo, t Transport) Descriptor {
	return Descriptor{Info: info, Kind: KindInjected, Transport: t}
}
