package transport

import (
	"context"
	"fmt"
	"time"
)

// CoinbaseConfig configures a Coinbase-SDK-style transport: an injected
// channel dressed with app metadata, dialed directly rather than discovered.
type CoinbaseConfig struct {
	AppName      string
	AppLogoURL   string
	RPCURL       string
	PollInterval time.Duration
}

// DialCoinbase connects a Coinbase-flavored transport. The wire behavior is
// the injected transport's; only construction and identity differ.
func DialCoinbase(ctx context.Context, cfg CoinbaseConfig) (*Injected, error) {
	if cfg.AppName == "" {
		return nil, fmt.Errorf("coinbase transport: app name is required")
	}
	return DialInjected(ctx, InjectedConfig{
		RPCURL:       cfg.RPCURL,
		PollInterval: cfg.PollInterval,
	})
}

// CoinbaseDescriptor builds an out-of-band descriptor dialed lazily during
// Connect.
func CoinbaseDescriptor(cfg CoinbaseConfig) Descriptor {
	return Descriptor{
		Info: NewProviderInfo(cfg.AppName+" (Coinbase Wallet)", "com.coinbase.wallet"),
		Kind: KindCoinbase,
		Dial: func(ctx context.Context) (Transport, error) {
			return DialCoinbase(ctx, cfg)
		},
	}
}
