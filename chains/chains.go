// Package chains holds the static chain configuration consumed by the session
// controller: a registry mapping logical chain names to their wallet-facing
// parameters (chain id, native currency, RPC endpoints, explorers).
package chains

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/evmkit/walletsession/types"
)

// Currency describes the native currency of a chain as wallets expect it in
// wallet_addEthereumChain requests.
type Currency struct {
	Name     string `json:"name" mapstructure:"name" validate:"required"`
	Symbol   string `json:"symbol" mapstructure:"symbol" validate:"required"`
	Decimals int    `json:"decimals" mapstructure:"decimals" validate:"required,gt=0"`
}

// Config is a single chain entry. Read-only to the controller.
type Config struct {
	Name              string   `json:"name" mapstructure:"name" validate:"required,lowercase"`
	ChainID           uint64   `json:"chainId" mapstructure:"chain_id" validate:"required"`
	DisplayName       string   `json:"chainName" mapstructure:"display_name" validate:"required"`
	NativeCurrency    Currency `json:"nativeCurrency" mapstructure:"native_currency"`
	RPCURLs           []string `json:"rpcUrls" mapstructure:"rpc_urls" validate:"min=1,dive,url"`
	BlockExplorerURLs []string `json:"blockExplorerUrls" mapstructure:"block_explorer_urls" validate:"dive,url"`
}

// AddChainParams is the parameter object for a wallet_addEthereumChain
// request built from a Config.
type AddChainParams struct {
	ChainID           string   `json:"chainId"`
	ChainName         string   `json:"chainName"`
	NativeCurrency    Currency `json:"nativeCurrency"`
	RPCURLs           []string `json:"rpcUrls"`
	BlockExplorerURLs []string `json:"blockExplorerUrls,omitempty"`
}

// AddChainParams renders the config for wallet_addEthereumChain.
func (c Config) AddChainParams() AddChainParams {
	return AddChainParams{
		ChainID:           types.HexChainID(c.ChainID),
		ChainName:         c.DisplayName,
		NativeCurrency:    c.NativeCurrency,
		RPCURLs:           c.RPCURLs,
		BlockExplorerURLs: c.BlockExplorerURLs,
	}
}

// Registry is a set of chain configs keyed by logical name.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Config
	validate *validator.Validate
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]Config),
		validate: validator.New(),
	}
}

// Register validates and stores a chain config. Registering the same name
// again overwrites the previous entry.
func (r *Registry) Register(cfg Config) error {
	if err := r.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid chain config %q: %w", cfg.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[cfg.Name] = cfg
	return nil
}

// Get looks up a chain by logical name.
func (r *Registry) Get(name string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.byName[name]
	if !ok {
		return Config{}, types.NewError(types.ErrUnknownChain,
			fmt.Sprintf("chain %q is not configured", name), nil)
	}
	return cfg, nil
}

// ByChainID looks up a chain by numeric id.
func (r *Registry) ByChainID(id uint64) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cfg := range r.byName {
		if cfg.ChainID == id {
			return cfg, true
		}
	}
	return Config{}, false
}

// List returns all configs sorted by name.
func (r *Registry) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Config, 0, len(r.byName))
	for _, cfg := range r.byName {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
