package chains

// Well-known EVM networks, available without any external configuration.
// Chain ids follow the public chain registry.
var defaults = []Config{
	{
		Name:              "ethereum",
		ChainID:           1,
		DisplayName:       "Ethereum Mainnet",
		NativeCurrency:    Currency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:           []string{"https://eth.llamarpc.com"},
		BlockExplorerURLs: []string{"https://etherscan.io"},
	},
	{
		Name:              "sepolia",
		ChainID:           11155111,
		DisplayName:       "Sepolia Testnet",
		NativeCurrency:    Currency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:           []string{"https://rpc.sepolia.org"},
		BlockExplorerURLs: []string{"https://sepolia.etherscan.io"},
	},
	{
		Name:              "polygon",
		ChainID:           137,
		DisplayName:       "Polygon Mainnet",
		NativeCurrency:    Currency{Name: "POL", Symbol: "POL", Decimals: 18},
		RPCURLs:           []string{"https://polygon-rpc.com"},
		BlockExplorerURLs: []string{"https://polygonscan.com"},
	},
	{
		Name:              "polygon-amoy",
		ChainID:           80002,
		DisplayName:       "Polygon Amoy Testnet",
		NativeCurrency:    Currency{Name: "POL", Symbol: "POL", Decimals: 18},
		RPCURLs:           []string{"https://rpc-amoy.polygon.technology"},
		BlockExplorerURLs: []string{"https://amoy.polygonscan.com"},
	},
	{
		Name:              "base",
		ChainID:           8453,
		DisplayName:       "Base",
		NativeCurrency:    Currency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:           []string{"https://mainnet.base.org"},
		BlockExplorerURLs: []string{"https://basescan.org"},
	},
	{
		Name:              "base-sepolia",
		ChainID:           84532,
		DisplayName:       "Base Sepolia",
		NativeCurrency:    Currency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:           []string{"https://sepolia.base.org"},
		BlockExplorerURLs: []string{"https://sepolia.basescan.org"},
	},
	{
		Name:              "bsc",
		ChainID:           56,
		DisplayName:       "BNB Smart Chain",
		NativeCurrency:    Currency{Name: "BNB", Symbol: "BNB", Decimals: 18},
		RPCURLs:           []string{"https://bsc-dataseed.binance.org"},
		BlockExplorerURLs: []string{"https://bscscan.com"},
	},
	{
		Name:              "avalanche",
		ChainID:           43114,
		DisplayName:       "Avalanche C-Chain",
		NativeCurrency:    Currency{Name: "AVAX", Symbol: "AVAX", Decimals: 18},
		RPCURLs:           []string{"https://api.avax.network/ext/bc/C/rpc"},
		BlockExplorerURLs: []string{"https://snowtrace.io"},
	},
	{
		Name:              "arbitrum",
		ChainID:           42161,
		DisplayName:       "Arbitrum One",
		NativeCurrency:    Currency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:           []string{"https://arb1.arbitrum.io/rpc"},
		BlockExplorerURLs: []string{"https://arbiscan.io"},
	},
	{
		Name:              "optimism",
		ChainID:           10,
		DisplayName:       "OP Mainnet",
		NativeCurrency:    Currency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs:           []string{"https://mainnet.optimism.io"},
		BlockExplorerURLs: []string{"https://optimistic.etherscan.io"},
	},
}

// DefaultRegistry returns a registry preloaded with the well-known networks.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, cfg := range defaults {
		if err := r.Register(cfg); err != nil {
			panic(err)
		}
	}
	return r
}
