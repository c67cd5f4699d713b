package config

import (
	"strings"

	"github.com/0xPexy/sentra-profit/internal/valuation"
)

// Network describes one chain the trace service can replay.
type Network struct {
	ChainID            uint64
	ID                 string
	DisplayName        string
	NativeTokenAddress string
	NativeSymbol       string
	PriceNamespace     string
	RPCURL             string
	ExplorerURL        string
}

var SupportedChains = []Network{
	{
		ChainID:            1,
		ID:                 "ethereum",
		DisplayName:        "Ethereum",
		NativeTokenAddress: "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		NativeSymbol:       "ETH",
		PriceNamespace:     "ethereum",
		RPCURL:             "https://rpc.ankr.com/eth",
		ExplorerURL:        "https://etherscan.io",
	},
	{
		ChainID:            137,
		ID:                 "polygon",
		DisplayName:        "Polygon",
		NativeTokenAddress: "0x0eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		NativeSymbol:       "MATIC",
		PriceNamespace:     "polygon",
		RPCURL:             "https://rpc.ankr.com/polygon",
		ExplorerURL:        "https://polygonscan.com",
	},
	{
		ChainID:            10,
		ID:                 "optimism",
		DisplayName:        "Optimism",
		NativeTokenAddress: "0x1eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		NativeSymbol:       "ETH",
		PriceNamespace:     "optimism",
		RPCURL:             "https://mainnet.optimism.io",
		ExplorerURL:        "https://optimistic.etherscan.io",
	},
	{
		ChainID:            56,
		ID:                 "binance",
		DisplayName:        "Binance",
		NativeTokenAddress: "0x2eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		NativeSymbol:       "BNB",
		PriceNamespace:     "bsc",
		RPCURL:             "https://rpc.ankr.com/bsc",
		ExplorerURL:        "https://bscscan.com",
	},
	{
		ChainID:            43112,
		ID:                 "avalanche",
		DisplayName:        "Avalanche",
		NativeTokenAddress: "0x3eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		NativeSymbol:       "AVAX",
		PriceNamespace:     "avax",
		RPCURL:             "https://rpc.ankr.com/avalanche",
		ExplorerURL:        "https://snowtrace.io",
	},
	{
		ChainID:            42161,
		ID:                 "arbitrum",
		DisplayName:        "Arbitrum",
		NativeTokenAddress: "0x4eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		NativeSymbol:       "ETH",
		PriceNamespace:     "arbitrum",
		RPCURL:             "https://arb1.arbitrum.io/rpc",
		ExplorerURL:        "https://arbiscan.io",
	},
	{
		ChainID:            250,
		ID:                 "fantom",
		DisplayName:        "Fantom",
		NativeTokenAddress: "0x5eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		NativeSymbol:       "FTM",
		PriceNamespace:     "fantom",
		RPCURL:             "https://rpcapi.fantom.network",
		ExplorerURL:        "https://ftmscan.com",
	},
}

// ChainByID finds a supported chain by numeric chain id.
func ChainByID(id uint64) (Network, bool) {
	for _, n := range SupportedChains {
		if n.ChainID == id {
			return n, true
		}
	}
	return Network{}, false
}

// ChainByName finds a supported chain by its trace-service name.
func ChainByName(name string) (Network, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range SupportedChains {
		if n.ID == name {
			return n, true
		}
	}
	return Network{}, false
}

func (n Network) Valuation() valuation.Chain {
	return valuation.Chain{
		ID:                 n.ID,
		ChainID:            n.ChainID,
		NativeTokenAddress: n.NativeTokenAddress,
		PriceNamespace:     n.PriceNamespace,
	}
}

type ChainConfig struct {
	Network Network
	RPCURL  string
}

func loadChain() ChainConfig {
	network, ok := ChainByID(u64env("CHAIN_ID", 1))
	if !ok {
		logger().Warnf("unsupported CHAIN_ID %s, falling back to %s", getenv("CHAIN_ID", ""), SupportedChains[0].ID)
		network = SupportedChains[0]
	}
	return ChainConfig{
		Network: network,
		RPCURL:  getenv("CHAIN_RPC_URL", network.RPCURL),
	}
}
