package domain

import (
	"sort"
	"strings"
)

// ChainAlias is the canonical lowercase identifier of a supported network.
type ChainAlias string

// Family groups chains that speak the same health protocol.
type Family string

const (
	FamilyEVM     Family = "evm"
	FamilySolana  Family = "solana"
	FamilyUnknown Family = "unknown"
)

const (
	// Chain aliases
	ChainEVM               ChainAlias = "evm"
	ChainSolana            ChainAlias = "solana"
	ChainWorldchainSepolia ChainAlias = "worldchain_sepolia"
	ChainEthereum          ChainAlias = "ethereum"
	ChainBase              ChainAlias = "base"
	ChainArbitrum          ChainAlias = "arbitrum"
)

// ChainInfo describes a registered chain and where its endpoints come from.
type ChainInfo struct {
	Alias  ChainAlias
	Family Family
	// EnvStem prefixes the <STEM>_RPC_URL and <STEM>_RPC_URLS keys.
	EnvStem string
	// LegacyKeys are consulted after the family-wide fallbacks, in order.
	LegacyKeys []string
	// DerivedTemplate is formatted with the value of DerivedKeyEnv.
	DerivedTemplate string
	DerivedKeyEnv   string
}

// aliasTable maps human-entered spellings onto canonical aliases.
// Targets must never appear as keys, which keeps Normalize idempotent.
var aliasTable = map[string]ChainAlias{
	"worldchain":         ChainWorldchainSepolia,
	"world":              ChainWorldchainSepolia,
	"worldchain-sepolia": ChainWorldchainSepolia,
	"solana_devnet":      ChainSolana,
	"solana-devnet":      ChainSolana,
	"sol":                ChainSolana,
	"eth":                ChainEthereum,
	"mainnet":            ChainEthereum,
	"arb":                ChainArbitrum,
}

var registry = map[ChainAlias]ChainInfo{
	ChainEVM: {
		Alias:      ChainEVM,
		Family:     FamilyEVM,
		EnvStem:    "EVM",
		LegacyKeys: []string{"ETHEREUM_RPC_URL", "BASE_RPC_URL", "ARBITRUM_RPC_URL"},
	},
	ChainSolana: {
		Alias:      ChainSolana,
		Family:     FamilySolana,
		EnvStem:    "SOLANA",
		LegacyKeys: []string{"SOLANA_DEVNET_RPC_URL"},
	},
	ChainWorldchainSepolia: {
		Alias:           ChainWorldchainSepolia,
		Family:          FamilyEVM,
		EnvStem:         "WORLDCHAIN_SEPOLIA",
		DerivedTemplate: "https://worldchain-sepolia.g.alchemy.com/v2/%s",
		DerivedKeyEnv:   "ALCHEMY_API_KEY",
	},
	ChainEthereum: {Alias: ChainEthereum, Family: FamilyEVM, EnvStem: "ETHEREUM"},
	ChainBase:     {Alias: ChainBase, Family: FamilyEVM, EnvStem: "BASE"},
	ChainArbitrum: {Alias: ChainArbitrum, Family: FamilyEVM, EnvStem: "ARBITRUM"},
}

// Normalize maps any spelling of a chain name onto its canonical alias.
// Unknown names are returned lowercased and trimmed.
func Normalize(input string) ChainAlias {
	key := strings.ToLower(strings.TrimSpace(input))
	if alias, ok := aliasTable[key]; ok {
		return alias
	}
	return ChainAlias(key)
}

// Lookup returns the registry entry for a canonical alias.
func Lookup(alias ChainAlias) (ChainInfo, bool) {
	info, ok := registry[alias]
	return info, ok
}

// Known returns all registered aliases in sorted order.
func Known() []ChainAlias {
	out := make([]ChainAlias, 0, len(registry))
	for alias := range registry {
		out = append(out, alias)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Family returns the protocol family of the alias.
func (a ChainAlias) Family() Family {
	if info, ok := registry[a]; ok {
		return info.Family
	}
	return FamilyUnknown
}

// EnvStem returns the environment key prefix for the alias. Unregistered
// aliases use their upper-cased name.
func (a ChainAlias) EnvStem() string {
	if info, ok := registry[a]; ok {
		return info.EnvStem
	}
	return strings.ToUpper(strings.ReplaceAll(string(a), "-", "_"))
}

// IsKnown reports whether the alias is registered.
func (a ChainAlias) IsKnown() bool {
	_, ok := registry[a]
	return ok
}

func (a ChainAlias) String() string {
	return string(a)
}
