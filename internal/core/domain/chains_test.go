package domain

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  ChainAlias
	}{
		{"evm", ChainEVM},
		{"  EVM ", ChainEVM},
		{"worldchain", ChainWorldchainSepolia},
		{"World", ChainWorldchainSepolia},
		{"worldchain_sepolia", ChainWorldchainSepolia},
		{"solana_devnet", ChainSolana},
		{"SOL", ChainSolana},
		{"eth", ChainEthereum},
		{"arb", ChainArbitrum},
		{"bogus_chain", ChainAlias("bogus_chain")},
		{"", ChainAlias("")},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Bogus", "  x  "}
	for key, target := range aliasTable {
		inputs = append(inputs, key, string(target))
	}
	for _, alias := range Known() {
		inputs = append(inputs, string(alias))
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(string(once))
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestAliasTargetsAreRegistered(t *testing.T) {
	for key, target := range aliasTable {
		if !target.IsKnown() {
			t.Errorf("alias %q maps to unregistered chain %q", key, target)
		}
	}
}

func TestFamilyAndStem(t *testing.T) {
	if ChainSolana.Family() != FamilySolana {
		t.Errorf("expected solana family, got %s", ChainSolana.Family())
	}
	if ChainWorldchainSepolia.Family() != FamilyEVM {
		t.Errorf("expected evm family, got %s", ChainWorldchainSepolia.Family())
	}
	if got := ChainAlias("bogus_chain").Family(); got != FamilyUnknown {
		t.Errorf("expected unknown family, got %s", got)
	}
	if got := ChainAlias("my-chain").EnvStem(); got != "MY_CHAIN" {
		t.Errorf("expected MY_CHAIN stem, got %s", got)
	}
	if got := ChainWorldchainSepolia.EnvStem(); got != "WORLDCHAIN_SEPOLIA" {
		t.Errorf("expected WORLDCHAIN_SEPOLIA stem, got %s", got)
	}
}
