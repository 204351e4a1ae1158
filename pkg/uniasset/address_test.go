package uniasset

import "testing"

func TestClassifyAddress(t *testing.T) {
	tests := []struct {
		address string
		chain   Chain
		ok      bool
	}{
		{"0x1111111111111111111111111111111111111111", ChainEthereum, true},
		{"0xAbCdEf0123456789abcdef0123456789ABCDEF01", ChainEthereum, true},
		{"SolanaDemoAddress123456789", ChainSolana, true},
		{"bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh", ChainBitcoin, true},
		{"So11111111111111111111111111111111111111112", ChainSolana, true},
		{"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", ChainBitcoin, true},
		{"0x123", "", false},
		{"hello", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		chain, ok := ClassifyAddress(tt.address)
		if chain != tt.chain || ok != tt.ok {
			t.Fatalf("ClassifyAddress(%q) = %q, %v; want %q, %v", tt.address, chain, ok, tt.chain, tt.ok)
		}
	}
}

func TestResolveChain(t *testing.T) {
	evm := "0xAbCdEf0123456789abcdef0123456789ABCDEF01"
	if c, err := resolveChain(evm, ""); err != nil || c != ChainEthereum {
		t.Fatalf("auto = %q, %v", c, err)
	}
	if c, err := resolveChain(evm, ChainPolygon); err != nil || c != ChainPolygon {
		t.Fatalf("polygon override = %q, %v", c, err)
	}
	if _, err := resolveChain(evm, ChainSolana); !IsErrorCode(err, ErrCodeValidation) {
		t.Fatalf("mismatch err = %v", err)
	}
	if _, err := resolveChain("nope", ""); !IsErrorCode(err, ErrCodeValidation) {
		t.Fatalf("invalid err = %v", err)
	}
}
