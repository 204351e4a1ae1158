package uniasset

import (
	"regexp"
	"strings"
)

// Address patterns, checked in order. The EVM pattern also covers Polygon.
var (
	reEVMAddress     = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	reSolanaAddress  = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	reBitcoinAddress = regexp.MustCompile(`^(bc1|[13])[a-zA-HJ-NP-Z0-9]{25,39}$`)
)

// ClassifyAddress returns the chain an address belongs to. Demonstration
// addresses are matched literally before any pattern rule. ok is false when
// nothing matches.
func ClassifyAddress(address string) (chain Chain, ok bool) {
	if demo, found := demoWallets[address]; found {
		return demo.chain, true
	}
	switch {
	case reEVMAddress.MatchString(address):
		return ChainEthereum, true
	case reSolanaAddress.MatchString(address):
		return ChainSolana, true
	case reBitcoinAddress.MatchString(address):
		return ChainBitcoin, true
	}
	return "", false
}

// resolveChain classifies address and reconciles it with the chain the
// caller asked for. EVM addresses may be booked on Polygon.
func resolveChain(address string, requested Chain) (Chain, error) {
	classified, ok := ClassifyAddress(address)
	if !ok {
		return "", NewError(ErrCodeValidation, "invalid wallet address format")
	}
	if requested == "" || requested == classified {
		return classified, nil
	}
	if classified == ChainEthereum && requested == ChainPolygon {
		return ChainPolygon, nil
	}
	return "", NewError(ErrCodeValidation,
		"address looks like "+string(classified)+", not "+string(requested))
}

func normalizeAddress(address string) string {
	return strings.TrimSpace(address)
}
