package store

import "strings"

// NormalizeAddress lowercases a hex address and adds a missing 0x prefix.
// Native-asset markers and other non-hex keys are only lowercased.
func NormalizeAddress(addr string) string {
	return normalizeHex(addr)
}

// NormalizeTxHash is the storage form of a transaction hash.
func NormalizeTxHash(hash string) string {
	return normalizeHex(hash)
}

func normalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || strings.HasPrefix(s, "0x") {
		return s
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return s
		}
	}
	return "0x" + s
}
