package balance

import "math/big"

type FetchStatus string

const (
	StatusPending FetchStatus = "pending"
	StatusFetched FetchStatus = "fetched"
)

type TokenInfo struct {
	Symbol   string `json:"symbol,omitempty"`
	Decimals *uint8 `json:"decimals,omitempty"`
	IsNFT    bool   `json:"isNft"`
}

// TokenMetadata is supplied by the caller; the computer never fetches it.
type TokenMetadata struct {
	Status map[Asset]FetchStatus `json:"status"`
	Tokens map[Asset]TokenInfo   `json:"tokens"`
}

func NewTokenMetadata() *TokenMetadata {
	return &TokenMetadata{
		Status: make(map[Asset]FetchStatus),
		Tokens: make(map[Asset]TokenInfo),
	}
}

func (m *TokenMetadata) MarkPending(asset Asset) {
	if _, ok := m.Status[asset]; !ok {
		m.Status[asset] = StatusPending
	}
}

func (m *TokenMetadata) Set(asset Asset, info TokenInfo) {
	m.Status[asset] = StatusFetched
	m.Tokens[asset] = info
}

// Lookup only answers for fetched entries.
func (m *TokenMetadata) Lookup(asset Asset) (TokenInfo, bool) {
	if m == nil || m.Status[asset] != StatusFetched {
		return TokenInfo{}, false
	}
	info, ok := m.Tokens[asset]
	return info, ok
}

func (m *TokenMetadata) IsNFT(asset Asset) bool {
	info, ok := m.Lookup(asset)
	return ok && info.IsNFT
}

func (m *TokenMetadata) HasNFT() bool {
	if m == nil {
		return false
	}
	for asset := range m.Tokens {
		if m.IsNFT(asset) {
			return true
		}
	}
	return false
}

// unitAmount reduces an NFT transfer to its direction.
func unitAmount(amount *big.Int) *big.Int {
	return big.NewInt(int64(amount.Sign()))
}
