package main

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/0xPexy/sentra-profit/internal/balance"
	"github.com/0xPexy/sentra-profit/internal/scoring/pipeline"
	"github.com/0xPexy/sentra-profit/internal/valuation"
	"github.com/ethereum/go-ethereum/common"
)

func TestPrintScore(t *testing.T) {
	searcher := common.HexToAddress("0xe9eb4a51414de92c4dbe5a46f6259cb4f456d7f9")
	pool := common.HexToAddress("0xa566b84cc8e917a553c854a8503a0d3afbc93e88")
	usdc := balance.TokenAsset(common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"))

	six := uint8(6)
	tokens := balance.NewTokenMetadata()
	tokens.Set(usdc, balance.TokenInfo{Symbol: "USDC", Decimals: &six})

	value, _ := new(big.Int).SetString("15000000000000000000000", 10)
	score := &pipeline.Score{
		Chain:     valuation.Chain{ID: "ethereum"},
		Initiator: searcher,
		Deltas: balance.Deltas{
			searcher: {usdc: big.NewInt(1_500_000)},
			pool:     {usdc: big.NewInt(-1_500_000)},
		},
		Tokens: tokens,
		Values: valuation.Values{
			searcher: {Total: value, PerAsset: map[balance.Asset]*big.Int{usdc: value}},
			pool:     {Total: new(big.Int), PerAsset: map[balance.Asset]*big.Int{usdc: nil}, HasMissingPrices: true},
		},
		Attribution: valuation.Attribution{Total: value, Complete: true, Contributors: []common.Address{searcher}},
		Labels:      map[common.Address]string{pool: "UniswapV3Pool"},
	}

	var out bytes.Buffer
	if err := printScore(&out, score); err != nil {
		t.Fatalf("print: %v", err)
	}
	text := out.String()
	for _, want := range []string{"USDC", "1.5", "-1.5", "UniswapV3Pool", valuation.Loading, "profit: 1.5000 USD"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}
