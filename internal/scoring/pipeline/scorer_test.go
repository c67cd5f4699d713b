package pipeline

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/0xPexy/sentra-profit/internal/balance"
	"github.com/0xPexy/sentra-profit/internal/trace"
	"github.com/0xPexy/sentra-profit/internal/valuation"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ethereumChain = valuation.Chain{
		ID:                 "ethereum",
		ChainID:            1,
		NativeTokenAddress: "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		PriceNamespace:     "ethereum",
	}

	initiator = common.HexToAddress("0xe9eb4a51414de92c4dbe5a46f6259cb4f456d7f9")
	executor  = common.HexToAddress("0x5afec0de001999766fb883860cae06f5932e6f32")
	recipient = common.HexToAddress("0xa566b84cc8e917a553c854a8503a0d3afbc93e88")
	usdToken  = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")

	sampleTx  = common.HexToHash("0x70438b8950da5c757b4c4cee11330c31619d3158c4e1b64eb7ee16fd4ba0f720")
	blockTime = time.Unix(1_700_000_000, 0).UTC()
)

type stubTraceSource struct {
	resp *trace.Response
	err  error
}

func (s *stubTraceSource) FetchTrace(ctx context.Context, chain string, txHash common.Hash) (*trace.Response, error) {
	return s.resp, s.err
}

type stubChain struct {
	info *TxInfo
	err  error
}

func (s *stubChain) TransactionInfo(ctx context.Context, hash common.Hash) (*TxInfo, error) {
	return s.info, s.err
}

type stubPrices struct {
	quotes map[string]valuation.PriceInfo
	ids    []string
	when   time.Time
	err    error
}

func (s *stubPrices) FetchPrices(ctx context.Context, meta *valuation.PriceMetadata, ids []string, when time.Time) error {
	s.ids = ids
	s.when = when
	for _, id := range ids {
		meta.MarkPending(id)
	}
	if s.err != nil {
		return s.err
	}
	for _, id := range ids {
		if q, ok := s.quotes[id]; ok {
			meta.Set(id, q)
		}
	}
	return nil
}

type stubTokens struct {
	infos map[balance.Asset]balance.TokenInfo
	calls int
}

func (s *stubTokens) FetchTokens(ctx context.Context, meta *balance.TokenMetadata, assets []balance.Asset) {
	s.calls++
	for _, asset := range assets {
		if info, ok := s.infos[asset]; ok {
			meta.Set(asset, info)
		}
	}
}

func amountWord(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func transferTrace(logPath string) *trace.Response {
	oneEth, _ := new(big.Int).SetString("1000000000000000000", 10)
	transfer := &trace.Log{
		Path:   logPath,
		Topics: []common.Hash{balance.TransferTopic, common.BytesToHash(executor.Bytes()), common.BytesToHash(recipient.Bytes())},
		Data:   amountWord(1_000_000),
	}
	tokenCall := &trace.Call{
		Path:     "0.0",
		Kind:     trace.KindCall,
		From:     executor,
		To:       usdToken,
		Value:    new(big.Int),
		Status:   1,
		Children: []trace.Node{transfer},
	}
	root := &trace.Call{
		Path:     "0",
		Kind:     trace.KindCall,
		From:     initiator,
		To:       executor,
		Value:    oneEth,
		Status:   1,
		Children: []trace.Node{tokenCall},
	}
	if logPath != "0.0.0" {
		root.Children = append(root.Children, transfer)
		tokenCall.Children = nil
	}
	return &trace.Response{Chain: "ethereum", TxHash: sampleTx.Hex(), Entrypoint: root}
}

func samplePrices() *stubPrices {
	nativeID := valuation.FeedID(ethereumChain, balance.Native)
	tokenID := valuation.FeedID(ethereumChain, balance.TokenAsset(usdToken))
	return &stubPrices{quotes: map[string]valuation.PriceInfo{
		nativeID: {Decimals: 18, Historical: big.NewInt(20_000_000), Current: big.NewInt(21_000_000)},
		tokenID:  {Decimals: 6, Historical: big.NewInt(10_000), Current: big.NewInt(10_000)},
	}}
}

func newTestScorer(traces TraceSource, prices PriceSource, tokens TokenSource, strict bool) *Scorer {
	cfg := Config{
		Chain:        ethereumChain,
		NativeSymbol: "ETH",
		PriceKind:    valuation.Historical,
		AllowList:    valuation.NewAllowList(executor),
		StrictTraces: strict,
	}
	chain := &stubChain{info: &TxInfo{Initiator: initiator, BlockNumber: 18_000_000, BlockTime: blockTime}}
	return NewScorer(cfg, traces, prices, tokens, chain, discardLogger())
}

func TestScorerAttributesAllowListAndInitiator(t *testing.T) {
	prices := samplePrices()
	tokens := &stubTokens{infos: map[balance.Asset]balance.TokenInfo{
		balance.TokenAsset(usdToken): {Symbol: "USDC"},
	}}
	scorer := newTestScorer(&stubTraceSource{resp: transferTrace("0.0.0")}, prices, tokens, false)

	score, err := scorer.Score(context.Background(), Job{Group: "unique_a", TxHash: sampleTx})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !prices.when.Equal(blockTime) {
		t.Fatalf("prices should be quoted at block time, got %v", prices.when)
	}
	if len(prices.ids) != 2 {
		t.Fatalf("expected 2 feed ids, got %v", prices.ids)
	}
	if got := valuation.FormatUSD(score.Values[executor].Total); got != "1999.0000" {
		t.Fatalf("unexpected executor value: %s", got)
	}
	if !score.Attribution.Complete {
		t.Fatalf("attribution should be complete")
	}
	if got := valuation.FormatUSD(score.Attribution.Total); got != "-1.0000" {
		t.Fatalf("unexpected attributed total: %s", got)
	}
	if len(score.Attribution.Contributors) != 2 {
		t.Fatalf("expected initiator and executor to be counted, got %v", score.Attribution.Contributors)
	}

	rec := score.Record()
	if rec.Status != "scored" || rec.ProfitUSD != "-1.0000" || rec.Initiator != "0xe9eb4a51414de92c4dbe5a46f6259cb4f456d7f9" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(rec.Changes) != 4 {
		t.Fatalf("expected 4 address changes, got %d", len(rec.Changes))
	}
	for _, change := range rec.Changes {
		counted := change.Address == "0xe9eb4a51414de92c4dbe5a46f6259cb4f456d7f9" || change.Address == "0x5afec0de001999766fb883860cae06f5932e6f32"
		if change.Counted != counted {
			t.Fatalf("unexpected counted flag for %s", change.Address)
		}
		if change.Asset == string(balance.TokenAsset(usdToken)) && change.Symbol != "USDC" {
			t.Fatalf("token symbol missing: %+v", change)
		}
		if change.Value == nil {
			t.Fatalf("every change should be priced: %+v", change)
		}
	}
}

func TestScorerKeepsValuesIncompleteWhenPricesFail(t *testing.T) {
	prices := samplePrices()
	prices.err = errors.New("llama down")
	scorer := newTestScorer(&stubTraceSource{resp: transferTrace("0.0.0")}, prices, nil, false)

	score, err := scorer.Score(context.Background(), Job{TxHash: sampleTx})
	if err != nil {
		t.Fatalf("price failures should not fail scoring: %v", err)
	}
	if score.Attribution.Complete {
		t.Fatalf("attribution should be incomplete")
	}
	if rec := score.Record(); rec.ProfitUSD != valuation.Loading || rec.Complete {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestScorerRecomputesForNFTs(t *testing.T) {
	tokens := &stubTokens{infos: map[balance.Asset]balance.TokenInfo{
		balance.TokenAsset(usdToken): {Symbol: "PUNK", IsNFT: true},
	}}
	scorer := newTestScorer(&stubTraceSource{resp: transferTrace("0.0.0")}, samplePrices(), tokens, false)

	score, err := scorer.Score(context.Background(), Job{TxHash: sampleTx})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if got := score.Deltas.Get(recipient, balance.TokenAsset(usdToken)); got == nil || got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("nft transfer should collapse to one unit, got %v", got)
	}
}

func TestScorerStrictTraces(t *testing.T) {
	resp := transferTrace("7.0")

	lenient := newTestScorer(&stubTraceSource{resp: resp}, samplePrices(), nil, false)
	score, err := lenient.Score(context.Background(), Job{TxHash: sampleTx})
	if err != nil {
		t.Fatalf("lenient scoring should succeed: %v", err)
	}
	if len(score.Issues) != 1 || !errors.Is(score.Issues[0].Err, trace.ErrNoOwningContract) {
		t.Fatalf("expected one ownership issue, got %+v", score.Issues)
	}
	if score.Record().IssueCount != 1 {
		t.Fatalf("issue count should be persisted")
	}

	strict := newTestScorer(&stubTraceSource{resp: resp}, samplePrices(), nil, true)
	if _, err := strict.Score(context.Background(), Job{TxHash: sampleTx}); !errors.Is(err, trace.ErrNoOwningContract) {
		t.Fatalf("expected ErrNoOwningContract, got %v", err)
	}
}

func TestScorerFailsOnDuplicatePaths(t *testing.T) {
	resp := transferTrace("0.0.0")
	resp.Entrypoint.Children = append(resp.Entrypoint.Children, &trace.Call{Path: "0.0", Kind: trace.KindCall, Value: new(big.Int), Status: 1})
	scorer := newTestScorer(&stubTraceSource{resp: resp}, samplePrices(), nil, false)
	if _, err := scorer.Score(context.Background(), Job{TxHash: sampleTx}); !errors.Is(err, trace.ErrDuplicatePath) {
		t.Fatalf("expected ErrDuplicatePath, got %v", err)
	}
}

func TestScorerPropagatesTraceErrors(t *testing.T) {
	scorer := newTestScorer(&stubTraceSource{err: ErrTraceUnavailable}, samplePrices(), nil, false)
	if _, err := scorer.Score(context.Background(), Job{TxHash: sampleTx}); !errors.Is(err, ErrTraceUnavailable) {
		t.Fatalf("expected trace error, got %v", err)
	}
}
