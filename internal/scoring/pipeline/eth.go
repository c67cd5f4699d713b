package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// TxInfo is the on-chain context of a scored transaction.
type TxInfo struct {
	Initiator   common.Address
	BlockNumber uint64
	BlockTime   time.Time
}

type ChainClient interface {
	TransactionInfo(ctx context.Context, hash common.Hash) (*TxInfo, error)
}

type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// EthClient serves receipts, block times and eth_call against one node.
type EthClient struct {
	eth    *ethclient.Client
	rpc    *rpc.Client
	blocks *blockTimeCache
}

func DialEthClient(ctx context.Context, url string) (*EthClient, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	eth := ethclient.NewClient(rpcClient)
	return &EthClient{
		eth:    eth,
		rpc:    rpcClient,
		blocks: newBlockTimeCache(eth),
	}, nil
}

type receiptSummary struct {
	From        common.Address `json:"from"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
}

// TransactionInfo reads the initiator from the receipt, which go-ethereum's
// typed Receipt does not carry.
func (c *EthClient) TransactionInfo(ctx context.Context, hash common.Hash) (*TxInfo, error) {
	var receipt *receiptSummary
	if err := c.rpc.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), ethereum.NotFound)
	}
	if receipt.BlockNumber == nil {
		return nil, fmt.Errorf("receipt %s: block number not found", hash.Hex())
	}
	number := receipt.BlockNumber.ToInt().Uint64()
	ts, err := c.blocks.Time(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", number, err)
	}
	return &TxInfo{
		Initiator:   receipt.From,
		BlockNumber: number,
		BlockTime:   ts,
	}, nil
}

func (c *EthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}

func (c *EthClient) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

type blockTimeCache struct {
	client HeaderReader
	mu     sync.Mutex
	cache  map[uint64]time.Time
}

func newBlockTimeCache(client HeaderReader) *blockTimeCache {
	return &blockTimeCache{
		client: client,
		cache:  make(map[uint64]time.Time),
	}
}

func (b *blockTimeCache) Time(ctx context.Context, blockNumber uint64) (time.Time, error) {
	b.mu.Lock()
	if ts, ok := b.cache[blockNumber]; ok {
		b.mu.Unlock()
		return ts, nil
	}
	b.mu.Unlock()

	header, err := b.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return time.Time{}, err
	}
	ts := time.Unix(int64(header.Time), 0).UTC()

	b.mu.Lock()
	b.cache[blockNumber] = ts
	b.mu.Unlock()

	return ts, nil
}
