package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/0xPexy/sentra-profit/internal/balance"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// erc721InterfaceID is the ERC-165 id of ERC-721.
var erc721InterfaceID = [4]byte{0x80, 0xac, 0x58, 0xcd}

var tokenABI = mustParseABI(`[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"supportsInterface","stateMutability":"view","inputs":[{"name":"interfaceId","type":"bytes4"}],"outputs":[{"name":"","type":"bool"}]}
]`)

type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type TokenSource interface {
	// FetchTokens fills meta for the token assets it does not know yet.
	FetchTokens(ctx context.Context, meta *balance.TokenMetadata, assets []balance.Asset)
}

// TokenClient reads decimals, symbol and ERC-721 support with eth_call.
// A failing call leaves the corresponding field unset.
type TokenClient struct {
	caller ContractCaller
	logger logrus.FieldLogger
}

func NewTokenClient(caller ContractCaller, logger logrus.FieldLogger) *TokenClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TokenClient{caller: caller, logger: logger.WithField("module", "tokens")}
}

func (c *TokenClient) FetchTokens(ctx context.Context, meta *balance.TokenMetadata, assets []balance.Asset) {
	for _, asset := range assets {
		addr, ok := asset.Address()
		if !ok {
			continue
		}
		if _, known := meta.Status[asset]; known {
			continue
		}
		meta.MarkPending(asset)

		var info balance.TokenInfo
		if decimals, err := c.decimals(ctx, addr); err != nil {
			c.logger.Debugf("decimals %s: %v", addr.Hex(), err)
		} else {
			info.Decimals = &decimals
		}
		if symbol, err := c.symbol(ctx, addr); err != nil {
			c.logger.Debugf("symbol %s: %v", addr.Hex(), err)
		} else {
			info.Symbol = symbol
		}
		isNFT, err := c.isNFT(ctx, addr)
		if err != nil {
			c.logger.Debugf("supportsInterface %s: %v", addr.Hex(), err)
		}
		info.IsNFT = isNFT
		meta.Set(asset, info)
	}
}

func (c *TokenClient) call(ctx context.Context, to common.Address, method string, args ...any) ([]byte, error) {
	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	return c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (c *TokenClient) decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("empty decimals response")
	}
	v := new(big.Int).SetBytes(out)
	if v.Cmp(big.NewInt(255)) > 0 {
		return 0, fmt.Errorf("illegal decimals value 0x%x", out)
	}
	return uint8(v.Uint64()), nil
}

// symbol accepts both the bytes32 and the string return layouts.
func (c *TokenClient) symbol(ctx context.Context, token common.Address) (string, error) {
	out, err := c.call(ctx, token, "symbol")
	if err != nil {
		return "", err
	}
	if len(out) == 32 {
		s := strings.TrimRight(string(out), "\x00")
		if !utf8.ValidString(s) {
			return "", fmt.Errorf("illegal symbol value 0x%x", out)
		}
		return s, nil
	}
	values, err := tokenABI.Unpack("symbol", out)
	if err != nil || len(values) != 1 {
		return "", fmt.Errorf("illegal symbol value 0x%x", out)
	}
	s, _ := values[0].(string)
	return s, nil
}

func (c *TokenClient) isNFT(ctx context.Context, token common.Address) (bool, error) {
	out, err := c.call(ctx, token, "supportsInterface", erc721InterfaceID)
	if err != nil {
		return false, err
	}
	if len(out) == 0 {
		return false, nil
	}
	return new(big.Int).SetBytes(out).Cmp(big.NewInt(1)) == 0, nil
}

func mustParseABI(jsonStr string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(jsonStr))
	if err != nil {
		panic(err)
	}
	return parsed
}
