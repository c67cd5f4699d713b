package balance

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/0xPexy/sentra-profit/internal/trace"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	TransferTopic   = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	WithdrawalTopic = crypto.Keccak256Hash([]byte("Withdrawal(address,uint256)"))
)

var errEventNotDeclared = errors.New("event not declared by contract interface")

// Change is one signed contribution produced by an interpreted event.
type Change struct {
	Address common.Address
	Asset   Asset
	Amount  *big.Int
}

// Event is the closed set of value-moving events the interpreter understands.
type Event interface {
	Changes(asset Asset) []Change
}

type TransferEvent struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (e TransferEvent) Changes(asset Asset) []Change {
	return []Change{
		{Address: e.From, Asset: asset, Amount: new(big.Int).Neg(e.Amount)},
		{Address: e.To, Asset: asset, Amount: new(big.Int).Set(e.Amount)},
	}
}

type WithdrawalEvent struct {
	Owner  common.Address
	Amount *big.Int
}

func (e WithdrawalEvent) Changes(asset Asset) []Change {
	return []Change{
		{Address: e.Owner, Asset: asset, Amount: new(big.Int).Neg(e.Amount)},
	}
}

// Recognized reports whether a log's first topic is one the interpreter handles.
func Recognized(lg *trace.Log) bool {
	topic, ok := lg.FirstTopic()
	return ok && (topic == TransferTopic || topic == WithdrawalTopic)
}

type eventDecoder func(args []any) (Event, error)

// Interpreter turns recognized logs into events using the interfaces the
// tracing service registered for the emitting code.
type Interpreter struct {
	registry *trace.Registry
	handlers map[common.Hash]eventDecoder
}

func NewInterpreter(registry *trace.Registry) *Interpreter {
	return &Interpreter{
		registry: registry,
		handlers: map[common.Hash]eventDecoder{
			TransferTopic:   decodeTransfer,
			WithdrawalTopic: decodeWithdrawal,
		},
	}
}

// Interpret decodes lg, emitted by the emitter frame on behalf of owner.
// Unrecognized logs yield a nil event and no error.
func (in *Interpreter) Interpret(lg *trace.Log, emitter, owner *trace.Call) (Event, error) {
	topic, ok := lg.FirstTopic()
	if !ok {
		return nil, nil
	}
	handler, ok := in.handlers[topic]
	if !ok {
		return nil, nil
	}
	ev, err := in.eventFor(topic, lg, emitter, owner)
	if err != nil {
		return nil, err
	}
	args, err := unpackLog(ev, lg)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", ev.Name, err)
	}
	return handler(args)
}

func (in *Interpreter) eventFor(topic common.Hash, lg *trace.Log, emitter, owner *trace.Call) (*abi.Event, error) {
	candidates := []struct {
		addr common.Address
		hash common.Hash
	}{
		{emitter.To, emitter.CodeHash},
		{owner.To, emitter.CodeHash},
		{owner.To, owner.CodeHash},
	}
	for _, c := range candidates {
		parsed, ok := in.registry.Lookup(c.addr, c.hash)
		if !ok {
			continue
		}
		ev, err := parsed.EventByID(topic)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errEventNotDeclared, topic.Hex())
		}
		return ev, nil
	}
	return builtinEvent(topic, len(lg.Topics))
}

func builtinEvent(topic common.Hash, topicCount int) (*abi.Event, error) {
	switch {
	case topic == TransferTopic && topicCount == 3:
		return &erc20Transfer, nil
	case topic == TransferTopic && topicCount == 4:
		return &erc721Transfer, nil
	case topic == WithdrawalTopic && topicCount == 2:
		return &wethWithdrawal, nil
	}
	return nil, fmt.Errorf("no interface for %s with %d topics", topic.Hex(), topicCount)
}

// unpackLog returns the event arguments in declaration order, reading
// indexed ones from the topics and the rest from the data.
func unpackLog(ev *abi.Event, lg *trace.Log) ([]any, error) {
	indexed := 0
	for _, input := range ev.Inputs {
		if input.Indexed {
			indexed++
		}
	}
	if !ev.Anonymous && len(lg.Topics) != indexed+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexed+1, len(lg.Topics))
	}
	nonIndexed, err := ev.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(ev.Inputs))
	topicPos, dataPos := 1, 0
	for i, input := range ev.Inputs {
		if input.Indexed {
			values[i] = topicValue(input.Type, lg.Topics[topicPos])
			topicPos++
			continue
		}
		values[i] = nonIndexed[dataPos]
		dataPos++
	}
	return values, nil
}

func topicValue(typ abi.Type, word common.Hash) any {
	switch typ.T {
	case abi.AddressTy:
		return common.BytesToAddress(word[12:])
	case abi.UintTy:
		return new(uint256.Int).SetBytes32(word[:]).ToBig()
	case abi.IntTy:
		v := new(uint256.Int).SetBytes32(word[:])
		if v.Sign() < 0 {
			return new(big.Int).Neg(new(uint256.Int).Neg(v).ToBig())
		}
		return v.ToBig()
	case abi.BoolTy:
		return word[31] == 1
	default:
		return word
	}
}

func decodeTransfer(args []any) (Event, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("transfer: expected 3 arguments, got %d", len(args))
	}
	from, ok := args[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("transfer: unexpected sender type %T", args[0])
	}
	to, ok := args[1].(common.Address)
	if !ok {
		return nil, fmt.Errorf("transfer: unexpected receiver type %T", args[1])
	}
	amount, err := toBig(args[2])
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	return TransferEvent{From: from, To: to, Amount: amount}, nil
}

func decodeWithdrawal(args []any) (Event, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("withdrawal: expected 2 arguments, got %d", len(args))
	}
	owner, ok := args[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("withdrawal: unexpected owner type %T", args[0])
	}
	amount, err := toBig(args[1])
	if err != nil {
		return nil, fmt.Errorf("withdrawal: %w", err)
	}
	return WithdrawalEvent{Owner: owner, Amount: amount}, nil
}

func toBig(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, errors.New("nil amount")
		}
		return new(big.Int).Set(x), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	default:
		return nil, fmt.Errorf("unexpected amount type %T", v)
	}
}

func mustParseABI(jsonStr string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(jsonStr))
	if err != nil {
		panic(err)
	}
	return parsed
}

var (
	erc20EventsABI = mustParseABI(`[
		{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"},
		{"anonymous":false,"inputs":[{"indexed":true,"name":"src","type":"address"},{"indexed":false,"name":"wad","type":"uint256"}],"name":"Withdrawal","type":"event"}
	]`)

	erc721EventsABI = mustParseABI(`[
		{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":true,"name":"tokenId","type":"uint256"}],"name":"Transfer","type":"event"}
	]`)

	erc20Transfer  = erc20EventsABI.Events["Transfer"]
	wethWithdrawal = erc20EventsABI.Events["Withdrawal"]
	erc721Transfer = erc721EventsABI.Events["Transfer"]
)
