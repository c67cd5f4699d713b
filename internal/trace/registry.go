package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

type registryKey struct {
	address  common.Address
	codeHash common.Hash
}

// Registry holds the contract interfaces the tracing service resolved for a
// transaction, keyed by (address, codehash). It is read-only once built.
type Registry struct {
	abis   map[registryKey]*abi.ABI
	labels map[common.Address]string
}

func NewRegistry(addresses map[string]map[string]AddressInfo, logger logrus.FieldLogger) *Registry {
	if logger == nil {
		logger = discardLogger()
	}
	r := &Registry{
		abis:   make(map[registryKey]*abi.ABI),
		labels: make(map[common.Address]string),
	}
	for i := 1; i <= 10; i++ {
		r.labels[common.BytesToAddress([]byte{byte(i)})] = "Precompile"
	}
	for rawAddr, entries := range addresses {
		addr := common.HexToAddress(rawAddr)
		hashes := make([]string, 0, len(entries))
		for rawHash := range entries {
			hashes = append(hashes, rawHash)
		}
		sort.Strings(hashes)
		for _, rawHash := range hashes {
			info := entries[rawHash]
			if _, ok := r.labels[addr]; !ok && info.Label != "" {
				r.labels[addr] = info.Label
			}
			parsed, err := buildInterface(info)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"address":  strings.ToLower(addr.Hex()),
					"codehash": rawHash,
				}).Warnf("failed to construct interface: %v", err)
				continue
			}
			r.abis[registryKey{address: addr, codeHash: common.HexToHash(rawHash)}] = parsed
		}
	}
	for addr, label := range r.labels {
		if label == "Vyper_contract" {
			hex := strings.ToLower(addr.Hex())
			r.labels[addr] = fmt.Sprintf("Vyper_contract (0x%s..%s)", hex[2:6], hex[38:42])
		}
	}
	return r
}

func (r *Registry) Register(addr common.Address, codeHash common.Hash, parsed *abi.ABI) {
	r.abis[registryKey{address: addr, codeHash: codeHash}] = parsed
}

func (r *Registry) Lookup(addr common.Address, codeHash common.Hash) (*abi.ABI, bool) {
	if r == nil {
		return nil, false
	}
	parsed, ok := r.abis[registryKey{address: addr, codeHash: codeHash}]
	return parsed, ok
}

func (r *Registry) Label(addr common.Address) string {
	if r == nil {
		return ""
	}
	return r.labels[addr]
}

func (r *Registry) Labels() map[common.Address]string {
	out := make(map[common.Address]string, len(r.labels))
	for k, v := range r.labels {
		out[k] = v
	}
	return out
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func buildInterface(info AddressInfo) (*abi.ABI, error) {
	fragments := make([]json.RawMessage, 0, len(info.Functions)+len(info.Events)+len(info.Errors))
	add := func(kind string, raw json.RawMessage, skipStandard bool) error {
		var frag map[string]any
		if err := json.Unmarshal(raw, &frag); err != nil {
			return err
		}
		if _, ok := frag["type"]; !ok {
			frag["type"] = kind
		}
		if skipStandard && isStandardError(frag) {
			return nil
		}
		encoded, err := json.Marshal(frag)
		if err != nil {
			return err
		}
		fragments = append(fragments, encoded)
		return nil
	}
	for _, raw := range info.Functions {
		if err := add("function", raw, false); err != nil {
			return nil, err
		}
	}
	for _, raw := range info.Events {
		if err := add("event", raw, false); err != nil {
			return nil, err
		}
	}
	for _, raw := range info.Errors {
		if err := add("error", raw, true); err != nil {
			return nil, err
		}
	}
	encoded, err := json.Marshal(fragments)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(string(encoded)))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// isStandardError matches Error(string) and Panic(uint256), which would clash
// with vendor errors of the same name.
func isStandardError(frag map[string]any) bool {
	name, _ := frag["name"].(string)
	inputs, _ := frag["inputs"].([]any)
	if len(inputs) != 1 {
		return false
	}
	input, _ := inputs[0].(map[string]any)
	typ, _ := input["type"].(string)
	switch name {
	case "Error":
		return typ == "string"
	case "Panic":
		return typ == "uint256"
	}
	return false
}
