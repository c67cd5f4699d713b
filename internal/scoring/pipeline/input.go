package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type inputEntry struct {
	TxHash     string `json:"txhash"`
	Receiver   string `json:"receiver_address"`
	Invocation string `json:"invocation_address"`
}

// LoadJobs reads a batch file shaped as a list of {group: [entries]}
// objects. When prefixes is non-empty only groups starting with one of them
// are kept.
func LoadJobs(r io.Reader, prefixes []string) ([]Job, error) {
	var chunks []map[string][]inputEntry
	if err := json.NewDecoder(r).Decode(&chunks); err != nil {
		return nil, fmt.Errorf("decode batch file: %w", err)
	}
	var jobs []Job
	for _, chunk := range chunks {
		groups := make([]string, 0, len(chunk))
		for group := range chunk {
			groups = append(groups, group)
		}
		sort.Strings(groups)
		for _, group := range groups {
			if !matchesPrefix(group, prefixes) {
				continue
			}
			for i, entry := range chunk[group] {
				job, err := entry.job(group)
				if err != nil {
					return nil, fmt.Errorf("group %s entry %d: %w", group, i, err)
				}
				jobs = append(jobs, job)
			}
		}
	}
	return jobs, nil
}

func (e inputEntry) job(group string) (Job, error) {
	hash, err := ParseTxHash(e.TxHash)
	if err != nil {
		return Job{}, err
	}
	job := Job{Group: group, TxHash: hash}
	if e.Receiver != "" {
		if !common.IsHexAddress(e.Receiver) {
			return Job{}, fmt.Errorf("invalid receiver address %q", e.Receiver)
		}
		job.Receiver = common.HexToAddress(e.Receiver)
	}
	if e.Invocation != "" {
		if !common.IsHexAddress(e.Invocation) {
			return Job{}, fmt.Errorf("invalid invocation address %q", e.Invocation)
		}
		job.Invocation = common.HexToAddress(e.Invocation)
	}
	return job, nil
}

// ParseTxHash accepts a 0x-prefixed 32-byte hex hash.
func ParseTxHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", s)
	}
	for _, r := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return common.Hash{}, fmt.Errorf("invalid transaction hash %q", s)
		}
	}
	return common.HexToHash(s), nil
}

func matchesPrefix(group string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(group, p) {
			return true
		}
	}
	return false
}
