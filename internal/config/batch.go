package config

import "strings"

type BatchConfig struct {
	ScoreWorkers int
	WriteWorkers int
	OutputDir    string
	GroupPrefix  []string
	// StrictTraces fails a transaction when a transfer log has no owning
	// contract instead of skipping that log.
	StrictTraces bool
}

func loadBatch() BatchConfig {
	return BatchConfig{
		ScoreWorkers: intEnv("BATCH_SCORE_WORKERS", 4),
		WriteWorkers: intEnv("BATCH_WRITE_WORKERS", 1),
		OutputDir:    getenv("BATCH_OUTPUT_DIR", ""),
		GroupPrefix:  splitList(getenv("BATCH_GROUP_PREFIX", "")),
		StrictTraces: boolenv("BATCH_STRICT_TRACES", false),
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
