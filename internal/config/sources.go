package config

import "time"

type SourcesConfig struct {
	TraceAPIURL    string
	PriceAPIURL    string
	HTTPTimeout    time.Duration
	TraceRateLimit int
	PriceRateLimit int
	PriceKind      string
}

func loadSources() SourcesConfig {
	return SourcesConfig{
		TraceAPIURL:    getenv("TRACE_API_URL", "https://tx.eth.samczsun.com"),
		PriceAPIURL:    getenv("PRICE_API_URL", "https://coins.llama.fi"),
		HTTPTimeout:    durationEnvSeconds("SOURCES_HTTP_TIMEOUT", 30*time.Second),
		TraceRateLimit: intEnv("TRACE_RATE_LIMIT", 5),
		PriceRateLimit: intEnv("PRICE_RATE_LIMIT", 5),
		PriceKind:      getenv("PRICE_KIND", "historical"),
	}
}
