package config

type ServerConfig struct {
	HTTPAddr string
	// OnDemand enables scoring transactions through the HTTP API.
	OnDemand bool
}

func loadServer() ServerConfig {
	return ServerConfig{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		OnDemand: boolenv("SERVER_ON_DEMAND_SCORING", true),
	}
}
