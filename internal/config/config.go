package config

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Chain       ChainConfig
	Sources     SourcesConfig
	Batch       BatchConfig
	Attribution AttributionConfig
}

func Load() Config {
	ensureEnvLoaded()
	return Config{
		Server:      loadServer(),
		Database:    loadDatabase(),
		Chain:       loadChain(),
		Sources:     loadSources(),
		Batch:       loadBatch(),
		Attribution: loadAttribution(),
	}
}
