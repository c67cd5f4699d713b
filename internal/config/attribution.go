package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/0xPexy/sentra-profit/internal/valuation"
	"gopkg.in/yaml.v3"
)

type AttributionConfig struct {
	File      string
	Addresses []string
}

type allowListFile struct {
	Addresses []string `yaml:"addresses"`
}

func loadAttribution() AttributionConfig {
	cfg := AttributionConfig{
		File:      getenv("ATTRIBUTION_FILE", "configs/attribution.yaml"),
		Addresses: splitList(getenv("ATTRIBUTION_ADDRESSES", "")),
	}
	fromFile, err := LoadAllowListFile(cfg.File)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger().Warnf("attribution file %s not found, only the initiator and ATTRIBUTION_ADDRESSES count", cfg.File)
	case err != nil:
		logger().Warnf("%v", err)
	}
	cfg.Addresses = append(fromFile, cfg.Addresses...)
	return cfg
}

// LoadAllowListFile reads the addresses list of an attribution YAML file.
func LoadAllowListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc allowListFile
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("error decoding attribution file %v: %w", path, err)
	}
	return doc.Addresses, nil
}

// AllowList parses the configured addresses, logging the ones that are not
// valid hex addresses.
func (c AttributionConfig) AllowList() *valuation.AllowList {
	list, invalid := valuation.ParseAllowList(c.Addresses)
	for _, s := range invalid {
		logger().Warnf("ignoring invalid attribution address %q", s)
	}
	return list
}
