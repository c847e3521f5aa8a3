package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/openvest/vestd/auth"
	"github.com/openvest/vestd/infra/events"
	"github.com/openvest/vestd/infra/transfer"
)

type Config struct {
	Ledger   LedgerConfig    `json:"ledger"`
	Store    StoreConfig     `json:"store"`
	Auth     auth.Conf       `json:"auth"`
	Transfer transfer.Config `json:"transfer"`
	Events   events.Config   `json:"events"`
	Metrics  MetricsConfig   `json:"metrics"`
	API      APIConfig       `json:"api"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("VESTD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "vestd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Store.SetDefaults()
	cfg.API.SetDefaults()
	cfg.Events.SetDefaults()
	cfg.Transfer.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Ledger.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Transfer.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Events.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
