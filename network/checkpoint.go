package network

import (
	"encoding/json"

	"github.com/jsphweid/deepj/weights"
	"github.com/pkg/errors"
)

const configKey = "network_config"

// SaveConfig records cfg in the store so a loaded checkpoint can rebuild the
// graph it was trained with.
func SaveConfig(store *weights.Store, cfg Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "could not encode network config")
	}
	store.SetMeta(configKey, string(data))
	return nil
}

// ConfigFrom returns the config recorded by SaveConfig, or DefaultConfig
// when the store carries none.
func ConfigFrom(store *weights.Store) (Config, error) {
	raw, ok := store.Meta(configKey)
	if !ok {
		return DefaultConfig(), nil
	}
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, errors.Wrap(err, "could not decode network config")
	}
	return cfg, cfg.Validate()
}
