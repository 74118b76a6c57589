package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/providers/sqlite"
)

// createProvidersFromConfig creates and configures search providers from
// the config
func createProvidersFromConfig(registry *core.Registry, cfg *config.Config) error {
	for name := range cfg.Providers {
		if err := addProviderFromConfig(registry, cfg, name); err != nil {
			return err
		}
	}
	return nil
}

// addProviderFromConfig creates one provider instance and applies its
// decoded config
func addProviderFromConfig(registry *core.Registry, cfg *config.Config, name string) error {
	providerType, rawConfig, err := cfg.GetProviderConfig(name)
	if err != nil {
		return fmt.Errorf("getting config for provider %s: %w", name, err)
	}

	// Create provider with empty config first
	if err := registry.CreateProvider(name, providerType, nil); err != nil {
		return fmt.Errorf("creating provider %s: %w", name, err)
	}

	provider, err := registry.GetProvider(name)
	if err != nil {
		return fmt.Errorf("provider %s not found after creation: %w", name, err)
	}

	// Convert the raw config to the proper type using the provider's ConfigType
	providerConfig, err := convertRawConfigToType(provider, rawConfig)
	if err != nil {
		return fmt.Errorf("converting config for provider %s: %w", name, err)
	}

	applyConfigDefaults(providerConfig, cfg, name)

	if err := provider.SetConfig(providerConfig); err != nil {
		return fmt.Errorf("setting config for provider %s: %w", name, err)
	}

	return nil
}

// convertRawConfigToType converts raw config to the provider's expected type
func convertRawConfigToType(provider core.Provider, rawConfig interface{}) (interface{}, error) {
	configType := provider.ConfigType()

	if rawConfig == nil {
		return configType, nil
	}

	// Marshal and unmarshal to convert between types
	configData, err := toml.Marshal(rawConfig)
	if err != nil {
		return nil, fmt.Errorf("marshaling config data: %w", err)
	}

	if err := toml.Unmarshal(configData, configType); err != nil {
		return nil, fmt.Errorf("unmarshaling provider config: %w", err)
	}

	return configType, nil
}

// applyConfigDefaults fills provider settings that derive from the global
// config. A sqlite instance without an explicit path gets one under the
// storage directory, keyed by instance name.
func applyConfigDefaults(providerConfig interface{}, cfg *config.Config, name string) {
	if sqliteConfig, ok := providerConfig.(*sqlite.Config); ok {
		if sqliteConfig.DatabasePath == "" {
			sqliteConfig.DatabasePath = filepath.Join(cfg.StorageDir, fmt.Sprintf("%s.db", name))
		}
	}
}
