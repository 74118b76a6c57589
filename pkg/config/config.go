package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

type Config struct {
	Host          string                  `toml:"host"`
	Port          int                     `toml:"port"`
	SiteURL       string                  `toml:"site_url"`
	MenuLabel     string                  `toml:"menu_label"`
	PerPage       int                     `toml:"per_page"`
	StorageDir    string                  `toml:"storage_dir"`
	SearchTimeout Duration                `toml:"search_timeout"`
	Providers     map[string]ProviderInfo `toml:"providers"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type ProviderInfo struct {
	Type   string      `toml:"type"`
	Config interface{} `toml:"config"`
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	return &Config{
		Host:          "127.0.0.1",
		Port:          8080,
		SiteURL:       "http://127.0.0.1:8080",
		MenuLabel:     "Advanced Search",
		PerPage:       10,
		StorageDir:    storageDir,
		SearchTimeout: Duration{10 * time.Second},
		Providers:     make(map[string]ProviderInfo),
	}, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.SiteURL == "" {
		config.SiteURL = fmt.Sprintf("http://%s:%d", config.Host, config.Port)
	}
	config.SiteURL = strings.TrimRight(config.SiteURL, "/")
	if config.MenuLabel == "" {
		config.MenuLabel = "Advanced Search"
	}
	if config.PerPage <= 0 {
		config.PerPage = 10
	}
	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}
	if config.SearchTimeout.Duration == 0 {
		config.SearchTimeout = Duration{10 * time.Second}
	}
	if config.Providers == nil {
		config.Providers = make(map[string]ProviderInfo)
	}

	return &config, nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	// Replace the placeholder storage_dir with the actual path
	template := strings.ReplaceAll(configTemplate, "/home/user/.local/share/advsearch", storageDir)
	return template, nil
}

func (c *Config) AddProvider(name, providerType string, providerConfig interface{}) error {
	c.Providers[name] = ProviderInfo{
		Type:   providerType,
		Config: providerConfig,
	}
	return nil
}

func (c *Config) GetProviderConfig(name string) (string, interface{}, error) {
	info, exists := c.Providers[name]
	if !exists {
		return "", nil, fmt.Errorf("provider %s not found", name)
	}

	return info.Type, info.Config, nil
}

func (c *Config) ListProviders() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	return names
}

func (c *Config) RemoveProvider(name string) {
	delete(c.Providers, name)
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	storageDir := filepath.Join(dataDir, "advsearch")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", storageDir, err)
	}

	return storageDir, nil
}

// GetConfigDir returns the configuration directory for advsearch
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	appConfigDir := filepath.Join(configDir, "advsearch")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(appConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", appConfigDir, err)
	}

	return appConfigDir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
