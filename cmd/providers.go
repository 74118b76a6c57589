package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/core"
)

// ProvidersCommand creates the providers command
func ProvidersCommand() *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "List configured search backends",
		Action: func(ctx context.Context, c *cli.Command) error {
			return listProviders(c.String("config"))
		},
	}
}

func listProviders(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	registry := core.GetGlobalRegistry()

	if err := createProvidersFromConfig(registry, cfg); err != nil {
		return fmt.Errorf("creating providers: %w", err)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			fmt.Printf("Warning: failed to close providers: %v\n", err)
		}
	}()

	names := registry.ListProviders()
	if len(names) == 0 {
		fmt.Println("No search providers configured. Run 'advsearch init' and edit the config.")
		return nil
	}

	fmt.Printf("Configured providers (%d):\n", len(names))
	for _, name := range names {
		provider, err := registry.GetProvider(name)
		if err != nil {
			return err
		}
		fmt.Printf("  %s (type %s, sources: %s)\n",
			name, provider.Type(), strings.Join(provider.Sources(), ", "))
	}
	return nil
}
