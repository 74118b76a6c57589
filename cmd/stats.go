package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/core"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show document counts per search backend",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(ctx, c.String("config"))
		},
	}
}

func showStats(ctx context.Context, configPath string) error {
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

	providers := registry.OrderedProviders()
	if len(providers) == 0 {
		fmt.Println("No search providers configured.")
		return nil
	}

	// A lower date bound of the epoch matches every document, so the
	// reported total is the index size.
	epoch := time.Unix(0, 0).UTC()
	criteria := core.Criteria{DateStart: &epoch, PerPage: 1}

	total := 0
	fmt.Println("Backend statistics:")
	for _, provider := range providers {
		count, _, err := provider.Search(ctx, criteria)
		if err != nil {
			fmt.Printf("  %s: unavailable (%v)\n", provider.Name(), err)
			continue
		}
		fmt.Printf("  %s: %s documents\n", provider.Name(), formatNumber(count))
		total += count
	}
	fmt.Printf("Total: %s documents across %d backends\n", formatNumber(total), len(providers))
	return nil
}
