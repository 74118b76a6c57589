package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/ingest"
)

// DeleteCommand creates the delete command
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Remove documents from all configured backends",
		ArgsUsage: "ID [ID...]",
		Action: func(ctx context.Context, c *cli.Command) error {
			ids := c.Args().Slice()
			if len(ids) == 0 {
				return fmt.Errorf("at least one document id required")
			}
			return deleteDocuments(ctx, c.String("config"), ids)
		},
	}
}

func deleteDocuments(ctx context.Context, configPath string, ids []string) error {
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

	ingestService := ingest.NewService(registry, nil)

	for _, id := range ids {
		if err := ingestService.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
		fmt.Printf("Deleted %s\n", id)
	}
	return nil
}
