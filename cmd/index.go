package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/urfave/cli/v3"

	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/ingest"
)

// IndexCommand creates the index command
func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Bulk index documents from JSON files into all configured backends",
		ArgsUsage: "FILE [FILE...]",
		Description: `Each file holds a JSON array of documents. Files ending in .zst are
decompressed with zstandard before decoding. Use "-" to read from stdin.`,
		Action: func(ctx context.Context, c *cli.Command) error {
			files := c.Args().Slice()
			if len(files) == 0 {
				return fmt.Errorf("at least one document file required")
			}
			return indexFiles(ctx, c.String("config"), files)
		},
	}
}

func indexFiles(ctx context.Context, configPath string, files []string) error {
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

	total := 0
	for _, file := range files {
		count, err := indexFile(ctx, ingestService, file)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", file, err)
		}
		fmt.Printf("%s: indexed %d documents\n", file, count)
		total += count
	}

	fmt.Printf("Total: %s documents indexed\n", formatNumber(total))
	return nil
}

func indexFile(ctx context.Context, ingestService *ingest.Service, path string) (int, error) {
	var reader io.Reader

	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Printf("Warning: failed to close %s: %v\n", path, err)
			}
		}()
		reader = f
	}

	if strings.HasSuffix(path, ".zst") {
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return 0, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		reader = decoder
	}

	var documents []core.Document
	if err := json.NewDecoder(reader).Decode(&documents); err != nil {
		return 0, fmt.Errorf("decoding documents: %w", err)
	}

	for i, doc := range documents {
		if _, err := ingestService.Upsert(ctx, doc); err != nil {
			return i, fmt.Errorf("upserting document %d (%s): %w", i, doc.ID, err)
		}
	}
	return len(documents), nil
}
