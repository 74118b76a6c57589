package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/search"
)

// Define styles using lipgloss
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	resultTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("214"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search indexed documents across all configured backends",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search query",
			},
			&cli.StringSliceFlag{
				Name:  "author",
				Usage: "Only match documents by these authors",
			},
			&cli.StringSliceFlag{
				Name:  "source",
				Usage: "Only match these source kinds (wiki, ticket, ...)",
			},
			&cli.StringFlag{
				Name:  "date-start",
				Usage: "Only match documents updated on or after this date (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "date-end",
				Usage: "Only match documents updated on or before this date (YYYY-MM-DD)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 10,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			criteria := core.Criteria{
				Query:   c.String("query"),
				Authors: c.StringSlice("author"),
				Sources: c.StringSlice("source"),
				PerPage: c.Int("limit"),
			}

			var err error
			if criteria.DateStart, err = parseDateFlag(c.String("date-start")); err != nil {
				return fmt.Errorf("parsing date-start: %w", err)
			}
			if criteria.DateEnd, err = parseDateFlag(c.String("date-end")); err != nil {
				return fmt.Errorf("parsing date-end: %w", err)
			}

			return searchDocuments(ctx, c.String("config"), criteria)
		},
	}
}

// resultMeta builds the one-line attribution under a result: author,
// update time, and the backend that produced the hit.
func resultMeta(result core.Result) string {
	meta := make([]string, 0, 3)
	if result.Author != "" {
		meta = append(meta, "by "+result.Author)
	}
	if !result.Date.IsZero() {
		meta = append(meta, formatTime(result.Date))
	}
	meta = append(meta, "via "+result.Backend)
	return strings.Join(meta, " · ")
}

func parseDateFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func searchDocuments(ctx context.Context, configPath string, criteria core.Criteria) error {
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

	searchService := search.NewService(registry, cfg.SiteURL)
	searchService.SetProviderTimeout(cfg.SearchTimeout.Duration)

	results, err := searchService.Search(ctx, criteria, 1)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	caser := cases.Title(language.English)

	if criteria.Query != "" {
		fmt.Println(titleStyle.Render(fmt.Sprintf("🔍 Search: %s", criteria.Query)))
	} else {
		fmt.Println(titleStyle.Render("🔍 Search"))
	}

	for _, warning := range results.Warnings {
		fmt.Println(warningStyle.Render(warning))
	}

	if len(results.Results) == 0 {
		if len(results.Warnings) == 0 {
			fmt.Println(noDataStyle.Render("No results."))
		}
		return nil
	}

	for i, result := range results.Results {
		title := result.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. %s %s\n", i+1,
			resultTitleStyle.Render(title),
			metaStyle.Render(fmt.Sprintf("[%s, score %.2f]", caser.String(result.Source), result.Score)))

		if result.Summary != "" {
			fmt.Printf("   %s\n", strings.TrimSpace(result.Summary))
		}

		fmt.Printf("   %s\n", metaStyle.Render(resultMeta(result)))

		if result.Href != "" {
			fmt.Printf("   %s\n", urlStyle.Render(result.Href))
		}
		if i < len(results.Results)-1 {
			fmt.Println()
		}
	}

	fmt.Printf("\nTotal: %s results across %d backends\n",
		formatNumber(results.TotalCount), len(registry.ListProviders()))

	return nil
}
