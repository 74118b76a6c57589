package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/Roguelazer/advsearch/pkg/api"
	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/ingest"
	"github.com/Roguelazer/advsearch/pkg/realtime"
	"github.com/Roguelazer/advsearch/pkg/search"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the search aggregation server",
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"))
		},
	}
}

// serve starts the HTTP server with the API, the web interface and the
// realtime feed
func serve(ctx context.Context, configPath string) error {
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
			fmt.Printf("Warning: failed to close registry: %v\n", err)
		}
	}()

	hub := realtime.NewHub(0)

	searchService := search.NewService(registry, cfg.SiteURL)
	searchService.SetProviderTimeout(cfg.SearchTimeout.Duration)
	ingestService := ingest.NewService(registry, hub)

	apiServer := api.NewServer(registry, searchService, ingestService, hub)
	webServer := NewWebServer(cfg, registry, searchService)

	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	webServer.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: api.CorsMiddleware(mux),
	}

	go func() {
		log.Printf("Starting server on http://%s", cfg.ListenAddr())
		log.Printf("Available endpoints:")
		log.Printf("  Web UI:")
		log.Printf("    GET /advsearch - Search page")
		log.Printf("  API:")
		log.Printf("    GET /api/search - Merged search across all providers")
		log.Printf("    PUT /api/documents - Index a document in all providers")
		log.Printf("    DELETE /api/documents/{id} - Remove a document from all providers")
		log.Printf("    GET /api/providers - List configured providers")
		log.Printf("    GET /api/stats - Provider statistics")
		log.Printf("    GET /api/feed - WebSocket stream of indexing events")
		log.Printf("    GET /health - Health check")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Signal handling - includes SIGHUP for reload
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var cfgMutex sync.RWMutex
	currentConfig := cfg

	// Set up filesystem watcher for the config file
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Warning: failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				log.Printf("Warning: failed to close config file watcher: %v", err)
			}
		}()

		if err := watcher.Add(configPath); err != nil {
			log.Printf("Warning: failed to watch config file %s: %v", configPath, err)
		} else {
			log.Printf("Watching config file for changes: %s", configPath)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return shutdown(server)
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Println("Received SIGHUP, reloading configuration...")
				if err := reloadConfiguration(configPath, registry, webServer, &cfgMutex, &currentConfig); err != nil {
					log.Printf("Failed to reload configuration: %v", err)
				} else {
					log.Println("Configuration reloaded successfully")
				}
			case syscall.SIGINT, syscall.SIGTERM:
				fmt.Println("\nShutting down...")
				return shutdown(server)
			}
		case event, ok := <-watcher.Events:
			if !ok {
				continue
			}
			// Editors often replace the file instead of writing in place.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				log.Printf("Config file changed: %s (event: %s), reloading configuration...", event.Name, event.Op.String())

				if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					time.Sleep(200 * time.Millisecond)

					if _, err := os.Stat(configPath); os.IsNotExist(err) {
						log.Printf("Config file was removed and not replaced, skipping reload")
						continue
					}

					if err := watcher.Add(configPath); err != nil {
						log.Printf("Warning: failed to re-add config file to watcher: %v", err)
					}
				} else {
					time.Sleep(100 * time.Millisecond)
				}

				if err := reloadConfiguration(configPath, registry, webServer, &cfgMutex, &currentConfig); err != nil {
					log.Printf("Failed to reload configuration after file change: %v", err)
				} else {
					log.Println("Configuration reloaded successfully after file change")
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				continue
			}
			log.Printf("Config file watcher error: %v", err)
		}
	}
}

func shutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// reloadConfiguration swaps the provider set for the one in the new config.
// Listen address and site URL changes still require a restart.
func reloadConfiguration(configPath string, registry *core.Registry, webServer *WebServer, cfgMutex *sync.RWMutex, currentConfig **config.Config) error {
	cfgMutex.Lock()
	defer cfgMutex.Unlock()

	newCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading new config: %w", err)
	}

	oldCfg := *currentConfig

	if newCfg.ListenAddr() != oldCfg.ListenAddr() || newCfg.SiteURL != oldCfg.SiteURL {
		log.Printf("Listen address or site URL changed; restart required for that to take effect")
	}

	oldProviders := oldCfg.ListProviders()
	for _, name := range oldProviders {
		log.Printf("Removing provider: %s", name)
		if err := registry.RemoveProvider(name); err != nil {
			log.Printf("Warning: failed to remove provider %s: %v", name, err)
		}
	}

	newProviders := newCfg.ListProviders()
	for _, name := range newProviders {
		log.Printf("Adding provider: %s", name)
		if err := addProviderFromConfig(registry, newCfg, name); err != nil {
			return fmt.Errorf("adding provider %s: %w", name, err)
		}
	}

	webServer.UpdateConfig(newCfg)
	*currentConfig = newCfg

	log.Printf("Configuration reload complete: removed %d providers, added %d providers",
		len(oldProviders), len(newProviders))

	return nil
}
