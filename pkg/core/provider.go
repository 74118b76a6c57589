// Package core defines the provider abstraction the search aggregator is
// built around. A provider is one search backend: it indexes documents and
// answers queries with scored results. Provider packages register a
// prototype in their init() so a binary gets exactly the backends it
// imports.
package core

import "context"

// Provider is the interface every search backend implements.
//
// Type is the backend kind ("sqlite", "manticore"); Name is the configured
// instance name, which is also what start-point bookkeeping is keyed on.
// Providers must tolerate any combination of criteria fields: an empty
// query with author or date filters is a valid search.
//
// Implementations register themselves from init():
//
//	func init() {
//		prototype := &Provider{}
//		core.RegisterProviderPrototype("sqlite", prototype)
//	}
type Provider interface {
	Type() string
	Name() string

	// Sources returns the document kinds this provider indexes
	// ("wiki", "ticket", ...). The union across providers drives the
	// source filter choices offered to clients.
	Sources() []string

	UpsertDocument(ctx context.Context, doc Document) error
	DeleteDocument(ctx context.Context, id string) error

	// Search returns the total number of matches plus one page of
	// results, starting at the provider's start point from the
	// criteria. Scores must be comparable within a provider; higher
	// is more relevant.
	Search(ctx context.Context, criteria Criteria) (int, []Result, error)

	ConfigType() interface{}
	SetConfig(config interface{}) error
	GetConfig() interface{}

	// Factory creates a configured instance from this prototype.
	Factory(instanceName string, config interface{}) (Provider, error)

	Close() error
}
