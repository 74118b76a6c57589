// Package sqlite implements a search provider backed by an embedded SQLite
// database with an FTS5 index. It is the default backend: zero external
// services, one database file per configured instance.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/db"
	"github.com/Roguelazer/advsearch/pkg/log"
)

func init() {
	prototype := &Provider{}
	core.RegisterProviderPrototype("sqlite", prototype)
}

type Config struct {
	DatabasePath string `toml:"database_path"`
	// Sources restricts which document kinds this instance indexes.
	// Empty means wiki and ticket.
	Sources []string `toml:"sources"`
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	return nil
}

type Provider struct {
	config       *Config
	db           *sql.DB
	instanceName string
	logger       *log.Logger
}

func NewProvider(instanceName string, config interface{}) (core.Provider, error) {
	var cfg *Config
	if config == nil {
		cfg = &Config{}
	} else {
		var ok bool
		cfg, ok = config.(*Config)
		if !ok {
			return nil, fmt.Errorf("invalid config type for sqlite provider: %T", config)
		}
	}

	provider := &Provider{
		config:       cfg,
		instanceName: instanceName,
		logger:       log.ForService("sqlite." + instanceName),
	}

	if cfg.DatabasePath != "" {
		if err := provider.open(); err != nil {
			return nil, err
		}
	}

	return provider, nil
}

func (p *Provider) Type() string { return "sqlite" }
func (p *Provider) Name() string { return p.instanceName }

func (p *Provider) Sources() []string {
	if p.config != nil && len(p.config.Sources) > 0 {
		return p.config.Sources
	}
	return []string{"wiki", "ticket"}
}

func (p *Provider) ConfigType() interface{} {
	return &Config{}
}

func (p *Provider) GetConfig() interface{} {
	return p.config
}

func (p *Provider) SetConfig(config interface{}) error {
	cfg, ok := config.(*Config)
	if !ok {
		return fmt.Errorf("invalid config type for sqlite provider: %T", config)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing previous database: %w", err)
		}
		p.db = nil
	}

	p.config = cfg
	return p.open()
}

func (p *Provider) Factory(instanceName string, config interface{}) (core.Provider, error) {
	return NewProvider(instanceName, config)
}

func (p *Provider) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *Provider) open() error {
	conn, err := sql.Open("sqlite3", p.config.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(conn); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	p.db = conn
	return nil
}

func (p *Provider) UpsertDocument(ctx context.Context, doc core.Document) error {
	if p.db == nil {
		return fmt.Errorf("provider %s not configured", p.instanceName)
	}

	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields for document %s: %w", doc.ID, err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				p.logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (id, source, title, author, updated_at, body, comment, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Source, doc.Title, doc.Author, doc.Updated.UTC().Format(time.RFC3339Nano),
		doc.Body, doc.Comment, string(fieldsJSON))
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents_fts (rowid, title, body, comment, author, source)
		VALUES ((SELECT rowid FROM documents WHERE id = ?), ?, ?, ?, ?, ?)
	`, doc.ID, doc.Title, doc.Body, doc.Comment, doc.Author, doc.Source)
	if err != nil {
		return fmt.Errorf("indexing document %s: %w", doc.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document %s: %w", doc.ID, err)
	}
	committed = true
	return nil
}

func (p *Provider) DeleteDocument(ctx context.Context, id string) error {
	if p.db == nil {
		return fmt.Errorf("provider %s not configured", p.instanceName)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				p.logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM documents_fts WHERE rowid = (SELECT rowid FROM documents WHERE id = ?)
	`, id)
	if err != nil {
		return fmt.Errorf("removing document %s from index: %w", id, err)
	}

	// Deleting an unknown id is a no-op, not an error.
	_, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete of %s: %w", id, err)
	}
	committed = true
	return nil
}

func (p *Provider) Search(ctx context.Context, criteria core.Criteria) (int, []core.Result, error) {
	if p.db == nil {
		return 0, nil, fmt.Errorf("provider %s not configured", p.instanceName)
	}

	perPage := criteria.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	offset := criteria.StartPoint(p.instanceName)

	var conditions []string
	var args []interface{}

	if len(criteria.Sources) > 0 {
		placeholders := strings.Repeat("?, ", len(criteria.Sources))
		conditions = append(conditions, fmt.Sprintf("d.source IN (%s)", strings.TrimSuffix(placeholders, ", ")))
		for _, source := range criteria.Sources {
			args = append(args, source)
		}
	}
	if len(criteria.Authors) > 0 {
		placeholders := strings.Repeat("?, ", len(criteria.Authors))
		conditions = append(conditions, fmt.Sprintf("d.author IN (%s)", strings.TrimSuffix(placeholders, ", ")))
		for _, author := range criteria.Authors {
			args = append(args, author)
		}
	}
	if criteria.DateStart != nil {
		conditions = append(conditions, "d.updated_at >= ?")
		args = append(args, criteria.DateStart.UTC().Format(time.RFC3339Nano))
	}
	if criteria.DateEnd != nil {
		conditions = append(conditions, "d.updated_at <= ?")
		args = append(args, criteria.DateEnd.UTC().Format(time.RFC3339Nano))
	}

	var fromClause, scoreExpr, orderBy string
	if criteria.Query != "" {
		fromClause = "documents d JOIN documents_fts fts ON d.rowid = fts.rowid"
		conditions = append([]string{"documents_fts MATCH ?"}, conditions...)
		args = append([]interface{}{criteria.Query}, args...)
		// bm25 returns lower-is-better, flip the sign so higher wins.
		scoreExpr = "-bm25(documents_fts)"
		orderBy = "score DESC, d.updated_at DESC"
	} else {
		fromClause = "documents d"
		scoreExpr = "0.0"
		orderBy = "d.updated_at DESC"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM " + fromClause + whereClause
	if err := p.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("counting matches: %w", err)
	}

	pageQuery := fmt.Sprintf(`
		SELECT d.id, d.source, d.title, d.author, d.updated_at, d.body, d.comment, d.fields, %s AS score
		FROM %s%s
		ORDER BY %s
		LIMIT ? OFFSET ?`, scoreExpr, fromClause, whereClause, orderBy)
	pageArgs := append(append([]interface{}{}, args...), perPage, offset)

	rows, err := p.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return 0, nil, fmt.Errorf("querying documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.Warnf("failed to close rows: %v", err)
		}
	}()

	var results []core.Result
	for rows.Next() {
		var id, source, title, author, updatedStr, body, comment, fieldsStr string
		var score float64
		if err := rows.Scan(&id, &source, &title, &author, &updatedStr, &body, &comment, &fieldsStr, &score); err != nil {
			return 0, nil, fmt.Errorf("scanning row: %w", err)
		}

		updated, err := parseStoredTime(updatedStr)
		if err != nil {
			return 0, nil, fmt.Errorf("parsing time for document %s: %w", id, err)
		}

		// Comments are searchable too; a hit with no body text (a
		// bare ticket comment) still gets an excerpt.
		summary := summarize(body)
		if summary == "" {
			summary = summarize(comment)
		}

		result := core.Result{
			Title:   title,
			Score:   score,
			Source:  source,
			Summary: summary,
			Date:    updated,
			Author:  author,
		}
		if source == "ticket" {
			result.TicketID = ticketIDFromFields(fieldsStr)
		}
		results = append(results, result)
	}

	return total, results, rows.Err()
}

func parseStoredTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05-07:00", value)
}

const summaryLength = 240

// summarize trims the body down to a result excerpt, cutting at a word
// boundary where possible.
func summarize(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	if len(body) <= summaryLength {
		return body
	}
	cut := body[:summaryLength]
	if idx := strings.LastIndex(cut, " "); idx > summaryLength/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func ticketIDFromFields(fieldsJSON string) int {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return 0
	}
	switch v := fields["ticket_id"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
