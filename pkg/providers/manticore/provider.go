// Package manticore implements a search provider backed by a Manticore
// Search daemon, reached over its MySQL wire protocol. Transient failures
// are retried with backoff and a circuit breaker fails fast when the
// daemon stays unreachable.
package manticore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sony/gobreaker/v2"

	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/log"
)

func init() {
	prototype := &Provider{}
	core.RegisterProviderPrototype("manticore", prototype)
}

type Config struct {
	// Address is the daemon's SQL endpoint, host:port. Manticore
	// listens on 9306 by default.
	Address  string `toml:"address"`
	Index    string `toml:"index"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	// Sources restricts which document kinds this instance indexes.
	Sources []string `toml:"sources"`

	Retry RetryConfig `toml:"retry"`

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit; BreakerTimeout how long it stays open.
	BreakerFailures uint32   `toml:"breaker_failures"`
	BreakerTimeout  Duration `toml:"breaker_timeout"`
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

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.Index == "" {
		c.Index = "advsearch"
	}
	if strings.ContainsAny(c.Index, " ;'\"`") {
		return fmt.Errorf("invalid index name %q", c.Index)
	}
	return nil
}

type Provider struct {
	config       *Config
	db           *sql.DB
	retrier      *retrier
	breaker      *gobreaker.CircuitBreaker[any]
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
			return nil, fmt.Errorf("invalid config type for manticore provider: %T", config)
		}
	}

	provider := &Provider{
		config:       cfg,
		instanceName: instanceName,
		logger:       log.ForService("manticore." + instanceName),
	}

	if cfg.Address != "" {
		if err := provider.open(); err != nil {
			return nil, err
		}
	}

	return provider, nil
}

func (p *Provider) Type() string { return "manticore" }
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
		return fmt.Errorf("invalid config type for manticore provider: %T", config)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing previous connection: %w", err)
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
	dsnConfig := mysql.NewConfig()
	dsnConfig.Net = "tcp"
	dsnConfig.Addr = p.config.Address
	dsnConfig.User = p.config.Username
	dsnConfig.Passwd = p.config.Password
	// Manticore's SQL endpoint has no real prepared-statement support,
	// interpolate on the client side instead.
	dsnConfig.InterpolateParams = true
	dsnConfig.AllowNativePasswords = true

	conn, err := sql.Open("mysql", dsnConfig.FormatDSN())
	if err != nil {
		return fmt.Errorf("opening connection to %s: %w", p.config.Address, err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetConnMaxIdleTime(time.Minute)

	p.db = conn
	p.retrier = newRetrier(p.config.Retry, p.logger)
	p.breaker = p.newBreaker()

	if err := p.createTable(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			p.logger.Warnf("failed to close connection: %v", closeErr)
		}
		p.db = nil
		return err
	}
	return nil
}

func (p *Provider) newBreaker() *gobreaker.CircuitBreaker[any] {
	maxFailures := p.config.BreakerFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := p.config.BreakerTimeout.Duration
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "manticore:" + p.instanceName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

func (p *Provider) createTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Real-time table: text columns are full-text indexed, string
	// columns are filterable attributes.
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		doc_id string,
		source string,
		author string,
		title text,
		body text,
		comment text,
		updated_at bigint,
		fields string
	)`, p.config.Index)

	return p.retrier.do(ctx, func(ctx context.Context) error {
		_, err := p.db.ExecContext(ctx, query)
		return err
	})
}

// execute routes an operation through the circuit breaker and retrier.
func (p *Provider) execute(ctx context.Context, op func(ctx context.Context) error) error {
	if p.db == nil {
		return fmt.Errorf("provider %s not configured", p.instanceName)
	}
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.retrier.do(ctx, op)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("backend %s circuit open: %w", p.instanceName, err)
	}
	return err
}

func (p *Provider) UpsertDocument(ctx context.Context, doc core.Document) error {
	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields for document %s: %w", doc.ID, err)
	}

	query := fmt.Sprintf(`REPLACE INTO %s (id, doc_id, source, author, title, body, comment, updated_at, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, p.config.Index)

	return p.execute(ctx, func(ctx context.Context) error {
		_, err := p.db.ExecContext(ctx, query,
			documentRowID(doc.ID), doc.ID, doc.Source, doc.Author,
			doc.Title, doc.Body, doc.Comment, doc.Updated.UTC().Unix(), string(fieldsJSON))
		return err
	})
}

func (p *Provider) DeleteDocument(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", p.config.Index)
	return p.execute(ctx, func(ctx context.Context) error {
		_, err := p.db.ExecContext(ctx, query, documentRowID(id))
		return err
	})
}

func (p *Provider) Search(ctx context.Context, criteria core.Criteria) (int, []core.Result, error) {
	perPage := criteria.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	offset := criteria.StartPoint(p.instanceName)

	whereClause, args := buildWhereClause(criteria)

	var total int
	var results []core.Result

	err := p.execute(ctx, func(ctx context.Context) error {
		total = 0
		results = nil

		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", p.config.Index, whereClause)
		if err := p.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("counting matches: %w", err)
		}

		var scoreExpr, orderBy string
		if criteria.Query != "" {
			scoreExpr = "WEIGHT()"
			orderBy = "score DESC, updated_at DESC"
		} else {
			scoreExpr = "0"
			orderBy = "updated_at DESC"
		}

		pageQuery := fmt.Sprintf(`SELECT doc_id, source, title, author, updated_at, body, comment, fields, %s AS score
			FROM %s%s ORDER BY %s LIMIT %d, %d`,
			scoreExpr, p.config.Index, whereClause, orderBy, offset, perPage)

		rows, err := p.db.QueryContext(ctx, pageQuery, args...)
		if err != nil {
			return fmt.Errorf("querying documents: %w", err)
		}
		defer func() {
			if err := rows.Close(); err != nil {
				p.logger.Warnf("failed to close rows: %v", err)
			}
		}()

		for rows.Next() {
			var docID, source, title, author, body, comment, fieldsStr string
			var updatedUnix int64
			var score float64
			if err := rows.Scan(&docID, &source, &title, &author, &updatedUnix, &body, &comment, &fieldsStr, &score); err != nil {
				return fmt.Errorf("scanning row: %w", err)
			}

			summary := summarize(body)
			if summary == "" {
				summary = summarize(comment)
			}

			result := core.Result{
				Title:   title,
				Score:   score,
				Source:  source,
				Summary: summary,
				Date:    time.Unix(updatedUnix, 0).UTC(),
				Author:  author,
			}
			if source == "ticket" {
				result.TicketID = ticketIDFromFields(fieldsStr)
			}
			results = append(results, result)
		}
		return rows.Err()
	})
	if err != nil {
		return 0, nil, err
	}
	return total, results, nil
}

// buildWhereClause translates criteria to a Manticore WHERE clause. The
// full-text match must come first; attribute filters follow.
func buildWhereClause(criteria core.Criteria) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if criteria.Query != "" {
		conditions = append(conditions, "MATCH(?)")
		args = append(args, criteria.Query)
	}
	if len(criteria.Sources) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(criteria.Sources)), ", ")
		conditions = append(conditions, fmt.Sprintf("source IN (%s)", placeholders))
		for _, source := range criteria.Sources {
			args = append(args, source)
		}
	}
	if len(criteria.Authors) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(criteria.Authors)), ", ")
		conditions = append(conditions, fmt.Sprintf("author IN (%s)", placeholders))
		for _, author := range criteria.Authors {
			args = append(args, author)
		}
	}
	if criteria.DateStart != nil {
		conditions = append(conditions, "updated_at >= ?")
		args = append(args, criteria.DateStart.UTC().Unix())
	}
	if criteria.DateEnd != nil {
		conditions = append(conditions, "updated_at <= ?")
		args = append(args, criteria.DateEnd.UTC().Unix())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// documentRowID hashes a document id into the numeric primary key the
// daemon requires. The original id is kept in the doc_id attribute.
func documentRowID(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	// Keep it positive when treated as a signed bigint.
	return h.Sum64() & 0x7fffffffffffffff
}

const summaryLength = 240

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
