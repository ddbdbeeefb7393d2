// Package graph binds the connector to a graph database.
//
// The connector depends only on the Executor interface: a service that
// accepts query text plus named parameters and returns result rows or a
// backend error. The Neo4j implementation in this package is the one
// shipped binding; tests substitute fakes.
package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Record is one result row, keyed by column name. Node values surface as
// their property maps.
type Record map[string]any

// Executor executes synthesized queries against a graph database.
// Implementations must be safe for concurrent use.
type Executor interface {
	// Read executes a query in a read transaction and returns all rows.
	Read(ctx context.Context, query string, params map[string]any) ([]Record, error)

	// Write executes a query in a single write transaction. The whole
	// statement is applied atomically or not at all.
	Write(ctx context.Context, query string, params map[string]any) ([]Record, error)

	// Verify probes connectivity to the backend.
	Verify(ctx context.Context) error

	// Close releases the underlying connection resources.
	Close(ctx context.Context) error
}

// ErrInvalidConfig is returned when required connection options are missing.
var ErrInvalidConfig = errors.New("arbor: invalid graph config")

// Config holds connection options for the Neo4j executor.
type Config struct {
	// URI is the bolt or neo4j routing URI, e.g. "bolt://localhost:7687".
	// Encryption is selected by the URI scheme (bolt+s, neo4j+s).
	URI string

	// Username for basic authentication.
	Username string

	// Password for basic authentication.
	Password string

	// Database to use. Empty selects the server default.
	Database string

	// MaxConnectionPoolSize limits pooled connections.
	// Zero uses the driver default.
	MaxConnectionPoolSize int

	// ConnectionTimeout bounds the initial connectivity probe.
	// Default: 30s.
	ConnectionTimeout time.Duration

	// MaxTransactionRetryTime bounds the driver's managed transaction
	// retries. Default: 30s.
	MaxTransactionRetryTime time.Duration
}

// DefaultConfig returns a Config with driver defaults filled in.
// URI and credentials still have to be provided.
func DefaultConfig() Config {
	return Config{
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
	}
}

// Validate reports missing required options. Nothing is silently defaulted
// except the timeouts, which fall back to DefaultConfig values.
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("%w: URI is required", ErrInvalidConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidConfig)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidConfig)
	}
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = 30 * time.Second
	}
	if c.MaxTransactionRetryTime <= 0 {
		c.MaxTransactionRetryTime = 30 * time.Second
	}
	return nil
}
