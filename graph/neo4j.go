package graph

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4j is an Executor backed by the official Neo4j driver. Every call
// opens its own session and closes it on all paths; atomicity of a single
// statement comes from the driver's managed transactions.
type Neo4j struct {
	config Config
	driver neo4j.DriverWithContext
}

// Dial creates the driver and verifies connectivity before returning.
// The probe retries with exponential backoff until it succeeds or
// cfg.ConnectionTimeout worth of attempts is exhausted.
func Dial(ctx context.Context, cfg Config) (*Neo4j, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	driverConfig := func(c *neo4j.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
		c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
		c.MaxTransactionRetryTime = cfg.MaxTransactionRetryTime
	}

	const maxAttempts = 5
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, driverConfig)
		if err == nil {
			if err = driver.VerifyConnectivity(ctx); err == nil {
				return &Neo4j{config: cfg, driver: driver}, nil
			}
			driver.Close(ctx)
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("arbor: connectivity probe cancelled: %w", ctx.Err())
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.ConnectionTimeout {
			delay = cfg.ConnectionTimeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("arbor: connectivity probe cancelled: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("arbor: failed to connect after %d attempts: %w", maxAttempts, lastErr)
}

// Read executes query in a read transaction.
func (n *Neo4j) Read(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, n.runner(ctx, query, params))
	if err != nil {
		return nil, err
	}
	return result.([]Record), nil
}

// Write executes query in a single write transaction.
func (n *Neo4j) Write(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, n.runner(ctx, query, params))
	if err != nil {
		return nil, err
	}
	return result.([]Record), nil
}

// Verify probes connectivity to the backend.
func (n *Neo4j) Verify(ctx context.Context) error {
	return n.driver.VerifyConnectivity(ctx)
}

// Close shuts down the driver and its connection pool.
func (n *Neo4j) Close(ctx context.Context) error {
	return n.driver.Close(ctx)
}

func (n *Neo4j) session(ctx context.Context) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.config.Database,
	})
}

func (n *Neo4j) runner(ctx context.Context, query string, params map[string]any) neo4j.ManagedTransactionWork {
	return func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return convertRecords(records), nil
	}
}

// convertRecords flattens driver records into plain column maps so the
// connector never sees driver types.
func convertRecords(records []*neo4j.Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		row := make(Record, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = flattenValue(rec.Values[i])
		}
		out = append(out, row)
	}
	return out
}

func flattenValue(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		return t.Props
	case neo4j.Relationship:
		return t.Props
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = flattenValue(e)
		}
		return out
	default:
		return v
	}
}
