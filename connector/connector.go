package connector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jacentio/arbor/cypher"
	"github.com/jacentio/arbor/graph"
	"github.com/jacentio/arbor/internal/segment"
	"github.com/jacentio/arbor/shape"
)

// Lifecycle events published by the Connector.
const (
	// EventReady fires once the initial connectivity probe succeeds.
	// It carries no payload.
	EventReady = "ready"

	// EventError fires for failures not tied to a specific operation,
	// such as a failed connectivity probe. The payload is the error.
	EventError = "error"
)

// Connector adapts flat slash-delimited keys with nested values onto a
// graph database, for a synchronization server that holds no state of its
// own.
type Connector struct {
	exec   graph.Executor
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[string][]func(any)
	emitted  map[string]bool
}

// New creates a Connector on an existing Executor. It fails fast on
// invalid configuration, before any connection attempt.
// A nil logger falls back to slog.Default().
func New(exec graph.Executor, cfg Config, logger *slog.Logger) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		exec:     exec,
		config:   cfg,
		logger:   logger,
		handlers: make(map[string][]func(any)),
		emitted:  make(map[string]bool),
	}, nil
}

// Dial creates the Neo4j executor from cfg.Graph, wraps it in a Connector
// and runs the readiness probe.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	exec, err := graph.Dial(ctx, cfg.Graph)
	if err != nil {
		return nil, err
	}

	c, err := New(exec, cfg, logger)
	if err != nil {
		exec.Close(ctx)
		return nil, err
	}
	if err := c.Open(ctx); err != nil {
		exec.Close(ctx)
		return nil, err
	}
	return c, nil
}

// On registers a handler for a lifecycle event. Handlers registered after
// the event has fired are not called.
func (c *Connector) On(event string, fn func(payload any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], fn)
}

// emit fires an event at most once per Connector.
func (c *Connector) emit(event string, payload any) {
	c.mu.Lock()
	if c.emitted[event] {
		c.mu.Unlock()
		return
	}
	c.emitted[event] = true
	fns := c.handlers[event]
	c.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

// Open probes connectivity and publishes the outcome: EventReady on
// success, EventError on failure. Each fires at most once.
func (c *Connector) Open(ctx context.Context) error {
	if err := c.exec.Verify(ctx); err != nil {
		c.logger.Error("connectivity probe failed", "error", err)
		c.emit(EventError, err)
		return err
	}
	c.logger.Info("connected")
	c.emit(EventReady, nil)
	return nil
}

// Close releases the executor's resources.
func (c *Connector) Close(ctx context.Context) error {
	return c.exec.Close(ctx)
}

// Set upserts the entity addressed by key together with its first-level
// relations. The write is applied in a single transaction: either the full
// entity-and-relations write is visible or none of it is.
func (c *Connector) Set(ctx context.Context, key string, value map[string]any) error {
	segs, err := segment.Parse(key, c.config.SplitChar, c.config.DefaultLabel)
	if err != nil {
		return err
	}

	stored, err := shape.ForStorage(value)
	if err != nil {
		return err
	}

	stmt, err := cypher.Synthesize(cypher.ActionSet, segs, stored)
	if err != nil {
		return err
	}

	if _, err := c.exec.Write(ctx, stmt.Query, stmt.Params); err != nil {
		return err
	}
	c.logger.Debug("set", "key", key)
	return nil
}

// Get reads the entity addressed by key. A missing entity is not an
// error: Get returns (nil, nil).
func (c *Connector) Get(ctx context.Context, key string) (map[string]any, error) {
	segs, err := segment.Parse(key, c.config.SplitChar, c.config.DefaultLabel)
	if err != nil {
		return nil, err
	}

	stmt, err := cypher.Synthesize(cypher.ActionGet, segs, nil)
	if err != nil {
		return nil, err
	}

	rows, err := c.exec.Read(ctx, stmt.Query, stmt.Params)
	if err != nil {
		return nil, err
	}

	stored := decodeRow(rows)
	if stored == nil {
		c.logger.Debug("get", "key", key, "found", false)
		return nil, nil
	}

	value, err := shape.FromStorage(stored)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("get", "key", key, "found", true)
	return value, nil
}

// Delete removes the entity addressed by key together with its directly
// related nodes. There is no cascade beyond that one relation hop.
func (c *Connector) Delete(ctx context.Context, key string) error {
	segs, err := segment.Parse(key, c.config.SplitChar, c.config.DefaultLabel)
	if err != nil {
		return err
	}

	stmt, err := cypher.Synthesize(cypher.ActionDelete, segs, nil)
	if err != nil {
		return err
	}

	if _, err := c.exec.Write(ctx, stmt.Query, stmt.Params); err != nil {
		return err
	}
	c.logger.Debug("delete", "key", key)
	return nil
}

// decodeRow turns a GET result row back into the storage value shape.
// Returns nil when there is no row or the row decodes empty, which both
// mean the entity does not exist.
func decodeRow(rows []graph.Record) map[string]any {
	if len(rows) == 0 {
		return nil
	}
	row := rows[0]

	meta := map[string]any{}
	if m, ok := row["meta"].(map[string]any); ok {
		for k, v := range m {
			if k == "id" {
				continue
			}
			meta[k] = v
		}
	}

	props := map[string]any{}
	if p, ok := row["props"].(map[string]any); ok {
		props = p
	}

	if len(meta) == 0 && len(props) == 0 {
		return nil
	}

	stored := map[string]any{shape.FieldMeta: meta}

	if list, ok := props[shape.FieldList]; ok {
		stored[shape.FieldList] = list
		return stored
	}

	stored["_props"] = props

	relTypes, _ := row["relTypes"].([]any)
	relNodes, _ := row["relNodes"].([]any)
	rels := map[string]any{}
	for i, rt := range relTypes {
		name, ok := rt.(string)
		if !ok || i >= len(relNodes) {
			continue
		}
		if node, ok := relNodes[i].(map[string]any); ok {
			rels[name] = node
		}
	}
	if len(rels) > 0 {
		stored[shape.FieldRels] = rels
	}

	return stored
}
