package connector

import (
	"errors"
	"fmt"

	"github.com/jacentio/arbor/graph"
)

// ErrInvalidConfig is returned when required options are missing.
var ErrInvalidConfig = errors.New("arbor: invalid connector config")

// DefaultLabel is the fallback label for keys that address a schema node
// with no id.
const DefaultLabel = "DS_SCHEMA"

// Config holds configuration for the Connector.
type Config struct {
	// Graph holds the connection options for the graph database.
	// Used by Dial; ignored when an Executor is supplied to New.
	Graph graph.Config

	// SplitChar separates key segments, e.g. "/". Required: keys cannot
	// be parsed without it.
	SplitChar string

	// DefaultLabel is applied to single-segment keys.
	// Default: "DS_SCHEMA".
	DefaultLabel string
}

// DefaultConfig returns a Config with "/" keys and the standard default
// label. Connection credentials still have to be provided.
func DefaultConfig() Config {
	return Config{
		Graph:        graph.DefaultConfig(),
		SplitChar:    "/",
		DefaultLabel: DefaultLabel,
	}
}

// Validate reports missing required options and fills the default label.
// The split char is never defaulted silently.
func (c *Config) Validate() error {
	if c.SplitChar == "" {
		return fmt.Errorf("%w: split char is required", ErrInvalidConfig)
	}
	if c.DefaultLabel == "" {
		c.DefaultLabel = DefaultLabel
	}
	return nil
}
