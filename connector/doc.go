// Package connector adapts a flat key/value-with-relationships interface
// onto a Neo4j graph database.
//
// It is built for pub/sub data-synchronization servers that hold no state
// themselves: a slash-delimited key plus a nested value goes in, graph
// reads, upserts and deletes come out, and results are translated back
// into the caller's value shape with round-trip fidelity.
//
// # Keys
//
// Keys are split on the configured split char into alternating label and
// id segments. "users/wolfram" addresses the entity wolfram under the
// USERS label; a bare "users" addresses the implicit schema node for the
// label. Labels are uppercased, ids keep their case. Keys whose first
// segment is empty or equals the default label are rejected with
// [ErrInvalidKey] before any query is issued.
//
// # Values
//
// Values follow the deepstream record shape {_v, _d}, where _d is either
// a list of scalars or an object of scalar properties plus an optional
// _rels map of {_v, _count} relation descriptors. See the shape package
// for the storage-side representation.
//
// # Usage
//
//	cfg := connector.DefaultConfig()
//	cfg.Graph.URI = "bolt://localhost:7687"
//	cfg.Graph.Username = "neo4j"
//	cfg.Graph.Password = "secret"
//
//	c, err := connector.Dial(ctx, cfg, nil)
//	if err != nil {
//	    // initial connectivity probe failed
//	}
//	defer c.Close(ctx)
//
//	err = c.Set(ctx, "users/wolfram", value)
//	value, err = c.Get(ctx, "users/wolfram") // (nil, nil) when missing
//	err = c.Delete(ctx, "users/wolfram")
//
// Operations are independent and stateless: the connector does not
// serialize calls against the same key and does not retry. Read-your-write
// ordering across concurrent writers is the caller's or the database's
// concern.
//
// # Errors
//
//   - [ErrInvalidConfig] - a required option is missing (fails at
//     construction, never silently defaulted)
//   - [ErrInvalidKey] - malformed key, reported without any engine call
//   - engine errors pass through unwrapped and are never retried
//
// Failures not tied to a call, such as a failed readiness probe, are
// published through the [EventError] event instead.
package connector
