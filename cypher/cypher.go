// Package cypher synthesizes parameterized Cypher statements for the three
// storage operations the synchronization protocol needs: upsert a full
// entity with its first-level relations, read it back, and delete it
// together with its directly related nodes.
//
// Every entity node is reached through a synthetic anchor node labeled
// __DS that carries the record's external id and version metadata:
//
//	(:__DS {id})-[:__ds]->(entity:LABEL)
//
// Each relation name in the stored value becomes an edge of that type from
// the entity to a sibling __DS node holding the relation's own version and
// count metadata.
//
// All record data is bound as query parameters. Labels and relationship
// types occupy identifier positions in Cypher and cannot be parameterized;
// they are backtick-escaped before being placed in query text.
package cypher

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jacentio/arbor/shape"
)

// Action selects which statement to synthesize.
type Action int

const (
	// ActionSet upserts an entity and its first-level relations.
	ActionSet Action = iota
	// ActionGet reads an entity, its metadata and its relations.
	ActionGet
	// ActionDelete removes an entity and its directly related nodes.
	ActionDelete
)

const (
	anchorLabel = "__DS"
	anchorEdge  = "__ds"
)

var (
	// ErrKeyDepth is returned for keys addressing relation paths beyond a
	// single entity. Multi-hop addressing is not supported; callers must
	// operate on each entity's own key.
	ErrKeyDepth = errors.New("arbor: relation paths beyond one entity are not supported")

	// ErrNoSegments is returned when no segments are given.
	ErrNoSegments = errors.New("arbor: no key segments")

	errUnknownAction = errors.New("arbor: unknown action")
)

// Statement is a synthesized query with its bound parameters.
type Statement struct {
	Query  string
	Params map[string]any
}

// Synthesize builds the statement for action against the entity addressed
// by segs. For ActionSet, stored must be a storage-shaped value as produced
// by shape.ForStorage; other actions ignore it.
//
// For a fixed (action, segs, stored) the synthesized text is identical:
// relation names are emitted in sorted order.
func Synthesize(action Action, segs []string, stored map[string]any) (Statement, error) {
	switch len(segs) {
	case 0:
		return Statement{}, ErrNoSegments
	case 1, 2:
	default:
		return Statement{}, fmt.Errorf("%w: %d segments", ErrKeyDepth, len(segs))
	}

	b := &builder{params: map[string]any{}}

	// A single-segment key addresses the schema node for a label; the
	// composed "DEFAULT:SEG" string doubles as the anchor id.
	label := segs[0]
	id := segs[0]
	if len(segs) == 2 {
		id = segs[1]
	}
	b.params["id"] = id

	pattern := fmt.Sprintf("(a:%s {id: $id})-[:%s]->(n:%s)",
		escapeIdent(anchorLabel), escapeIdent(anchorEdge), labelExpr(label))

	switch action {
	case ActionSet:
		return b.set(pattern, stored)
	case ActionGet:
		return b.get(pattern)
	case ActionDelete:
		return b.delete(pattern)
	default:
		return Statement{}, fmt.Errorf("%w: %d", errUnknownAction, action)
	}
}

type builder struct {
	clauses []string
	params  map[string]any
}

func (b *builder) add(format string, args ...any) {
	b.clauses = append(b.clauses, fmt.Sprintf(format, args...))
}

func (b *builder) statement() Statement {
	return Statement{
		Query:  strings.Join(b.clauses, "\n"),
		Params: b.params,
	}
}

func (b *builder) set(pattern string, stored map[string]any) (Statement, error) {
	meta, _ := stored[shape.FieldMeta].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}

	// List-shaped records store the whole list as a single entity
	// property; object-shaped records replace the entity's properties.
	props, _ := stored["_props"].(map[string]any)
	if list, ok := stored[shape.FieldList]; ok {
		props = map[string]any{shape.FieldList: list}
	}
	if props == nil {
		props = map[string]any{}
	}

	b.add("MERGE %s", pattern)
	b.add("SET a += $meta")
	b.add("SET n = $props")
	b.params["meta"] = meta
	b.params["props"] = props

	rels, _ := stored[shape.FieldRels].(map[string]any)
	for i, name := range sortedKeys(rels) {
		relMeta, _ := rels[name].(map[string]any)
		if relMeta == nil {
			relMeta = map[string]any{}
		}
		param := fmt.Sprintf("rel%d", i)
		node := fmt.Sprintf("r%d", i)
		b.add("MERGE (n)-[:%s]->(%s:%s)", escapeIdent(name), node, escapeIdent(anchorLabel))
		b.add("SET %s += $%s", node, param)
		b.params[param] = relMeta
	}

	return b.statement(), nil
}

func (b *builder) get(pattern string) (Statement, error) {
	b.add("MATCH %s", pattern)
	b.add("OPTIONAL MATCH (n)-[rel]->(s:%s)", escapeIdent(anchorLabel))
	b.add("RETURN a AS meta, n AS props, collect(type(rel)) AS relTypes, collect(s) AS relNodes")
	return b.statement(), nil
}

func (b *builder) delete(pattern string) (Statement, error) {
	b.add("MATCH %s", pattern)
	b.add("OPTIONAL MATCH (n)-[]->(s:%s)", escapeIdent(anchorLabel))
	b.add("DETACH DELETE a, n, s")
	return b.statement(), nil
}

// labelExpr renders an entity label expression. Schema keys carry a
// composed "DEFAULT:SEG" label, which becomes a multi-label pattern.
func labelExpr(label string) string {
	parts := strings.Split(label, ":")
	for i, p := range parts {
		parts[i] = escapeIdent(p)
	}
	return strings.Join(parts, ":")
}

// escapeIdent quotes an identifier for use in a label or relationship type
// position, where Cypher parameters are not allowed.
func escapeIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
