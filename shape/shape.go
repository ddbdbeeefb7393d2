// Package shape converts record values between the synchronization
// server's nested shape and the graph storage shape.
//
// The external shape is {_v: version, _d: payload} where payload is either
// an ordered list of scalars or an object carrying scalar properties plus
// an optional _rels map of relation descriptors. The storage shape keeps
// the version metadata under __ds and splits the payload into either a
// __dsList property list or a _props/_rels pair.
//
// ForStorage and FromStorage are mutual inverses for well-formed values:
// FromStorage(ForStorage(v)) is deep-equal to v. Both operate on deep
// copies, so outputs never alias caller-owned structures.
package shape

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingData is returned by ForStorage when the value has no _d
	// payload. This indicates a programming defect in the caller, not a
	// recoverable runtime condition.
	ErrMissingData = errors.New("arbor: value has no _d payload")

	// ErrMissingMeta is returned by FromStorage when the stored value has
	// no __ds metadata.
	ErrMissingMeta = errors.New("arbor: stored value has no __ds metadata")
)

// Storage shape field names.
const (
	FieldData = "_d"
	FieldRels = "_rels"
	FieldMeta = "__ds"
	FieldList = "__dsList"
)

// ForStorage converts an external value into the graph storage shape.
func ForStorage(v map[string]any) (map[string]any, error) {
	if _, ok := v[FieldData]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrMissingData, v)
	}

	meta := deepCopyMap(v)
	data := deepCopyValue(meta[FieldData])
	delete(meta, FieldData)

	if list, ok := data.([]any); ok {
		return map[string]any{
			FieldList: list,
			FieldMeta: meta,
		}, nil
	}

	props, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: _d is %T, want object or list", ErrMissingData, data)
	}

	rels := map[string]any{}
	if r, ok := props[FieldRels].(map[string]any); ok {
		rels = r
	}
	delete(props, FieldRels)

	return map[string]any{
		"_props":  props,
		FieldRels: rels,
		FieldMeta: meta,
	}, nil
}

// FromStorage converts a stored value back into the external shape.
// A nil or empty input yields (nil, nil): there is no value.
func FromStorage(s map[string]any) (map[string]any, error) {
	if len(s) == 0 {
		return nil, nil
	}

	metaVal, ok := s[FieldMeta]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrMissingMeta, s)
	}

	out := map[string]any{}
	if meta, ok := metaVal.(map[string]any); ok {
		out = deepCopyMap(meta)
	}

	if list, ok := s[FieldList]; ok {
		out[FieldData] = deepCopyValue(list)
		return out, nil
	}

	data := map[string]any{}
	if props, ok := s["_props"].(map[string]any); ok {
		data = deepCopyMap(props)
	}
	// An empty relation map is not reattached so that values round-trip
	// exactly: ForStorage emits _rels even when the source had none.
	if rels, ok := s[FieldRels].(map[string]any); ok && len(rels) > 0 {
		data[FieldRels] = deepCopyMap(rels)
	}
	out[FieldData] = data

	return out, nil
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
