// Package segment parses external record keys into normalized graph segments.
package segment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when a key cannot be parsed into segments.
var ErrInvalidKey = errors.New("arbor: invalid key")

// Parse splits key on splitChar and normalizes the resulting segments.
//
// Segments alternate between labels and identifiers: elements at even
// positions are uppercased, elements at odd positions keep their case.
// A single-element key addresses the implicit schema node for a label and
// is rewritten to "{defaultLabel}:{ELEMENT}".
//
// The first element must be non-empty and must not equal defaultLabel;
// violating keys are rejected before any query is built.
func Parse(key, splitChar, defaultLabel string) ([]string, error) {
	if splitChar == "" {
		return nil, fmt.Errorf("%w %q: no split char configured", ErrInvalidKey, key)
	}

	parts := strings.Split(key, splitChar)
	if parts[0] == "" {
		return nil, fmt.Errorf("%w %q", ErrInvalidKey, key)
	}
	if parts[0] == defaultLabel {
		return nil, fmt.Errorf("%w %q", ErrInvalidKey, key)
	}

	segs := make([]string, len(parts))
	for i, p := range parts {
		if i%2 == 0 {
			segs[i] = strings.ToUpper(p)
		} else {
			segs[i] = p
		}
	}

	if len(segs) == 1 {
		segs[0] = defaultLabel + ":" + segs[0]
	}

	return segs, nil
}
