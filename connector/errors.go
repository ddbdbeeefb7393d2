package connector

import (
	"github.com/jacentio/arbor/internal/segment"
)

// ErrInvalidKey is returned when a key is malformed: its first segment is
// empty or equals the configured default label, or no split char is
// configured. Operations fail with it synchronously, before any query is
// issued.
var ErrInvalidKey = segment.ErrInvalidKey
