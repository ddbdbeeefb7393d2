package connector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/arbor/connector"
	"github.com/jacentio/arbor/cypher"
	"github.com/jacentio/arbor/graph"
)

// fakeExecutor records issued statements and serves canned results.
type fakeExecutor struct {
	reads  []issued
	writes []issued

	readRows  []graph.Record
	readErr   error
	writeErr  error
	verifyErr error
	closed    bool
}

type issued struct {
	query  string
	params map[string]any
}

func (f *fakeExecutor) Read(_ context.Context, query string, params map[string]any) ([]graph.Record, error) {
	f.reads = append(f.reads, issued{query, params})
	return f.readRows, f.readErr
}

func (f *fakeExecutor) Write(_ context.Context, query string, params map[string]any) ([]graph.Record, error) {
	f.writes = append(f.writes, issued{query, params})
	return nil, f.writeErr
}

func (f *fakeExecutor) Verify(context.Context) error { return f.verifyErr }

func (f *fakeExecutor) Close(context.Context) error {
	f.closed = true
	return nil
}

func newConnector(t *testing.T, exec graph.Executor) *connector.Connector {
	t.Helper()
	cfg := connector.Config{SplitChar: "/"}
	c, err := connector.New(exec, cfg, nil)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresSplitChar(t *testing.T) {
	_, err := connector.New(&fakeExecutor{}, connector.Config{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, connector.ErrInvalidConfig)
}

func TestConfig_DefaultLabel(t *testing.T) {
	cfg := connector.Config{SplitChar: "/"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "DS_SCHEMA", cfg.DefaultLabel)
}

func TestOperations_InvalidKeyIssuesNoQuery(t *testing.T) {
	exec := &fakeExecutor{}
	c := newConnector(t, exec)
	ctx := context.Background()

	err := c.Set(ctx, "/a/b/c", map[string]any{"_v": 1, "_d": map[string]any{}})
	assert.ErrorIs(t, err, connector.ErrInvalidKey)

	_, err = c.Get(ctx, "/a/b/c")
	assert.ErrorIs(t, err, connector.ErrInvalidKey)

	err = c.Delete(ctx, "/a/b/c")
	assert.ErrorIs(t, err, connector.ErrInvalidKey)

	assert.Empty(t, exec.reads)
	assert.Empty(t, exec.writes)
}

func TestOperations_DeepKeyRejected(t *testing.T) {
	exec := &fakeExecutor{}
	c := newConnector(t, exec)

	_, err := c.Get(context.Background(), "users/a/friends")
	assert.ErrorIs(t, err, cypher.ErrKeyDepth)
	assert.Empty(t, exec.reads)
}

func TestSet_WritesTransformedValue(t *testing.T) {
	exec := &fakeExecutor{}
	c := newConnector(t, exec)

	value := map[string]any{
		"_v": 2,
		"_d": map[string]any{
			"firstname": "Wolfram",
			"_rels": map[string]any{
				"FRIENDS": map[string]any{"_v": 1, "_count": 2},
			},
		},
	}
	require.NoError(t, c.Set(context.Background(), "users/wolfram", value))

	require.Len(t, exec.writes, 1)
	w := exec.writes[0]
	assert.Contains(t, w.query, "MERGE (a:`__DS` {id: $id})-[:`__ds`]->(n:`USERS`)")
	assert.Equal(t, "wolfram", w.params["id"])
	assert.Equal(t, map[string]any{"_v": 2}, w.params["meta"])
	assert.Equal(t, map[string]any{"firstname": "Wolfram"}, w.params["props"])
	assert.Equal(t, map[string]any{"_v": 1, "_count": 2}, w.params["rel0"])
}

func TestSet_MalformedValue(t *testing.T) {
	exec := &fakeExecutor{}
	c := newConnector(t, exec)

	err := c.Set(context.Background(), "users/a", map[string]any{"_v": 1})
	require.Error(t, err)
	assert.Empty(t, exec.writes)
}

func TestGet_NotFound(t *testing.T) {
	exec := &fakeExecutor{readRows: nil}
	c := newConnector(t, exec)

	value, err := c.Get(context.Background(), "users/nobody")
	require.NoError(t, err)
	assert.Nil(t, value)
	require.Len(t, exec.reads, 1)
}

func TestGet_DecodesRow(t *testing.T) {
	exec := &fakeExecutor{
		readRows: []graph.Record{{
			"meta":     map[string]any{"id": "wolfram", "_v": 2},
			"props":    map[string]any{"firstname": "Wolfram"},
			"relTypes": []any{"FRIENDS"},
			"relNodes": []any{map[string]any{"_v": 1, "_count": 2}},
		}},
	}
	c := newConnector(t, exec)

	value, err := c.Get(context.Background(), "users/wolfram")
	require.NoError(t, err)

	want := map[string]any{
		"_v": 2,
		"_d": map[string]any{
			"firstname": "Wolfram",
			"_rels": map[string]any{
				"FRIENDS": map[string]any{"_v": 1, "_count": 2},
			},
		},
	}
	assert.Equal(t, want, value)
}

func TestGet_DecodesListRow(t *testing.T) {
	exec := &fakeExecutor{
		readRows: []graph.Record{{
			"meta":     map[string]any{"id": "l1", "_v": 3},
			"props":    map[string]any{"__dsList": []any{"a", "b"}},
			"relTypes": []any{},
			"relNodes": []any{},
		}},
	}
	c := newConnector(t, exec)

	value, err := c.Get(context.Background(), "lists/l1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"_v": 3, "_d": []any{"a", "b"}}, value)
}

func TestGet_EmptyRowIsNotFound(t *testing.T) {
	exec := &fakeExecutor{
		readRows: []graph.Record{{
			"meta":     map[string]any{"id": "ghost"},
			"props":    map[string]any{},
			"relTypes": []any{},
			"relNodes": []any{},
		}},
	}
	c := newConnector(t, exec)

	value, err := c.Get(context.Background(), "users/ghost")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestOperations_EngineErrorsPassThrough(t *testing.T) {
	backend := errors.New("neo.ClientError.Statement.SyntaxError")
	exec := &fakeExecutor{readErr: backend, writeErr: backend}
	c := newConnector(t, exec)
	ctx := context.Background()

	err := c.Set(ctx, "users/a", map[string]any{"_v": 1, "_d": map[string]any{}})
	assert.ErrorIs(t, err, backend)

	_, err = c.Get(ctx, "users/a")
	assert.ErrorIs(t, err, backend)

	err = c.Delete(ctx, "users/a")
	assert.ErrorIs(t, err, backend)
}

func TestDelete_IssuesDetachDelete(t *testing.T) {
	exec := &fakeExecutor{}
	c := newConnector(t, exec)

	require.NoError(t, c.Delete(context.Background(), "users/wolfram"))
	require.Len(t, exec.writes, 1)
	assert.Contains(t, exec.writes[0].query, "DETACH DELETE a, n, s")
}

func TestOpen_EmitsReadyOnce(t *testing.T) {
	exec := &fakeExecutor{}
	c := newConnector(t, exec)

	var readyCount, errorCount int
	c.On(connector.EventReady, func(any) { readyCount++ })
	c.On(connector.EventError, func(any) { errorCount++ })

	require.NoError(t, c.Open(context.Background()))
	require.NoError(t, c.Open(context.Background()))

	assert.Equal(t, 1, readyCount)
	assert.Equal(t, 0, errorCount)
}

func TestOpen_EmitsErrorOnProbeFailure(t *testing.T) {
	probeErr := errors.New("connection refused")
	exec := &fakeExecutor{verifyErr: probeErr}
	c := newConnector(t, exec)

	var got []any
	c.On(connector.EventError, func(payload any) { got = append(got, payload) })

	err := c.Open(context.Background())
	assert.ErrorIs(t, err, probeErr)

	// Fires at most once even if the probe keeps failing.
	_ = c.Open(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, probeErr, got[0])
}

func TestClose_ReleasesExecutor(t *testing.T) {
	exec := &fakeExecutor{}
	c := newConnector(t, exec)

	require.NoError(t, c.Close(context.Background()))
	assert.True(t, exec.closed)
}
