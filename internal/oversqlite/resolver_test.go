package oversqlite

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerWinsResolver(t *testing.T) {
	r := ServerWinsResolver{}
	result, err := r.Merge("users", "u1", json.RawMessage(`{"name":"server"}`), json.RawMessage(`{"name":"local"}`))
	require.NoError(t, err)
	assert.Equal(t, AcceptServer, result.Outcome)
}

func TestClientWinsResolver(t *testing.T) {
	r := ClientWinsResolver{}
	local := json.RawMessage(`{"name":"local"}`)
	result, err := r.Merge("users", "u1", json.RawMessage(`{"name":"server"}`), local)
	require.NoError(t, err)
	assert.Equal(t, KeepLocal, result.Outcome)
	assert.JSONEq(t, string(local), string(result.Payload))
}

func TestFieldMergeResolver_NonOverlappingKeysMerge(t *testing.T) {
	r := FieldMergeResolver{}
	server := json.RawMessage(`{"name":"Alice","email":"alice@example.com"}`)
	local := json.RawMessage(`{"name":"Alice","phone":"555-1234"}`)

	result, err := r.Merge("users", "u1", server, local)
	require.NoError(t, err)
	assert.Equal(t, KeepLocal, result.Outcome)

	var merged map[string]string
	require.NoError(t, json.Unmarshal(result.Payload, &merged))
	assert.Equal(t, "Alice", merged["name"])
	assert.Equal(t, "alice@example.com", merged["email"])
	assert.Equal(t, "555-1234", merged["phone"])
}

func TestFieldMergeResolver_ConflictingKeyFallsBackToServer(t *testing.T) {
	r := FieldMergeResolver{}
	server := json.RawMessage(`{"name":"Alice2"}`)
	local := json.RawMessage(`{"name":"Alice Local"}`)

	result, err := r.Merge("users", "u1", server, local)
	require.NoError(t, err)
	assert.Equal(t, AcceptServer, result.Outcome)
}

func TestFieldMergeResolver_EmptyServerRowKeepsLocal(t *testing.T) {
	r := FieldMergeResolver{}
	result, err := r.Merge("users", "u1", nil, json.RawMessage(`{"name":"Alice"}`))
	require.NoError(t, err)
	assert.Equal(t, KeepLocal, result.Outcome)
}
