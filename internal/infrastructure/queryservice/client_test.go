package queryservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtdb/xtdocs/internal/domain/playground"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

func TestInvokeSendsBatchesAndQuery(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"x":1}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, logging.NewDiscardLogger())
	systemTime := "2024-01-01"
	resp, err := client.Invoke(context.Background(), []playground.TxBatch{
		{Statements: []string{"INSERT INTO t RECORDS {_id: 1}"}, SystemTime: &systemTime},
	}, "SELECT 1")
	require.NoError(t, err)

	assert.True(t, resp.OK)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `[{"x":1}]`, string(resp.Body))
	assert.Equal(t, map[string]any{
		"txs": []any{map[string]any{
			"txs":         []any{"INSERT INTO t RECORDS {_id: 1}"},
			"system-time": "2024-01-01",
		}},
		"query": "SELECT 1",
	}, got)
}

func TestInvokeNilBatchesEncodeAsEmptyList(t *testing.T) {
	var raw json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Txs json.RawMessage `json:"txs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw = body.Txs
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, logging.NewDiscardLogger())
	_, err := client.Invoke(context.Background(), nil, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestInvokeApplicationFailureIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"exception":"E1","message":"bad query"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, logging.NewDiscardLogger())
	resp, err := client.Invoke(context.Background(), nil, "SELEKT")
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	result := playground.RunResult{OK: resp.OK, Body: resp.Body}
	assert.Equal(t, "E1", result.ErrorBody().Exception)
}

func TestInvokeTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, time.Second, logging.NewDiscardLogger())
	_, err := client.Invoke(context.Background(), nil, "SELECT 1")
	require.Error(t, err)
}
