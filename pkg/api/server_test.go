package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/nexas/pkg/batch"
	"github.com/ssargent/nexas/pkg/config"
	"github.com/ssargent/nexas/pkg/convert"
	"github.com/ssargent/nexas/pkg/metrics"
	"github.com/ssargent/nexas/pkg/script"
	"github.com/ssargent/nexas/pkg/storage"
	"github.com/ssargent/nexas/pkg/table"
)

// setupTestServer creates a server backed by the real converter and a
// temporary run journal
func setupTestServer(t *testing.T, apiKey string) (*Server, *storage.Journal) {
	t.Helper()

	conv, err := convert.New(config.DefaultConfig())
	require.NoError(t, err)

	journal, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	serverConfig := ServerConfig{
		APIKey:       apiKey,
		MaxBodyBytes: 1 << 16,
	}
	return NewServer(conv, journal, serverConfig, metrics.NewMetrics()), journal
}

func doRequest(t *testing.T, h http.Handler, method, target string, body []byte, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func testScriptBytes(t *testing.T) []byte {
	t.Helper()
	data, err := script.Encode(&script.Script{
		Opcodes:         []script.IntPair{{First: 1, Second: 0}},
		ConstantStrings: []string{"hello"},
		Functions:       []*script.Function{{ID: 42}},
	})
	require.NoError(t, err)
	return data
}

func testTableBytes(t *testing.T) []byte {
	t.Helper()
	data, err := table.Encode(&table.Table{
		Types:   []table.ValueType{table.String, table.Int32},
		Records: [][]table.Value{{table.StringValue("a"), table.IntValue(table.Int32, -7)}},
	})
	require.NoError(t, err)
	return data
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, "test-key")
	h := server.Routes()

	// Health does not require a key
	w := doRequest(t, h, "GET", "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]interface{}{"status": "healthy"}, resp.Data)
}

func TestScriptEndpoints_RoundTrip(t *testing.T) {
	server, _ := setupTestServer(t, "test-key")
	h := server.Routes()
	data := testScriptBytes(t)

	w := doRequest(t, h, "POST", "/api/v1/scripts/decode", data, "test-key")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, ContentTypeJSON, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"hello"`)

	w = doRequest(t, h, "POST", "/api/v1/scripts/encode", w.Body.Bytes(), "test-key")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, ContentTypeBinary, w.Header().Get("Content-Type"))
	assert.Equal(t, data, w.Body.Bytes())
}

func TestScriptEndpoints_RequireKey(t *testing.T) {
	server, _ := setupTestServer(t, "test-key")
	h := server.Routes()

	w := doRequest(t, h, "POST", "/api/v1/scripts/decode", testScriptBytes(t), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, h, "POST", "/api/v1/scripts/decode", testScriptBytes(t), "wrong-key")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScriptEndpoints_NoKeyConfigured(t *testing.T) {
	server, _ := setupTestServer(t, "")
	w := doRequest(t, server.Routes(), "POST", "/api/v1/scripts/decode", testScriptBytes(t), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDecodeScript_CodecError(t *testing.T) {
	server, _ := setupTestServer(t, "")
	h := server.Routes()

	data := testScriptBytes(t)
	data = append(data, 0xAA, 0xBB)

	w := doRequest(t, h, "POST", "/api/v1/scripts/decode", data, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "TrailingData", resp.Kind)
	require.NotNil(t, resp.Offset)
	assert.Equal(t, int64(len(data)-2), *resp.Offset)
}

func TestEncodeScript_InvalidDocument(t *testing.T) {
	server, _ := setupTestServer(t, "")
	w := doRequest(t, server.Routes(), "POST", "/api/v1/scripts/encode", []byte(`{"functions":[{}]}`), "")

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "InvalidArgument", resp.Kind)
	assert.Equal(t, "functions[0].id", resp.Field)
	assert.Nil(t, resp.Offset)
}

func TestRequestBodyLimits(t *testing.T) {
	server, _ := setupTestServer(t, "")
	h := server.Routes()

	w := doRequest(t, h, "POST", "/api/v1/scripts/decode", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Request body is empty", decodeResponse(t, w).Error)

	w = doRequest(t, h, "POST", "/api/v1/scripts/decode", make([]byte, 1<<16+1), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestTableEndpoints(t *testing.T) {
	server, _ := setupTestServer(t, "")
	h := server.Routes()
	data := testTableBytes(t)

	tests := []struct {
		name        string
		format      string
		contentType string
		want        string
	}{
		{
			name:        "default format is json",
			contentType: ContentTypeJSON,
			want:        `"records"`,
		},
		{
			name:        "csv",
			format:      "csv",
			contentType: ContentTypeCSV,
			want:        "String,Int32\na,-7\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := ""
			if tt.format != "" {
				query = "?format=" + tt.format
			}

			w := doRequest(t, h, "POST", "/api/v1/tables/decode"+query, data, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.want)

			w = doRequest(t, h, "POST", "/api/v1/tables/encode"+query, w.Body.Bytes(), "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, data, w.Body.Bytes())
		})
	}
}

func TestTableEndpoints_Errors(t *testing.T) {
	server, _ := setupTestServer(t, "")
	h := server.Routes()

	w := doRequest(t, h, "POST", "/api/v1/tables/decode?format=xml", testTableBytes(t), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, h, "POST", "/api/v1/tables/decode", []byte{1, 0, 0, 0, 2, 0, 0, 0, 1}, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "UnexpectedEndOfInput", decodeResponse(t, w).Kind)

	w = doRequest(t, h, "POST", "/api/v1/tables/encode?format=csv", []byte("Int8\n300\n"), "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "records[0][0]", decodeResponse(t, w).Field)
}

func TestRunEndpoints(t *testing.T) {
	server, journal := setupTestServer(t, "test-key")
	h := server.Routes()

	report := &batch.Report{
		Operation: convert.OpExtract,
		Started:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Results: []batch.Result{
			{Source: "a.bin", Target: "a.json"},
			{Source: "b.bin", Error: "TrailingData at offset 9"},
		},
	}
	require.NoError(t, journal.Record(context.Background(), report))

	w := doRequest(t, h, "GET", "/api/v1/runs", nil, "test-key")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var listed struct {
		Success bool         `json:"success"`
		Data    []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, RunSummary{
		ID:        report.ID,
		Operation: convert.OpExtract,
		Started:   "2025-03-01T12:00:00Z",
		Duration:  "1.5s",
		Succeeded: 1,
		Failed:    1,
	}, listed.Data[0])

	w = doRequest(t, h, "GET", "/api/v1/runs/"+report.ID, nil, "test-key")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "TrailingData at offset 9")

	w = doRequest(t, h, "GET", "/api/v1/runs?limit=abc", nil, "test-key")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, h, "GET", "/api/v1/runs/2nSb6qBrWdmNBzcUBWpWuGtgWbm", nil, "test-key")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, h, "GET", "/api/v1/runs/not-a-ksuid", nil, "test-key")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunEndpoints_NoJournal(t *testing.T) {
	conv, err := convert.New(config.DefaultConfig())
	require.NoError(t, err)
	server := NewServer(conv, nil, ServerConfig{MaxBodyBytes: 1024}, metrics.NewMetrics())

	w := doRequest(t, server.Routes(), "GET", "/api/v1/runs", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsAndSwaggerEndpoints(t *testing.T) {
	server, _ := setupTestServer(t, "test-key")
	h := server.Routes()

	doRequest(t, h, "GET", "/api/v1/health", nil, "")

	w := doRequest(t, h, "GET", "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nexas_health_checks_total")
	assert.Contains(t, w.Body.String(), "nexas_http_requests_total")

	w = doRequest(t, h, "GET", "/swagger/doc.json", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc["swagger"])
	assert.Contains(t, doc["paths"], "/scripts/decode")

	w = doRequest(t, h, "GET", "/swagger/index.html", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/swagger/doc.json")

	w = doRequest(t, h, "GET", "/swagger/other", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	server, _ := setupTestServer(t, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, server)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "healthy"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerFactory(t *testing.T) {
	factory := NewServerFactory()
	starter := factory.CreateServerStarter()
	assert.IsType(t, &DefaultServerStarter{}, starter)

	conv, err := convert.New(config.DefaultConfig())
	require.NoError(t, err)

	// An unusable address fails before serving
	err = starter.StartServer(context.Background(), conv, nil, ServerConfig{Addr: "127.0.0.1:-1"}, metrics.NewMetrics())
	assert.Error(t, err)
}
