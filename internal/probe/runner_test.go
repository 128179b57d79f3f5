package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/mindsprobe/internal/mindsdb"
)

// ---- test helpers ----

type seen struct {
	Method string
	Path   string
	Query  string
}

// fakeRemote answers queries from a statement->body table and records what it got.
type fakeRemote struct {
	mu       sync.Mutex
	got      []seen
	replies  map[string]string
	status   string
	fallback string
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var q struct {
		Query string `json:"query"`
	}
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&q)
	}
	f.mu.Lock()
	f.got = append(f.got, seen{Method: r.Method, Path: r.URL.Path, Query: q.Query})
	f.mu.Unlock()

	if r.URL.Path == "/api/status" {
		w.Write([]byte(f.status))
		return
	}
	if body, ok := f.replies[q.Query]; ok {
		if body == "<html>" {
			http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
			return
		}
		w.Write([]byte(body))
		return
	}
	w.Write([]byte(f.fallback))
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		replies: map[string]string{
			"SHOW DATABASES;": `{"data": [["information_schema"],["mindsdb"]]}`,
		},
		status:   `{"mindsdb_version":"24.1.0","environment":"local","auth":{"confirmed":true}}`,
		fallback: `{"type":"ok"}`,
	}
}

func runAgainst(t *testing.T, h http.Handler) (Report, error, *observer.ObservedLogs) {
	t.Helper()
	return runSuite(t, h, CryptoSuite("coinbase_db"), NextSteps)
}

func runSuite(t *testing.T, h http.Handler, steps []Step, next []string) (Report, error, *observer.ObservedLogs) {
	t.Helper()
	s := httptest.NewServer(h)
	t.Cleanup(s.Close)

	core, logs := observer.New(zap.DebugLevel)
	r := NewRunner(zap.New(core), mindsdb.NewClient(s.URL, "", 2*time.Second), steps...)
	r.NextSteps = next
	rep, err := r.Run(context.Background())
	return rep, err, logs
}

// ---- tests ----

func TestRunner_SendsEightRequestsInOrder(t *testing.T) {
	f := newFakeRemote()
	rep, err, _ := runAgainst(t, f)
	require.NoError(t, err)
	require.True(t, rep.OK())
	require.Len(t, rep.Results, 8)

	want := []seen{
		{"POST", "/api/sql/query", "SHOW DATABASES;"},
		{"POST", "/api/sql/query", "SHOW TABLES FROM coinbase_db;"},
		{"POST", "/api/sql/query", "CREATE MODEL mindsdb.crypto_price_predictor PREDICT price_change USING engine = 'lightwood', tag = 'crypto_test';"},
		{"POST", "/api/sql/query", "SHOW ML_ENGINES;"},
		{"POST", "/api/sql/query", "CREATE TABLE mindsdb.crypto_test_data (timestamp TIMESTAMP, symbol VARCHAR(10), price DECIMAL(10,2), volume DECIMAL(15,2), price_change DECIMAL(5,2));"},
		{"POST", "/api/sql/query", "INSERT INTO mindsdb.crypto_test_data (timestamp, symbol, price, volume, price_change) VALUES " +
			"('2024-01-01 00:00:00', 'BTC', 45000.00, 1000000.00, 2.5), " +
			"('2024-01-01 01:00:00', 'BTC', 45500.00, 1100000.00, 1.1), " +
			"('2024-01-01 02:00:00', 'BTC', 46000.00, 1200000.00, 1.1), " +
			"('2024-01-01 03:00:00', 'ETH', 3000.00, 500000.00, 3.2), " +
			"('2024-01-01 04:00:00', 'ETH', 3100.00, 550000.00, 3.3);"},
		{"POST", "/api/sql/query", "SELECT * FROM mindsdb.crypto_test_data LIMIT 5;"},
		{"GET", "/api/status", ""},
	}
	require.Equal(t, want, f.got)
}

func TestRunner_LogsFlattenedDatabases(t *testing.T) {
	_, err, logs := runAgainst(t, newFakeRemote())
	require.NoError(t, err)

	entries := logs.FilterMessage("databases").All()
	require.Len(t, entries, 1)
	require.Equal(t, []interface{}{"information_schema", "mindsdb"}, entries[0].ContextMap()["names"])
}

func TestRunner_DatabaseCellsKeepJSONTypes(t *testing.T) {
	f := newFakeRemote()
	f.replies["SHOW DATABASES;"] = `{"data":[["mindsdb",null],[1]]}`
	_, err, logs := runAgainst(t, f)
	require.NoError(t, err)

	names := logs.FilterMessage("databases").All()[0].ContextMap()["names"]
	require.Equal(t, []interface{}{"mindsdb", nil, float64(1)}, names)
}

func TestRunner_EnginesFallbackWithoutData(t *testing.T) {
	_, err, logs := runAgainst(t, newFakeRemote())
	require.NoError(t, err)

	entries := logs.FilterMessage("ml_engines").All()
	require.Len(t, entries, 1)
	require.Equal(t, "None", entries[0].ContextMap()["engines"])
}

func TestRunner_EnginesFirstColumn(t *testing.T) {
	f := newFakeRemote()
	f.replies["SHOW ML_ENGINES;"] = `{"data":[["lightwood","ok"],["openai","ok"]]}`
	_, err, logs := runAgainst(t, f)
	require.NoError(t, err)

	e := logs.FilterMessage("ml_engines").All()[0]
	require.Equal(t, []interface{}{"lightwood", "openai"}, e.ContextMap()["engines"])
}

func TestRunner_StatusFields(t *testing.T) {
	_, err, logs := runAgainst(t, newFakeRemote())
	require.NoError(t, err)

	entries := logs.FilterMessage("system_status").All()
	require.Len(t, entries, 1)
	m := entries[0].ContextMap()
	require.Equal(t, "24.1.0", m["mindsdb_version"])
	require.Equal(t, "local", m["environment"])
	require.Equal(t, `{"confirmed":true}`, m["auth"])
}

func TestRunner_TypeOrErrorAndSample(t *testing.T) {
	f := newFakeRemote()
	f.replies["CREATE TABLE mindsdb.crypto_test_data (timestamp TIMESTAMP, symbol VARCHAR(10), price DECIMAL(10,2), volume DECIMAL(15,2), price_change DECIMAL(5,2));"] =
		`{"error":"Table 'crypto_test_data' already exists"}`
	f.replies["SELECT * FROM mindsdb.crypto_test_data LIMIT 5;"] = `{"type":"table","data":[[1,"BTC"]]}`
	rep, err, logs := runAgainst(t, f)
	require.NoError(t, err)

	require.Equal(t, "Table 'crypto_test_data' already exists", logs.FilterMessage("table_creation").All()[0].ContextMap()["result"])
	require.Equal(t, "ok", logs.FilterMessage("data_insertion").All()[0].ContextMap()["result"])
	require.Equal(t, `[[1,"BTC"]]`, logs.FilterMessage("sample_data").All()[0].ContextMap()["data"])

	require.False(t, rep.Results[4].Success)
	require.Equal(t, "Table 'crypto_test_data' already exists", rep.Results[4].Message)
}

func TestRunner_CompletionBanner(t *testing.T) {
	_, err, logs := runAgainst(t, newFakeRemote())
	require.NoError(t, err)

	require.Equal(t, 1, logs.FilterMessage("probe_done").Len())
	next := logs.FilterMessage("next_step").All()
	require.Len(t, next, 4)
	require.Equal(t, "Add real API keys to .env file", next[0].ContextMap()["action"])
	require.Zero(t, logs.FilterLevelExact(zap.ErrorLevel).Len())
}

func TestRunner_AbortsOnNonJSONReply(t *testing.T) {
	f := newFakeRemote()
	f.replies["CREATE MODEL mindsdb.crypto_price_predictor PREDICT price_change USING engine = 'lightwood', tag = 'crypto_test';"] = "<html>"
	rep, err, logs := runAgainst(t, f)

	require.Error(t, err)
	require.ErrorIs(t, err, mindsdb.ErrRequestFailed)
	var se *StepError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "create_model", se.Step)

	require.Len(t, f.got, 3, "no request after the failing step")
	require.Len(t, rep.Results, 2)
	require.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
	require.Zero(t, logs.FilterMessage("probe_done").Len())
	require.Zero(t, logs.FilterMessage("next_step").Len())
}

func TestRunner_AbortsWhenDatabasesHasNoData(t *testing.T) {
	f := newFakeRemote()
	f.replies["SHOW DATABASES;"] = `{"type":"error","error":"not allowed"}`
	_, err, logs := runAgainst(t, f)

	require.ErrorIs(t, err, ErrNoData)
	require.Len(t, f.got, 1)
	require.Equal(t, 1, logs.FilterMessage("probe_failed").Len())
}

func TestRunner_ConnectionRefused(t *testing.T) {
	s := httptest.NewServer(http.NotFoundHandler())
	url := s.URL
	s.Close()

	core, logs := observer.New(zap.InfoLevel)
	r := NewRunner(zap.New(core), mindsdb.NewClient(url, "", time.Second), CryptoSuite("coinbase_db")...)
	rep, err := r.Run(context.Background())

	require.ErrorIs(t, err, mindsdb.ErrRequestFailed)
	require.Empty(t, rep.Results)
	require.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
	require.Equal(t, 1, logs.FilterMessage("probe_step").Len())
}

func TestReport_Summary(t *testing.T) {
	rep := Report{Total: 8, Results: []CheckResult{{Name: "databases", Success: true, StatusCode: 200}}}
	title, text := rep.Summary()
	require.Contains(t, title, "completed 1/8")
	require.Contains(t, text, "databases: HTTP 200")

	rep.Err = &StepError{Step: "tables", Err: mindsdb.ErrRequestFailed}
	title, text = rep.Summary()
	require.Contains(t, title, "aborted after 1/8")
	require.Contains(t, text, "step tables: request failed")
}
