package httpapi

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hamed0406/mindsprobe/internal/repo/memory"
)

const createTable = "CREATE TABLE mindsdb.crypto_test_data (timestamp TIMESTAMP, symbol VARCHAR(10), price DECIMAL(10,2), volume DECIMAL(15,2), price_change DECIMAL(5,2));"

func newExec() *Executor {
	c := memory.New()
	c.AddDatabase("coinbase_db", "ticker", "trades")
	return NewExecutor(c)
}

func TestExec_ShowDatabases(t *testing.T) {
	r := newExec().Exec(context.Background(), "SHOW DATABASES;")
	require.Equal(t, TypeTable, r.Type)
	require.Equal(t, []string{"Database"}, r.Columns)
	require.Equal(t, [][]any{{"coinbase_db"}, {"files"}, {"information_schema"}, {"mindsdb"}}, r.Data)
}

func TestExec_ShowTablesFrom(t *testing.T) {
	x := newExec()
	r := x.Exec(context.Background(), "SHOW TABLES FROM coinbase_db;")
	require.Equal(t, TypeTable, r.Type)
	require.Equal(t, [][]any{{"ticker"}, {"trades"}}, r.Data)

	r = x.Exec(context.Background(), "SHOW TABLES FROM kraken_db;")
	require.Equal(t, TypeError, r.Type)
	require.Contains(t, r.Error, "not found")
}

func TestExec_CreateModelTwice(t *testing.T) {
	x := newExec()
	q := "CREATE MODEL mindsdb.crypto_price_predictor PREDICT price_change USING engine = 'lightwood', tag = 'crypto_test';"

	r := x.Exec(context.Background(), q)
	require.Equal(t, TypeTable, r.Type, r.Error)
	require.Equal(t, []any{"crypto_price_predictor", "lightwood", "mindsdb", "generating", "price_change", "crypto_test"}, r.Data[0])

	r = x.Exec(context.Background(), q)
	require.Equal(t, TypeError, r.Type)
	require.Contains(t, r.Error, "already exists")

	r = x.Exec(context.Background(), "DROP MODEL mindsdb.crypto_price_predictor;")
	require.Equal(t, TypeOK, r.Type, r.Error)
}

func TestExec_CreateModelUnknownEngine(t *testing.T) {
	r := newExec().Exec(context.Background(), "CREATE MODEL m PREDICT y USING engine = 'nosuch';")
	require.Equal(t, TypeError, r.Type)
}

func TestExec_ShowMLEngines(t *testing.T) {
	r := newExec().Exec(context.Background(), "show ml_engines;")
	require.Equal(t, TypeTable, r.Type)
	require.Equal(t, "lightwood", r.Data[0][0])
}

func TestExec_TableLifecycle(t *testing.T) {
	ctx := context.Background()
	x := newExec()

	r := x.Exec(ctx, createTable)
	require.Equal(t, TypeOK, r.Type, r.Error)

	r = x.Exec(ctx, createTable)
	require.Equal(t, TypeError, r.Type)
	require.Contains(t, r.Error, "already exists")

	r = x.Exec(ctx, "INSERT INTO mindsdb.crypto_test_data (timestamp, symbol, price, volume, price_change) VALUES "+
		"('2024-01-01 00:00:00', 'BTC', 45000.00, 1000000.00, 2.5), ('2024-01-01 03:00:00', 'ETH', 3000.00, 500000.00, -3.2);")
	require.Equal(t, TypeOK, r.Type, r.Error)

	r = x.Exec(ctx, "SELECT * FROM mindsdb.crypto_test_data LIMIT 1;")
	require.Equal(t, TypeTable, r.Type, r.Error)
	require.Equal(t, []string{"timestamp", "symbol", "price", "volume", "price_change"}, r.Columns)
	require.Len(t, r.Data, 1)
	require.Equal(t, []any{"2024-01-01 00:00:00", "BTC", 45000.0, 1000000.0, 2.5}, r.Data[0])

	r = x.Exec(ctx, "SELECT * FROM crypto_test_data;")
	require.Len(t, r.Data, 2)
	require.Equal(t, -3.2, r.Data[1][4])

	r = x.Exec(ctx, "DROP TABLE mindsdb.crypto_test_data;")
	require.Equal(t, TypeOK, r.Type, r.Error)
	r = x.Exec(ctx, "SELECT * FROM mindsdb.crypto_test_data LIMIT 5;")
	require.Equal(t, TypeError, r.Type)
}

func TestExec_Rejects(t *testing.T) {
	x := newExec()
	for _, q := range []string{
		"",
		"SELEC 1;",
		"SELECT 1; SELECT 2;",
		"SELECT symbol FROM mindsdb.models;",
		"UPDATE t SET a = 1;",
	} {
		r := x.Exec(context.Background(), q)
		require.Equal(t, TypeError, r.Type, "query %q", q)
		require.NotEmpty(t, r.Error, "query %q", q)
	}
}

func TestExec_CreateDatabaseWithParameters(t *testing.T) {
	ctx := context.Background()
	x := newExec()
	q := `CREATE DATABASE IF NOT EXISTS agents_db
WITH ENGINE = 'postgres',
PARAMETERS = {'host': 'postgres', 'port': 5432, 'database': 'mindsdb', 'user': 'mindsdb', 'password': 'pw'};`

	require.Equal(t, TypeOK, x.Exec(ctx, q).Type)
	require.Equal(t, TypeOK, x.Exec(ctx, q).Type, "IF NOT EXISTS")

	r := x.Exec(ctx, "CREATE DATABASE agents_db;")
	require.Equal(t, TypeError, r.Type)
	require.Contains(t, r.Error, "already exists")
}

func TestExec_PostgresTableAndUpsert(t *testing.T) {
	ctx := context.Background()
	x := newExec()
	require.Equal(t, TypeOK, x.Exec(ctx, "CREATE DATABASE agents_db;").Type)

	create := `CREATE TABLE IF NOT EXISTS agents_db.agent_registry (
    id SERIAL PRIMARY KEY,
    agent_id VARCHAR(100) UNIQUE NOT NULL,
    name VARCHAR(200) NOT NULL,
    capabilities JSONB,
    status VARCHAR(50) DEFAULT 'inactive, for now',
    created_at TIMESTAMP DEFAULT NOW()
);`
	r := x.Exec(ctx, create)
	require.Equal(t, TypeOK, r.Type, r.Error)
	require.Equal(t, TypeOK, x.Exec(ctx, create).Type, "IF NOT EXISTS")

	upsert := func(name string) Reply {
		return x.Exec(ctx, `INSERT INTO agents_db.agent_registry
(agent_id, name, capabilities, status)
VALUES ('whale_tracking_agent', '`+name+`', '["movement_detection","alert_generation"]', 'active')
ON CONFLICT (agent_id)
DO UPDATE SET name = EXCLUDED.name, updated_at = NOW();`)
	}
	r = upsert("WhaleTrackingAgent")
	require.Equal(t, TypeOK, r.Type, r.Error)
	r = upsert("WhaleTracker")
	require.Equal(t, TypeOK, r.Type, r.Error)

	r = x.Exec(ctx, "SELECT * FROM agents_db.agent_registry;")
	require.Equal(t, TypeTable, r.Type, r.Error)
	require.Equal(t, []string{"id", "agent_id", "name", "capabilities", "status", "created_at"}, r.Columns)
	require.Len(t, r.Data, 1)
	require.Equal(t, "WhaleTracker", r.Data[0][2])
	require.Equal(t, `["movement_detection","alert_generation"]`, r.Data[0][3])
}

func TestExec_ViewsAndJobs(t *testing.T) {
	ctx := context.Background()
	x := newExec()
	require.Equal(t, TypeOK, x.Exec(ctx, "CREATE DATABASE agents_db;").Type)

	view := `CREATE OR REPLACE VIEW agents_db.recent_alerts AS
SELECT ar.name as agent_name, aa.symbol
FROM agents_db.agent_alerts aa
JOIN agents_db.agent_registry ar ON aa.agent_id = ar.agent_id
WHERE aa.created_at > NOW() - INTERVAL '24 hours';`
	r := x.Exec(ctx, view)
	require.Equal(t, TypeOK, r.Type, r.Error)
	require.Equal(t, TypeOK, x.Exec(ctx, view).Type, "OR REPLACE")

	r = x.Exec(ctx, "CREATE VIEW agents_db.recent_alerts AS SELECT 1;")
	require.Equal(t, TypeError, r.Type)

	r = x.Exec(ctx, "SHOW TABLES FROM agents_db;")
	require.Equal(t, [][]any{{"recent_alerts"}}, r.Data)

	job := `CREATE JOB hourly_predictions (
    INSERT INTO agents_db.agent_predictions (agent_id, symbol)
    SELECT 'crypto_prediction_agent', symbol FROM crypto_price_predictor
    WHERE symbol IN ('BTC', 'ETH')
)
EVERY hour;`
	r = x.Exec(ctx, job)
	require.Equal(t, TypeOK, r.Type, r.Error)
	r = x.Exec(ctx, job)
	require.Equal(t, TypeError, r.Type)
	require.Contains(t, r.Error, "job 'hourly_predictions' already exists")
}

func TestSplitTopLevel(t *testing.T) {
	got := splitTopLevel("a DECIMAL(10,2), b VARCHAR(5) DEFAULT 'x,y', c")
	require.Equal(t, []string{"a DECIMAL(10,2)", " b VARCHAR(5) DEFAULT 'x,y'", " c"}, got)
}

func TestReply_JSONShape(t *testing.T) {
	b, err := json.Marshal(rows([]string{"Database"}, nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"table","column_names":["Database"],"data":[]}`, string(b))

	b, _ = json.Marshal(ok())
	require.JSONEq(t, `{"type":"ok"}`, string(b))

	b, _ = json.Marshal(Reply{Type: TypeError, Error: "boom"})
	require.True(t, strings.Contains(string(b), `"error":"boom"`))
	require.NotContains(t, string(b), "data")
}
