package probe

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/hamed0406/mindsprobe/internal/domain"
)

// ErrNoData is returned by reporters that need a "data" field to print.
var ErrNoData = errors.New("response has no data field")

const (
	TestTable = "mindsdb.crypto_test_data"
	TestModel = "mindsdb.crypto_price_predictor"
)

// SampleRows are inserted by the "insert" step.
var SampleRows = []string{
	"('2024-01-01 00:00:00', 'BTC', 45000.00, 1000000.00, 2.5)",
	"('2024-01-01 01:00:00', 'BTC', 45500.00, 1100000.00, 1.1)",
	"('2024-01-01 02:00:00', 'BTC', 46000.00, 1200000.00, 1.1)",
	"('2024-01-01 03:00:00', 'ETH', 3000.00, 500000.00, 3.2)",
	"('2024-01-01 04:00:00', 'ETH', 3100.00, 550000.00, 3.3)",
}

var NextSteps = []string{
	"Add real API keys to .env file",
	"Create crypto prediction models",
	"Set up automated crypto data ingestion",
	"Build dashboards in Grafana",
}

// CryptoSuite returns the eight smoke checks in the order they must run.
// externalDB is the integration whose tables get listed.
func CryptoSuite(externalDB string) []Step {
	return []Step{
		{
			Name:    "databases",
			Title:   "Available databases",
			Request: domain.Query("SHOW DATABASES;"),
			Report:  reportDatabases,
		},
		{
			Name:    "tables",
			Title:   "Checking " + externalDB,
			Request: domain.Query("SHOW TABLES FROM " + externalDB + ";"),
			Report:  ReportRaw("tables"),
		},
		{
			Name:    "create_model",
			Title:   "Creating a simple model",
			Request: domain.Query("CREATE MODEL " + TestModel + " PREDICT price_change USING engine = 'lightwood', tag = 'crypto_test';"),
			Report:  ReportRaw("model_creation"),
		},
		{
			Name:    "ml_engines",
			Title:   "Available ML engines",
			Request: domain.Query("SHOW ML_ENGINES;"),
			Report:  reportEngines,
		},
		{
			Name:  "create_table",
			Title: "Creating test crypto data",
			Request: domain.Query("CREATE TABLE " + TestTable + " (" +
				"timestamp TIMESTAMP, symbol VARCHAR(10), price DECIMAL(10,2), volume DECIMAL(15,2), price_change DECIMAL(5,2));"),
			Report: reportTypeOrError("table_creation"),
		},
		{
			Name:  "insert",
			Title: "Inserting sample crypto data",
			Request: domain.Query("INSERT INTO " + TestTable +
				" (timestamp, symbol, price, volume, price_change) VALUES " + strings.Join(SampleRows, ", ") + ";"),
			Report: reportTypeOrError("data_insertion"),
		},
		{
			Name:    "select",
			Title:   "Querying test data",
			Request: domain.Query("SELECT * FROM " + TestTable + " LIMIT 5;"),
			Report:  reportSample,
		},
		StatusStep(),
	}
}

func StatusStep() Step {
	return Step{
		Name:    "status",
		Title:   "System status",
		Request: domain.StatusCheck(),
		Report:  reportStatus,
	}
}

// QueryStep wraps an ad-hoc statement.
func QueryStep(sql string) Step {
	return Step{
		Name:    "query",
		Title:   "Ad-hoc query",
		Request: domain.Query(sql),
		Report:  reportOutcome,
	}
}

// ReportRaw logs the whole reply body under key.
func ReportRaw(key string) Reporter {
	return func(log *zap.Logger, res domain.Response) error {
		log.Info(key, zap.Int("status", res.StatusCode), zap.String("response", res.Body.Raw))
		return nil
	}
}

func reportDatabases(log *zap.Logger, res domain.Response) error {
	if d := res.Body.Get("data"); !d.IsArray() {
		return ErrNoData
	}
	log.Info("databases", zap.Any("names", res.Flatten()))
	return nil
}

func reportEngines(log *zap.Logger, res domain.Response) error {
	if d := res.Body.Get("data"); !d.IsArray() {
		log.Info("ml_engines", zap.String("engines", "None"))
		return nil
	}
	log.Info("ml_engines", zap.Any("engines", res.FirstColumn()))
	return nil
}

func reportTypeOrError(key string) Reporter {
	return func(log *zap.Logger, res domain.Response) error {
		log.Info(key, zap.String("result", res.TypeOrError()))
		return nil
	}
}

func reportSample(log *zap.Logger, res domain.Response) error {
	if d := res.Body.Get("data"); d.Exists() && d.Type != gjson.Null {
		log.Info("sample_data", zap.String("data", d.Raw))
		return nil
	}
	log.Info("sample_data", zap.String("error", res.Body.Get("error").String()))
	return nil
}

func reportStatus(log *zap.Logger, res domain.Response) error {
	st := domain.StatusFrom(res)
	log.Info("system_status",
		zap.String("mindsdb_version", st.Version),
		zap.String("environment", st.Environment),
		zap.String("auth", st.Auth),
	)
	return nil
}

func reportOutcome(log *zap.Logger, res domain.Response) error {
	switch o := res.Outcome().(type) {
	case domain.Failure:
		log.Warn("query_error", zap.Int("status", res.StatusCode), zap.String("type", o.Type), zap.String("error", o.Message))
	case domain.Success:
		fields := []zap.Field{zap.Int("status", res.StatusCode), zap.String("type", o.Type)}
		if o.HasData {
			fields = append(fields, zap.Int("rows", len(o.Data)), zap.String("data", res.Body.Get("data").Raw))
		}
		log.Info("query_result", fields...)
	}
	return nil
}
