package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/mindsprobe/internal/domain"
)

var (
	// ErrNotReady means /api/status answered with something other than 200.
	ErrNotReady = errors.New("mindsdb is not ready")
	// ErrRejected means a statement the rest of a suite depends on failed.
	ErrRejected = errors.New("statement rejected")
)

const AgentsDB = "agents_db"

// Agent is one registry row written by AgentSuite.
type Agent struct {
	ID           string
	Name         string
	Description  string
	FilePath     string
	ClassName    string
	Capabilities []string
}

var Agents = []Agent{
	{
		ID:          "crypto_prediction_agent",
		Name:        "CryptoPredictionAgent",
		Description: "Advanced cryptocurrency price prediction using ensemble ML models",
		FilePath:    "/opt/mindsdb/agents/crypto_prediction_agent.py",
		ClassName:   "CryptoPredictionAgent",
		Capabilities: []string{
			"price_prediction", "trend_analysis", "technical_indicators", "ensemble_modeling", "prophet_forecasting",
		},
	},
	{
		ID:          "anomaly_detection_agent",
		Name:        "AnomalyDetectionAgent",
		Description: "Detects market anomalies, manipulation patterns, and unusual activities",
		FilePath:    "/opt/mindsdb/agents/anomaly_detection_agent.py",
		ClassName:   "AnomalyDetectionAgent",
		Capabilities: []string{
			"anomaly_detection", "manipulation_detection", "flash_crash_detection", "volume_analysis", "pattern_recognition",
		},
	},
	{
		ID:          "sentiment_analysis_agent",
		Name:        "SentimentAnalysisAgent",
		Description: "Analyzes market sentiment from social media, news, and on-chain data",
		FilePath:    "/opt/mindsdb/agents/sentiment_analysis_agent.py",
		ClassName:   "SentimentAnalysisAgent",
		Capabilities: []string{
			"twitter_sentiment", "reddit_sentiment", "news_sentiment", "fear_greed_index", "social_media_monitoring",
		},
	},
	{
		ID:          "whale_tracking_agent",
		Name:        "WhaleTrackingAgent",
		Description: "Monitors large transactions and whale wallet activities",
		FilePath:    "/opt/mindsdb/agents/whale_tracking_agent.py",
		ClassName:   "WhaleTrackingAgent",
		Capabilities: []string{
			"large_transaction_tracking", "whale_wallet_monitoring", "movement_detection", "blockchain_analysis", "alert_generation",
		},
	},
	{
		ID:          "risk_assessment_agent",
		Name:        "RiskAssessmentAgent",
		Description: "Comprehensive risk analysis for cryptocurrency investments",
		FilePath:    "/opt/mindsdb/agents/risk_assessment_agent.py",
		ClassName:   "RiskAssessmentAgent",
		Capabilities: []string{
			"portfolio_risk_assessment", "var_calculation", "stress_testing", "correlation_analysis", "risk_scoring",
		},
	},
}

var AgentNextSteps = []string{
	"Active agents: SELECT * FROM agents_db.active_agents;",
	"Recent predictions: SELECT * FROM agents_db.recent_predictions;",
	"Recent alerts: SELECT * FROM agents_db.recent_alerts;",
}

// named is a statement with the name of the object it creates.
type named struct {
	name string
	sql  string
}

var agentTables = []named{
	{"agent_registry", `CREATE TABLE IF NOT EXISTS agents_db.agent_registry (
    id SERIAL PRIMARY KEY,
    agent_id VARCHAR(100) UNIQUE NOT NULL,
    name VARCHAR(200) NOT NULL,
    description TEXT,
    class_name VARCHAR(100),
    file_path VARCHAR(500),
    capabilities JSONB,
    status VARCHAR(50) DEFAULT 'inactive',
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);`},
	{"agent_predictions", `CREATE TABLE IF NOT EXISTS agents_db.agent_predictions (
    id SERIAL PRIMARY KEY,
    agent_id VARCHAR(100),
    symbol VARCHAR(20),
    prediction_type VARCHAR(100),
    prediction_data JSONB,
    confidence_score FLOAT,
    created_at TIMESTAMP DEFAULT NOW()
);`},
	{"agent_alerts", `CREATE TABLE IF NOT EXISTS agents_db.agent_alerts (
    id SERIAL PRIMARY KEY,
    agent_id VARCHAR(100),
    alert_type VARCHAR(100),
    symbol VARCHAR(20),
    severity VARCHAR(20),
    message TEXT,
    alert_data JSONB,
    created_at TIMESTAMP DEFAULT NOW()
);`},
	{"agent_performance", `CREATE TABLE IF NOT EXISTS agents_db.agent_performance (
    id SERIAL PRIMARY KEY,
    agent_id VARCHAR(100),
    metric_name VARCHAR(100),
    metric_value FLOAT,
    measurement_date DATE,
    created_at TIMESTAMP DEFAULT NOW()
);`},
}

var agentModels = []named{
	{"crypto_price_predictor", `CREATE MODEL crypto_price_predictor
FROM coinmarketcap_db
(SELECT symbol, price, volume_24h, market_cap, percent_change_24h, timestamp FROM listings)
PREDICT price
USING engine = 'lightgbm',
time_column = 'timestamp',
group_by = 'symbol',
window = 100,
horizon = 24;`},
	{"anomaly_detector", `CREATE MODEL anomaly_detector
FROM coinmarketcap_db
(SELECT symbol, price, volume_24h, percent_change_1h, percent_change_24h, timestamp FROM listings)
PREDICT is_anomaly
USING engine = 'isolation_forest',
anomaly_detection = true;`},
	{"sentiment_analyzer", `CREATE MODEL sentiment_analyzer
FROM news_db
(SELECT title, description, sentiment_score, symbol, published_at FROM articles)
PREDICT sentiment_score
USING engine = 'huggingface',
model_name = 'cardiffnlp/twitter-roberta-base-sentiment-latest';`},
}

var agentViews = []named{
	{"active_agents", `CREATE OR REPLACE VIEW agents_db.active_agents AS
SELECT agent_id, name, description, capabilities, status, updated_at
FROM agents_db.agent_registry
WHERE status = 'active';`},
	{"recent_predictions", `CREATE OR REPLACE VIEW agents_db.recent_predictions AS
SELECT
    ar.name as agent_name,
    ap.symbol,
    ap.prediction_type,
    ap.confidence_score,
    ap.created_at
FROM agents_db.agent_predictions ap
JOIN agents_db.agent_registry ar ON ap.agent_id = ar.agent_id
WHERE ap.created_at > NOW() - INTERVAL '24 hours'
ORDER BY ap.created_at DESC;`},
	{"recent_alerts", `CREATE OR REPLACE VIEW agents_db.recent_alerts AS
SELECT
    ar.name as agent_name,
    aa.alert_type,
    aa.symbol,
    aa.severity,
    aa.message,
    aa.created_at
FROM agents_db.agent_alerts aa
JOIN agents_db.agent_registry ar ON aa.agent_id = ar.agent_id
WHERE aa.created_at > NOW() - INTERVAL '24 hours'
ORDER BY aa.created_at DESC;`},
}

var agentJobs = []named{
	{"hourly_predictions", `CREATE JOB hourly_predictions (
    INSERT INTO agents_db.agent_predictions (agent_id, symbol, prediction_type, prediction_data, confidence_score)
    SELECT
        'crypto_prediction_agent',
        symbol,
        'price_prediction',
        JSON_BUILD_OBJECT('predicted_price', predicted_price, 'horizon', '1h'),
        confidence
    FROM crypto_price_predictor
    WHERE symbol IN ('BTC', 'ETH', 'ADA', 'SOL', 'DOT')
)
EVERY hour;`},
	{"daily_anomaly_check", `CREATE JOB daily_anomaly_check (
    INSERT INTO agents_db.agent_alerts (agent_id, alert_type, symbol, severity, message)
    SELECT
        'anomaly_detection_agent',
        'anomaly_detected',
        symbol,
        CASE WHEN anomaly_score > 0.8 THEN 'high' ELSE 'medium' END,
        CONCAT('Anomaly detected for ', symbol, ' with score: ', anomaly_score)
    FROM anomaly_detector
    WHERE is_anomaly = 1
)
EVERY day;`},
}

// RegisterAgentSQL upserts a into agents_db.agent_registry.
func RegisterAgentSQL(a Agent) string {
	caps, _ := json.Marshal(a.Capabilities)
	vals := []string{
		domain.Literal(a.ID),
		domain.Literal(a.Name),
		domain.Literal(a.Description),
		domain.Literal(a.ClassName),
		domain.Literal(a.FilePath),
		domain.Literal(string(caps)),
		"'active'",
	}
	return `INSERT INTO agents_db.agent_registry
(agent_id, name, description, class_name, file_path, capabilities, status)
VALUES (` + strings.Join(vals, ", ") + `)
ON CONFLICT (agent_id)
DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    class_name = EXCLUDED.class_name,
    file_path = EXCLUDED.file_path,
    capabilities = EXCLUDED.capabilities,
    status = EXCLUDED.status,
    updated_at = NOW();`
}

// AgentSuite bootstraps the agents_db integration, its tables and registry,
// then the models, views and jobs the agents read from.
//
// It checks readiness once instead of polling. A failure to create the
// database or a table ends the run; later failures are logged and skipped
// past, so a second run reports "already exists" for models and jobs.
func AgentSuite(pg domain.PGConnection) []Step {
	steps := []Step{
		{
			Name:    "ready",
			Title:   "Checking MindsDB is ready",
			Request: domain.StatusCheck(),
			Report:  reportReady,
		},
		{
			Name:  "agents_db",
			Title: "Setting up agent database",
			Request: domain.Query("CREATE DATABASE IF NOT EXISTS " + AgentsDB +
				"\nWITH ENGINE = 'postgres',\nPARAMETERS = " + pg.Parameters() + ";"),
			Report: reportRequired("agent_database", AgentsDB),
		},
	}
	for _, t := range agentTables {
		steps = append(steps, Step{
			Name:    "table_" + t.name,
			Title:   "Creating agent table " + t.name,
			Request: domain.Query(t.sql),
			Report:  reportRequired("agent_table", t.name),
		})
	}
	for _, a := range Agents {
		steps = append(steps, Step{
			Name:    "register_" + a.ID,
			Title:   "Registering " + a.Name,
			Request: domain.Query(RegisterAgentSQL(a)),
			Report:  reportCreated("agent_registered", a.ID),
		})
	}
	for _, m := range agentModels {
		steps = append(steps, Step{
			Name:    "model_" + m.name,
			Title:   "Creating model " + m.name,
			Request: domain.Query(m.sql),
			Report:  reportCreated("model_created", m.name),
		})
	}
	for _, v := range agentViews {
		steps = append(steps, Step{
			Name:    "view_" + v.name,
			Title:   "Creating view " + v.name,
			Request: domain.Query(v.sql),
			Report:  reportCreated("view_created", v.name),
		})
	}
	for _, j := range agentJobs {
		steps = append(steps, Step{
			Name:    "job_" + j.name,
			Title:   "Setting up job " + j.name,
			Request: domain.Query(j.sql),
			Report:  reportCreated("job_created", j.name),
		})
	}
	return steps
}

func reportReady(log *zap.Logger, res domain.Response) error {
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrNotReady, res.StatusCode)
	}
	log.Info("mindsdb_ready", zap.String("mindsdb_version", domain.StatusFrom(res).Version))
	return nil
}

// reportRequired fails the run when the reply carries an error.
func reportRequired(key, object string) Reporter {
	return func(log *zap.Logger, res domain.Response) error {
		if f, isFailure := res.Outcome().(domain.Failure); isFailure {
			return fmt.Errorf("%w: %s %s: %s", ErrRejected, key, object, f.Message)
		}
		log.Info(key, zap.String("name", object), zap.String("result", res.TypeOrError()))
		return nil
	}
}

// reportCreated logs the outcome and never fails the run.
func reportCreated(key, object string) Reporter {
	return func(log *zap.Logger, res domain.Response) error {
		if f, isFailure := res.Outcome().(domain.Failure); isFailure {
			log.Warn(key, zap.String("name", object), zap.String("error", f.Message))
			return nil
		}
		log.Info(key, zap.String("name", object), zap.String("result", res.TypeOrError()))
		return nil
	}
}
