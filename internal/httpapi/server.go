// Package httpapi serves an in-memory stand-in for the MindsDB HTTP API so the
// probe can be exercised without a real server.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/mindsprobe/internal/domain"
	apimw "github.com/hamed0406/mindsprobe/internal/httpapi/middleware"
	"github.com/hamed0406/mindsprobe/internal/repo"
)

const Version = "24.1.0"

type Server struct {
	Logger      *zap.Logger
	Exec        *Executor
	Token       string
	Environment string
}

func NewServer(l *zap.Logger, c repo.Catalog, token string) *Server {
	return &Server{Logger: l, Exec: NewExecutor(c), Token: token, Environment: "local"}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// status stays public so clients can discover whether auth is on
	r.Get(domain.StatusPath, s.handleStatus)

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireToken(s.Token))
		r.Post(domain.QueryPath, s.handleQuery)
	})

	return r
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var p domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, Reply{Type: TypeError, Error: "bad payload: " + err.Error()})
		return
	}

	reply := s.Exec.Exec(r.Context(), p.Query)
	if reply.Type == TypeError {
		s.Logger.Info("mock_query_error", zap.String("query", p.Query), zap.String("error", reply.Error))
	} else {
		s.Logger.Debug("mock_query",
			zap.String("query", p.Query),
			zap.String("type", reply.Type),
			zap.Int("rows", len(reply.Data)),
		)
	}
	writeJSON(w, http.StatusOK, reply)
}

type authStatus struct {
	Confirmed       bool   `json:"confirmed"`
	HTTPAuthEnabled bool   `json:"http_auth_enabled"`
	Provider        string `json:"provider"`
}

type statusPayload struct {
	Version     string     `json:"mindsdb_version"`
	Environment string     `json:"environment"`
	Auth        authStatus `json:"auth"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	provider := "disabled"
	if s.Token != "" {
		provider = "token"
	}
	writeJSON(w, http.StatusOK, statusPayload{
		Version:     Version,
		Environment: s.Environment,
		Auth: authStatus{
			Confirmed:       true,
			HTTPAuthEnabled: s.Token != "",
			Provider:        provider,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
