package domain

import (
	"net/http"

	"github.com/tidwall/gjson"
)

const (
	QueryPath  = "/api/sql/query"
	StatusPath = "/api/status"
)

// QueryRequest is the body of POST /api/sql/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// Request describes one round trip: GET requests carry no body, POST
// requests send Query wrapped in a QueryRequest.
type Request struct {
	Method string
	Path   string
	Query  string
}

func Query(sql string) Request {
	return Request{Method: http.MethodPost, Path: QueryPath, Query: sql}
}

func StatusCheck() Request {
	return Request{Method: http.MethodGet, Path: StatusPath}
}

// Response is a decoded reply. Body is whatever JSON the remote sent; no
// schema is enforced.
type Response struct {
	StatusCode int
	Body       gjson.Result
}

// Outcome is either Success or Failure.
type Outcome interface {
	isOutcome()
}

type Success struct {
	Type    string
	Data    []gjson.Result
	HasData bool
}

type Failure struct {
	Type    string
	Message string
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// Outcome classifies r by the presence of a non-null "error" field.
func (r Response) Outcome() Outcome {
	typ := r.Body.Get("type").String()
	if e := r.Body.Get("error"); e.Exists() && e.Type != gjson.Null {
		return Failure{Type: typ, Message: e.String()}
	}
	data := r.Body.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return Success{Type: typ}
	}
	return Success{Type: typ, Data: data.Array(), HasData: true}
}

// Flatten returns every cell of every row in "data", one level deep.
// Cells keep their JSON type: null stays nil and numbers are float64.
func (r Response) Flatten() []any {
	var out []any
	for _, row := range r.Body.Get("data").Array() {
		if !row.IsArray() {
			out = append(out, row.Value())
			continue
		}
		for _, cell := range row.Array() {
			out = append(out, cell.Value())
		}
	}
	return out
}

// FirstColumn returns the first cell of each row in "data".
func (r Response) FirstColumn() []any {
	rows := r.Body.Get("data").Array()
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Get("0").Value())
	}
	return out
}

// TypeOrError is "type" when it is non-empty, else "error".
func (r Response) TypeOrError() string {
	if t := r.Body.Get("type"); t.Exists() && t.String() != "" {
		return t.String()
	}
	return r.Body.Get("error").String()
}

// Status is the reply of GET /api/status.
type Status struct {
	Version     string `json:"mindsdb_version"`
	Environment string `json:"environment"`
	Auth        string `json:"auth"` // raw JSON
}

func StatusFrom(r Response) Status {
	return Status{
		Version:     r.Body.Get("mindsdb_version").String(),
		Environment: r.Body.Get("environment").String(),
		Auth:        r.Body.Get("auth").Raw,
	}
}
