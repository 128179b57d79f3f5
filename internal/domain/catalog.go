package domain

import "time"

// Table, Model and Engine describe the objects the mock service keeps.

type Table struct {
	DB        string    `json:"db"`
	Name      string    `json:"name"`
	Columns   []string  `json:"columns"`
	CreatedAt time.Time `json:"created_at"`
}

type Model struct {
	DB        string    `json:"db"`
	Name      string    `json:"name"`
	Target    string    `json:"target"`
	Engine    string    `json:"engine"`
	Tag       string    `json:"tag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Engine struct {
	Name    string `json:"name"`
	Handler string `json:"handler"`
}

// Rows is a tabular query result.
type Rows struct {
	Columns []string
	Data    [][]any
}

type View struct {
	DB    string `json:"db"`
	Name  string `json:"name"`
	Query string `json:"query"`
}

// Job is a statement MindsDB re-runs on a schedule ("EVERY hour").
type Job struct {
	DB        string    `json:"db"`
	Name      string    `json:"name"`
	Query     string    `json:"query"`
	Schedule  string    `json:"schedule,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
