package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/mindsprobe/internal/domain"
)

var (
	ErrExists   = errors.New("already exists")
	ErrNotFound = errors.New("not found")
)

// Catalog holds the databases, tables, views, models and jobs served by the
// mock API.
type Catalog interface {
	Databases(ctx context.Context) ([]string, error)
	// CreateDatabase registers an integration database. Its connection
	// parameters are not kept.
	CreateDatabase(ctx context.Context, name string, ifNotExists bool) error
	// Tables lists tables and views.
	Tables(ctx context.Context, db string) ([]string, error)
	CreateTable(ctx context.Context, t *domain.Table, ifNotExists bool) error
	DropTable(ctx context.Context, db, name string, ifExists bool) error
	// Insert appends rows whose cells follow cols; missing columns are nil.
	Insert(ctx context.Context, db, name string, cols []string, rows [][]any) (int, error)
	// Upsert is Insert, except a row whose key column matches an existing
	// row overwrites the columns it names.
	Upsert(ctx context.Context, db, name, key string, cols []string, rows [][]any) (int, error)
	// Select returns at most limit rows; limit < 0 means all.
	Select(ctx context.Context, db, name string, limit int) (*domain.Rows, error)
	CreateModel(ctx context.Context, m *domain.Model, ifNotExists bool) error
	DropModel(ctx context.Context, db, name string, ifExists bool) error
	Engines(ctx context.Context) ([]domain.Engine, error)
	CreateView(ctx context.Context, v *domain.View, orReplace bool) error
	CreateJob(ctx context.Context, j *domain.Job, ifNotExists bool) error
}
