package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hamed0406/mindsprobe/internal/domain"
	"github.com/hamed0406/mindsprobe/internal/repo"
)

var _ repo.Catalog = (*Store)(nil)

type table struct {
	meta domain.Table
	rows [][]any
}

type database struct {
	name   string
	tables map[string]*table
	views  map[string]*domain.View
	models map[string]*domain.Model
	jobs   map[string]*domain.Job
}

type Store struct {
	mu      sync.RWMutex
	dbs     map[string]*database
	engines []domain.Engine
}

// New returns a catalog seeded the way a fresh MindsDB install looks.
func New() *Store {
	s := &Store{
		dbs: make(map[string]*database),
		engines: []domain.Engine{
			{Name: "lightwood", Handler: "lightwood"},
			{Name: "huggingface", Handler: "huggingface"},
		},
	}
	for _, n := range []string{"information_schema", "mindsdb", "files"} {
		s.dbs[n] = newDatabase(n)
	}
	return s
}

// AddDatabase registers an extra (integration) database, e.g. coinbase_db.
func (m *Store) AddDatabase(name string, tables ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.dbs[key(name)]
	if d == nil {
		d = newDatabase(name)
		m.dbs[key(name)] = d
	}
	for _, t := range tables {
		d.tables[key(t)] = &table{meta: domain.Table{DB: name, Name: t, CreatedAt: time.Now().UTC()}}
	}
}

func newDatabase(name string) *database {
	return &database{
		name:   name,
		tables: make(map[string]*table),
		views:  make(map[string]*domain.View),
		models: make(map[string]*domain.Model),
		jobs:   make(map[string]*domain.Job),
	}
}

func key(s string) string { return strings.ToLower(s) }

func (m *Store) db(name string) (*database, error) {
	d := m.dbs[key(name)]
	if d == nil {
		return nil, fmt.Errorf("database %q %w", name, repo.ErrNotFound)
	}
	return d, nil
}

func (m *Store) Databases(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.dbs))
	for _, d := range m.dbs {
		out = append(out, d.name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Store) CreateDatabase(ctx context.Context, name string, ifNotExists bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dbs[key(name)]; ok {
		if ifNotExists {
			return nil
		}
		return fmt.Errorf("database '%s' %w", name, repo.ErrExists)
	}
	m.dbs[key(name)] = newDatabase(name)
	return nil
}

func (m *Store) Tables(ctx context.Context, db string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.db(db)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(d.tables)+len(d.views))
	for _, t := range d.tables {
		out = append(out, t.meta.Name)
	}
	for _, v := range d.views {
		out = append(out, v.Name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Store) CreateTable(ctx context.Context, t *domain.Table, ifNotExists bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.db(t.DB)
	if err != nil {
		return err
	}
	if _, ok := d.tables[key(t.Name)]; ok {
		if ifNotExists {
			return nil
		}
		return fmt.Errorf("table '%s' %w", t.Name, repo.ErrExists)
	}
	if _, ok := d.views[key(t.Name)]; ok {
		return fmt.Errorf("view '%s' %w", t.Name, repo.ErrExists)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	d.tables[key(t.Name)] = &table{meta: *t, rows: make([][]any, 0, 16)}
	return nil
}

func (m *Store) DropTable(ctx context.Context, db, name string, ifExists bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.db(db)
	if err != nil {
		return err
	}
	if _, ok := d.tables[key(name)]; !ok {
		if ifExists {
			return nil
		}
		return fmt.Errorf("table '%s' %w", name, repo.ErrNotFound)
	}
	delete(d.tables, key(name))
	return nil
}

func (m *Store) lookup(db, name string) (*table, error) {
	d, err := m.db(db)
	if err != nil {
		return nil, err
	}
	t := d.tables[key(name)]
	if t == nil {
		return nil, fmt.Errorf("table '%s.%s' %w", db, name, repo.ErrNotFound)
	}
	return t, nil
}

func (m *Store) Insert(ctx context.Context, db, name string, cols []string, rows [][]any) (int, error) {
	return m.write(db, name, "", cols, rows)
}

func (m *Store) Upsert(ctx context.Context, db, name, keyCol string, cols []string, rows [][]any) (int, error) {
	if keyCol == "" {
		return 0, fmt.Errorf("upsert into %s: empty key column", name)
	}
	return m.write(db, name, keyCol, cols, rows)
}

// write appends rows, or with keyCol set replaces rows whose key matches.
func (m *Store) write(db, name, keyCol string, cols []string, rows [][]any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.lookup(db, name)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		cols = t.meta.Columns
	}

	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = columnIndex(t.meta.Columns, c)
		if idx[i] < 0 {
			return 0, fmt.Errorf("column %s %w in table %s", c, repo.ErrNotFound, name)
		}
	}
	keyAt := -1 // position of keyCol within cols
	if keyCol != "" {
		keyAt = columnIndex(cols, keyCol)
		if keyAt < 0 {
			return 0, fmt.Errorf("conflict column %s is not inserted into %s", keyCol, name)
		}
	}

	// Validate everything before touching the table.
	for _, r := range rows {
		if len(r) != len(cols) {
			return 0, fmt.Errorf("column count mismatch: expected %d, got %d", len(cols), len(r))
		}
	}
	for _, r := range rows {
		if keyAt >= 0 {
			if existing := t.find(idx[keyAt], r[keyAt]); existing != nil {
				for i, v := range r {
					existing[idx[i]] = v
				}
				continue
			}
		}
		row := make([]any, len(t.meta.Columns))
		for i, v := range r {
			row[idx[i]] = v
		}
		t.rows = append(t.rows, row)
	}
	return len(rows), nil
}

func columnIndex(cols []string, c string) int {
	for i, tc := range cols {
		if strings.EqualFold(c, tc) {
			return i
		}
	}
	return -1
}

// find returns the first row whose column col equals v.
func (t *table) find(col int, v any) []any {
	for _, r := range t.rows {
		if r[col] == v {
			return r
		}
	}
	return nil
}

func (m *Store) Select(ctx context.Context, db, name string, limit int) (*domain.Rows, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.lookup(db, name)
	if err != nil {
		return nil, err
	}
	n := len(t.rows)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := &domain.Rows{
		Columns: append([]string(nil), t.meta.Columns...),
		Data:    make([][]any, 0, n),
	}
	for _, r := range t.rows[:n] {
		out.Data = append(out.Data, append([]any(nil), r...))
	}
	return out, nil
}

func (m *Store) CreateModel(ctx context.Context, mdl *domain.Model, ifNotExists bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.db(mdl.DB)
	if err != nil {
		return err
	}
	if _, ok := d.models[key(mdl.Name)]; ok {
		if ifNotExists {
			return nil
		}
		return fmt.Errorf("model '%s' %w", mdl.Name, repo.ErrExists)
	}
	if mdl.Engine != "" && !m.hasEngine(mdl.Engine) {
		return fmt.Errorf("ml engine '%s' %w", mdl.Engine, repo.ErrNotFound)
	}
	if mdl.CreatedAt.IsZero() {
		mdl.CreatedAt = time.Now().UTC()
	}
	cp := *mdl
	d.models[key(mdl.Name)] = &cp
	return nil
}

func (m *Store) DropModel(ctx context.Context, db, name string, ifExists bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.db(db)
	if err != nil {
		return err
	}
	if _, ok := d.models[key(name)]; !ok {
		if ifExists {
			return nil
		}
		return fmt.Errorf("model '%s' %w", name, repo.ErrNotFound)
	}
	delete(d.models, key(name))
	return nil
}

func (m *Store) hasEngine(name string) bool {
	for _, e := range m.engines {
		if strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

func (m *Store) Engines(ctx context.Context) ([]domain.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Engine(nil), m.engines...), nil
}

func (m *Store) CreateView(ctx context.Context, v *domain.View, orReplace bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.db(v.DB)
	if err != nil {
		return err
	}
	if _, ok := d.tables[key(v.Name)]; ok {
		return fmt.Errorf("table '%s' %w", v.Name, repo.ErrExists)
	}
	if _, ok := d.views[key(v.Name)]; ok && !orReplace {
		return fmt.Errorf("view '%s' %w", v.Name, repo.ErrExists)
	}
	cp := *v
	d.views[key(v.Name)] = &cp
	return nil
}

func (m *Store) CreateJob(ctx context.Context, j *domain.Job, ifNotExists bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.db(j.DB)
	if err != nil {
		return err
	}
	if _, ok := d.jobs[key(j.Name)]; ok {
		if ifNotExists {
			return nil
		}
		return fmt.Errorf("job '%s' %w", j.Name, repo.ErrExists)
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	cp := *j
	d.jobs[key(j.Name)] = &cp
	return nil
}
