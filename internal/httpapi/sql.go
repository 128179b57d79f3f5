package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/hamed0406/mindsprobe/internal/domain"
	"github.com/hamed0406/mindsprobe/internal/repo"
)

const (
	TypeTable = "table"
	TypeOK    = "ok"
	TypeError = "error"
)

// Reply is the body of a /api/sql/query response.
type Reply struct {
	Type    string
	Columns []string
	Data    [][]any
	Error   string
}

func (r Reply) MarshalJSON() ([]byte, error) {
	m := map[string]any{"type": r.Type}
	if r.Type == TypeTable {
		cols, data := r.Columns, r.Data
		if cols == nil {
			cols = []string{}
		}
		if data == nil {
			data = [][]any{}
		}
		m["column_names"] = cols
		m["data"] = data
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return json.Marshal(m)
}

func ok() Reply { return Reply{Type: TypeOK} }

func fail(err error) Reply { return Reply{Type: TypeError, Error: err.Error()} }

func rows(cols []string, data [][]any) Reply {
	return Reply{Type: TypeTable, Columns: cols, Data: data}
}

// MindsDB statements that are not MySQL grammar are matched before parsing.
var (
	createModelRe = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:MODEL|PREDICTOR)\s+(IF\s+NOT\s+EXISTS\s+)?([\w.]+)\s+.*?\bPREDICT\s+(\w+)(.*)$`)
	dropModelRe   = regexp.MustCompile(`(?is)^\s*DROP\s+(?:MODEL|PREDICTOR)\s+(IF\s+EXISTS\s+)?([\w.]+)\s*;?\s*$`)
	showEnginesRe = regexp.MustCompile(`(?is)^\s*SHOW\s+ML_ENGINES\s*;?\s*$`)
	usingOptRe    = regexp.MustCompile(`(?i)(\w+)\s*=\s*'([^']*)'`)

	createDatabaseRe = regexp.MustCompile(`(?is)^\s*CREATE\s+DATABASE\s+(IF\s+NOT\s+EXISTS\s+)?(\w+)\b.*$`)
	createViewRe     = regexp.MustCompile(`(?is)^\s*CREATE\s+(OR\s+REPLACE\s+)?VIEW\s+([\w.]+)\s+AS\s+(.+?)\s*;?\s*$`)
	createJobRe      = regexp.MustCompile(`(?is)^\s*CREATE\s+JOB\s+(IF\s+NOT\s+EXISTS\s+)?([\w.]+)\s*\((.*)\)\s*(?:EVERY\s+(\w+(?:\s+\w+)?))?\s*;?\s*$`)
)

// Postgres flavoured statements that integrations accept but the MySQL
// grammar does not.
var (
	looseTableRe = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+(IF\s+NOT\s+EXISTS\s+)?([\w.]+)\s*\((.*)\)\s*;?\s*$`)
	onConflictRe = regexp.MustCompile(`(?is)\s+ON\s+CONFLICT\s*\(\s*(\w+)\s*\)\s*DO\s+UPDATE\b.*$`)
)

var errUnsupported = errors.New("statement not supported")

// Executor runs statements against a catalog.
type Executor struct {
	Catalog   repo.Catalog
	DefaultDB string

	mu     sync.Mutex
	parser *parser.Parser
}

func NewExecutor(c repo.Catalog) *Executor {
	return &Executor{Catalog: c, DefaultDB: "mindsdb", parser: parser.New()}
}

func (x *Executor) Exec(ctx context.Context, sql string) Reply {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return fail(errors.New("empty query"))
	}

	if showEnginesRe.MatchString(sql) {
		return x.showEngines(ctx)
	}
	if m := createModelRe.FindStringSubmatch(sql); m != nil {
		return x.createModel(ctx, m[2], m[3], m[4], m[1] != "")
	}
	if m := dropModelRe.FindStringSubmatch(sql); m != nil {
		db, name := x.split(m[2])
		if err := x.Catalog.DropModel(ctx, db, name, m[1] != ""); err != nil {
			return fail(err)
		}
		return ok()
	}
	if m := createDatabaseRe.FindStringSubmatch(sql); m != nil {
		if err := x.Catalog.CreateDatabase(ctx, m[2], m[1] != ""); err != nil {
			return fail(err)
		}
		return ok()
	}
	if m := createViewRe.FindStringSubmatch(sql); m != nil {
		db, name := x.split(m[2])
		if err := x.Catalog.CreateView(ctx, &domain.View{DB: db, Name: name, Query: m[3]}, m[1] != ""); err != nil {
			return fail(err)
		}
		return ok()
	}
	if m := createJobRe.FindStringSubmatch(sql); m != nil {
		db, name := x.split(m[2])
		j := &domain.Job{DB: db, Name: name, Query: strings.TrimSpace(m[3]), Schedule: strings.ToLower(m[4])}
		if err := x.Catalog.CreateJob(ctx, j, m[1] != ""); err != nil {
			return fail(err)
		}
		return ok()
	}
	if loc := onConflictRe.FindStringSubmatchIndex(sql); loc != nil {
		return x.upsert(ctx, sql[:loc[0]], sql[loc[2]:loc[3]])
	}

	stmt, err := x.parse(sql)
	if err != nil {
		if m := looseTableRe.FindStringSubmatch(sql); m != nil {
			return x.createLooseTable(ctx, m[2], m[3], m[1] != "")
		}
		return fail(err)
	}

	switch s := stmt.(type) {
	case *ast.ShowStmt:
		return x.show(ctx, s)
	case *ast.CreateTableStmt:
		return x.createTable(ctx, s)
	case *ast.DropTableStmt:
		for _, tn := range s.Tables {
			db, name := x.qualify(tn)
			if err := x.Catalog.DropTable(ctx, db, name, s.IfExists); err != nil {
				return fail(err)
			}
		}
		return ok()
	case *ast.InsertStmt:
		return x.insert(ctx, s, "")
	case *ast.SelectStmt:
		return x.selectRows(ctx, s)
	default:
		return fail(fmt.Errorf("%w: %T", errUnsupported, stmt))
	}
}

func (x *Executor) parse(sql string) (ast.StmtNode, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	stmts, _, err := x.parser.ParseSQL(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, fmt.Errorf("expected one statement, got %d", len(stmts))
	}
	return stmts[0], nil
}

func (x *Executor) split(name string) (db, obj string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return x.DefaultDB, name
}

func (x *Executor) qualify(tn *ast.TableName) (db, name string) {
	db = tn.Schema.O
	if db == "" {
		db = x.DefaultDB
	}
	return db, tn.Name.O
}

func (x *Executor) showEngines(ctx context.Context) Reply {
	es, err := x.Catalog.Engines(ctx)
	if err != nil {
		return fail(err)
	}
	data := make([][]any, 0, len(es))
	for _, e := range es {
		data = append(data, []any{e.Name, e.Handler, "{}"})
	}
	return rows([]string{"NAME", "HANDLER", "CONNECTION_DATA"}, data)
}

func (x *Executor) createModel(ctx context.Context, fullName, target, rest string, ifNotExists bool) Reply {
	db, name := x.split(fullName)
	m := &domain.Model{DB: db, Name: name, Target: target}
	for _, opt := range usingOptRe.FindAllStringSubmatch(rest, -1) {
		switch strings.ToLower(opt[1]) {
		case "engine":
			m.Engine = opt[2]
		case "tag":
			m.Tag = opt[2]
		}
	}
	if err := x.Catalog.CreateModel(ctx, m, ifNotExists); err != nil {
		return fail(err)
	}
	return rows(
		[]string{"NAME", "ENGINE", "PROJECT", "STATUS", "PREDICT", "TAG"},
		[][]any{{m.Name, m.Engine, m.DB, "generating", m.Target, m.Tag}},
	)
}

func (x *Executor) show(ctx context.Context, s *ast.ShowStmt) Reply {
	switch s.Tp {
	case ast.ShowDatabases:
		dbs, err := x.Catalog.Databases(ctx)
		if err != nil {
			return fail(err)
		}
		return rows([]string{"Database"}, column(dbs))
	case ast.ShowTables:
		db := s.DBName
		if db == "" {
			db = x.DefaultDB
		}
		ts, err := x.Catalog.Tables(ctx, db)
		if err != nil {
			return fail(err)
		}
		return rows([]string{"Tables_in_" + db}, column(ts))
	default:
		return fail(fmt.Errorf("%w: SHOW variant %d", errUnsupported, s.Tp))
	}
}

func column(vals []string) [][]any {
	out := make([][]any, 0, len(vals))
	for _, v := range vals {
		out = append(out, []any{v})
	}
	return out
}

func (x *Executor) createTable(ctx context.Context, s *ast.CreateTableStmt) Reply {
	db, name := x.qualify(s.Table)
	t := &domain.Table{DB: db, Name: name}
	for _, c := range s.Cols {
		t.Columns = append(t.Columns, c.Name.Name.O)
	}
	if err := x.Catalog.CreateTable(ctx, t, s.IfNotExists); err != nil {
		return fail(err)
	}
	return ok()
}

// createLooseTable keeps only the column names of a definition the parser
// rejected, e.g. one using SERIAL or JSONB.
func (x *Executor) createLooseTable(ctx context.Context, fullName, body string, ifNotExists bool) Reply {
	db, name := x.split(fullName)
	t := &domain.Table{DB: db, Name: name}
	for _, def := range splitTopLevel(body) {
		f := strings.Fields(def)
		if len(f) == 0 {
			continue
		}
		switch strings.ToUpper(f[0]) {
		case "PRIMARY", "UNIQUE", "KEY", "INDEX", "CONSTRAINT", "FOREIGN", "CHECK":
			continue
		}
		t.Columns = append(t.Columns, strings.Trim(f[0], "`\""))
	}
	if len(t.Columns) == 0 {
		return fail(fmt.Errorf("table %s has no columns", fullName))
	}
	if err := x.Catalog.CreateTable(ctx, t, ifNotExists); err != nil {
		return fail(err)
	}
	return ok()
}

// splitTopLevel splits s on commas outside parentheses and quotes.
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		quote bool
		start int
	)
	for i, r := range s {
		switch {
		case r == '\'':
			quote = !quote
		case quote:
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func (x *Executor) upsert(ctx context.Context, insertSQL, key string) Reply {
	stmt, err := x.parse(insertSQL)
	if err != nil {
		return fail(err)
	}
	s, isInsert := stmt.(*ast.InsertStmt)
	if !isInsert {
		return fail(fmt.Errorf("%w: ON CONFLICT outside INSERT", errUnsupported))
	}
	return x.insert(ctx, s, key)
}

func tableOf(refs *ast.TableRefsClause) (*ast.TableName, error) {
	if refs == nil || refs.TableRefs == nil || refs.TableRefs.Right != nil {
		return nil, fmt.Errorf("%w: expected a single table", errUnsupported)
	}
	ts, isSource := refs.TableRefs.Left.(*ast.TableSource)
	if !isSource {
		return nil, fmt.Errorf("%w: expected a table source", errUnsupported)
	}
	tn, isName := ts.Source.(*ast.TableName)
	if !isName {
		return nil, fmt.Errorf("%w: subqueries", errUnsupported)
	}
	return tn, nil
}

// insert writes the VALUES of s; a non-empty key upserts on that column.
func (x *Executor) insert(ctx context.Context, s *ast.InsertStmt, key string) Reply {
	tn, err := tableOf(s.Table)
	if err != nil {
		return fail(err)
	}
	if len(s.Lists) == 0 {
		return fail(fmt.Errorf("%w: INSERT without VALUES", errUnsupported))
	}
	db, name := x.qualify(tn)

	cols := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		cols = append(cols, c.Name.O)
	}
	data := make([][]any, 0, len(s.Lists))
	for _, list := range s.Lists {
		row := make([]any, 0, len(list))
		for _, e := range list {
			v, err := literal(e)
			if err != nil {
				return fail(err)
			}
			row = append(row, v)
		}
		data = append(data, row)
	}
	if key != "" {
		_, err = x.Catalog.Upsert(ctx, db, name, key, cols, data)
	} else {
		_, err = x.Catalog.Insert(ctx, db, name, cols, data)
	}
	if err != nil {
		return fail(err)
	}
	return ok()
}

func (x *Executor) selectRows(ctx context.Context, s *ast.SelectStmt) Reply {
	tn, err := tableOf(s.From)
	if err != nil {
		return fail(err)
	}
	if s.Fields == nil || len(s.Fields.Fields) != 1 || s.Fields.Fields[0].WildCard == nil {
		return fail(fmt.Errorf("%w: only SELECT * is served", errUnsupported))
	}
	if s.Where != nil || s.OrderBy != nil || s.GroupBy != nil {
		return fail(fmt.Errorf("%w: WHERE, ORDER BY and GROUP BY", errUnsupported))
	}

	limit := -1
	if s.Limit != nil && s.Limit.Count != nil {
		v, err := literal(s.Limit.Count)
		if err != nil {
			return fail(err)
		}
		n, err := strconv.Atoi(fmt.Sprint(v))
		if err != nil || n < 0 {
			return fail(fmt.Errorf("bad LIMIT %v", v))
		}
		limit = n
	}

	db, name := x.qualify(tn)
	res, err := x.Catalog.Select(ctx, db, name, limit)
	if err != nil {
		return fail(err)
	}
	return rows(res.Columns, res.Data)
}

// literal turns a constant expression into a JSON-friendly value.
func literal(e ast.ExprNode) (any, error) {
	switch v := e.(type) {
	case ast.ValueExpr:
		return plain(v.GetValue()), nil
	case *ast.UnaryOperationExpr:
		if v.Op != opcode.Minus {
			return nil, fmt.Errorf("%w: unary %v", errUnsupported, v.Op)
		}
		inner, err := literal(v.V)
		if err != nil {
			return nil, err
		}
		switch n := inner.(type) {
		case int64:
			return -n, nil
		case uint64:
			return -int64(n), nil
		case float64:
			return -n, nil
		}
		return nil, fmt.Errorf("cannot negate %T", inner)
	default:
		return nil, fmt.Errorf("%w: expression %T", errUnsupported, e)
	}
}

func plain(v any) any {
	switch x := v.(type) {
	case nil, string, int64, uint64, float64, bool:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		s := x.String()
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	default:
		return fmt.Sprint(x)
	}
}
