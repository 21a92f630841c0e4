package database

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	_ "modernc.org/sqlite"             // SQLite driver ("sqlite")
)

var sqlConfig = []component.ConfigField{
	{Key: "driver", Default: "sqlite", Description: "sqlite or postgres"},
	{Key: "dsn", Required: true, Secret: true, Env: "DATABASE_URL", Description: "Data source name or file path"},
	{Key: "timeout", Default: "30s"},
	{Key: "max_open_conns", Default: 4},
}

var queryDescriptor = component.Descriptor{
	Name:        "database.sql_query",
	Description: "Runs a read-only SQL query and returns the rows as objects",
	Group:       "database",
	Inputs: []component.InputDef{
		{Name: "query", Type: component.TypeText},
		{Name: "params", Type: component.TypeList, Optional: true, Description: "Positional parameters"},
	},
	Output: component.TypeJSON,
	Config: append(append([]component.ConfigField(nil), sqlConfig...),
		component.ConfigField{Key: "max_rows", Default: 1000, Description: "Rows beyond this limit are an error"}),
}

var execDescriptor = component.Descriptor{
	Name:        "database.sql_exec",
	Description: "Runs a data-modifying SQL statement and returns the affected row count",
	Group:       "database",
	Inputs: []component.InputDef{
		{Name: "statement", Type: component.TypeText},
		{Name: "params", Type: component.TypeList, Optional: true},
	},
	Output:      component.TypeJSON,
	Config:      sqlConfig,
	SideEffects: "modifies database rows",
}

// readOnlyPrefixes are the leading keywords database.sql_query accepts.
var readOnlyPrefixes = []string{"select", "with", "explain", "values", "show"}

type sqlComponent struct {
	component.Base
	query bool
	db    *component.Lazy[*sql.DB]
}

func newSQL(d component.Descriptor, query bool) component.Factory {
	return func(cfg component.Config) (component.Component, error) {
		c := &sqlComponent{Base: component.NewBase(d, cfg), query: query}
		c.db = component.NewLazy(c.open)
		return c, nil
	}
}

// driverName maps the configured driver to a registered database/sql name.
func driverName(driver string) (string, bool) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return "sqlite", true
	case "postgres", "postgresql", "pgx":
		return "pgx", true
	}
	return "", false
}

func (c *sqlComponent) open(ctx context.Context) (*sql.DB, error) {
	name, _ := driverName(c.Config().String("driver"))
	db, err := sql.Open(name, c.Config().String("dsn"))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(c.Config().Int("max_open_conns", 4))
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the connection pool if it was opened.
func (c *sqlComponent) Close() error {
	return c.db.Close()
}

func (c *sqlComponent) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := c.Require("dsn"); err != nil {
		return nil, err
	}
	if _, ok := driverName(c.Config().String("driver")); !ok {
		return nil, component.Configuration(c.Name(), "driver", "unsupported driver %q", c.Config().String("driver"))
	}

	inputName := "statement"
	if c.query {
		inputName = "query"
	}
	stmt := strings.TrimSpace(in.Text(inputName))
	if stmt == "" {
		return nil, c.InvalidInput(inputName, "must not be empty")
	}
	if c.query {
		if n := statementCount(stmt); n > 1 {
			return nil, c.InvalidInput("query", "expected one statement, got %d", n)
		}
		if !isReadOnly(stmt) {
			return nil, c.InvalidInput("query", "only read-only statements are allowed; use database.sql_exec")
		}
	}
	args := in.List("params")

	ctx, cancel := context.WithTimeout(ctx, c.Config().Duration("timeout", 30*time.Second))
	defer cancel()

	db, err := c.db.Get(ctx)
	if err != nil {
		return nil, c.External("connect", err)
	}
	if !c.query {
		res, err := db.ExecContext(ctx, stmt, args...)
		if err != nil {
			return nil, c.External("exec", err)
		}
		affected, _ := res.RowsAffected()
		return map[string]any{"rows_affected": affected}, nil
	}

	return c.readOnlyQuery(ctx, db, stmt, args)
}

// readOnlyQuery runs stmt on a dedicated connection that refuses writes:
// SQLite gets PRAGMA query_only for the duration, PostgreSQL a READ ONLY
// transaction.
func (c *sqlComponent) readOnlyQuery(ctx context.Context, db *sql.DB, stmt string, args []any) (any, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, c.External("connect", err)
	}
	defer conn.Close()

	driver, _ := driverName(c.Config().String("driver"))
	sqlite := driver == "sqlite"
	if sqlite {
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return nil, c.External("query", err)
		}
		defer func() {
			if _, err := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA query_only = OFF"); err != nil {
				// Keep a write-protected connection out of the pool.
				_ = conn.Raw(func(any) error { return sqldriver.ErrBadConn })
			}
		}()
	}

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: !sqlite})
	if err != nil {
		return nil, c.External("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, c.External("query", err)
	}
	defer rows.Close()
	return c.scan(rows)
}

func (c *sqlComponent) scan(rows *sql.Rows) (any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, c.External("columns", err)
	}
	maxRows := c.Config().Int("max_rows", 1000)

	results := make([]any, 0)
	for rows.Next() {
		if maxRows > 0 && len(results) >= maxRows {
			return nil, c.External("query", fmt.Errorf("result exceeds max_rows %d", maxRows))
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, c.External("scan", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = jsonValue(values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, c.External("rows", err)
	}
	return results, nil
}

// jsonValue converts driver values into JSON-friendly forms.
func jsonValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

func isReadOnly(stmt string) bool {
	first := strings.ToLower(strings.Fields(stmt)[0])
	first = strings.TrimLeft(first, "(")
	for _, p := range readOnlyPrefixes {
		if first == p {
			return true
		}
	}
	return false
}

// statementCount returns how many non-empty statements stmt holds. Semicolons
// inside quoted strings, identifiers, comments and dollar-quoted bodies do
// not separate statements.
func statementCount(stmt string) int {
	n := 0
	pending := false
	for i := 0; i < len(stmt); i++ {
		switch ch := stmt[i]; {
		case ch == '\'' || ch == '"' || ch == '`':
			i = skipPast(stmt, i+1, string(ch)) - 1
			pending = true
		case strings.HasPrefix(stmt[i:], "--"):
			i = skipPast(stmt, i+2, "\n") - 1
		case strings.HasPrefix(stmt[i:], "/*"):
			i = skipPast(stmt, i+2, "*/") - 1
		case ch == '$':
			if tag, ok := dollarTag(stmt[i:]); ok {
				i = skipPast(stmt, i+len(tag), tag) - 1
			}
			pending = true
		case ch == ';':
			if pending {
				n++
				pending = false
			}
		case ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r':
			pending = true
		}
	}
	if pending {
		n++
	}
	return n
}

// skipPast returns the index just after the first end found at or after
// from, or len(s) when there is none.
func skipPast(s string, from int, end string) int {
	if from > len(s) {
		return len(s)
	}
	if j := strings.Index(s[from:], end); j >= 0 {
		return from + j + len(end)
	}
	return len(s)
}

// dollarTag reports the $tag$ opening a PostgreSQL dollar-quoted string.
// Positional parameters such as $1 are not tags.
func dollarTag(s string) (string, bool) {
	for j := 1; j < len(s); j++ {
		switch c := s[j]; {
		case c == '$':
			return s[:j+1], true
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && j > 1:
		default:
			return "", false
		}
	}
	return "", false
}
