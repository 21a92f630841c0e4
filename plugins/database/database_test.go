package database

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/componenttest"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func build(t *testing.T, name string, cfg map[string]any) component.Component {
	t.Helper()
	return componenttest.Build(t, componenttest.Find(t, New().Components(), name), cfg)
}

func TestSQLiteExecAndQuery(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	exec := build(t, "database.sql_exec", map[string]any{"dsn": dsn})
	query := build(t, "database.sql_query", map[string]any{"dsn": dsn})
	t.Cleanup(func() {
		_ = exec.(io.Closer).Close()
		_ = query.(io.Closer).Close()
	})
	ctx := context.Background()

	if _, err := componenttest.Run(ctx, exec, map[string]any{"statement": "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, score REAL)"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := componenttest.Run(ctx, exec, map[string]any{
		"statement": "INSERT INTO users (id, name, score) VALUES (?, ?, ?), (?, ?, ?)",
		"params":    []any{1, "ada", 9.5, 2, "alan", 7.25},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if out.(map[string]any)["rows_affected"] != int64(2) {
		t.Errorf("rows_affected = %v", out)
	}

	rows, err := componenttest.Run(ctx, query, map[string]any{
		"query":  "SELECT id, name, score FROM users WHERE score > ? ORDER BY id",
		"params": `[7]`,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	want := []any{
		map[string]any{"id": int64(1), "name": "ada", "score": 9.5},
		map[string]any{"id": int64(2), "name": "alan", "score": 7.25},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %#v", rows)
	}

	again, err := componenttest.Run(ctx, query, map[string]any{"query": "SELECT id, name, score FROM users WHERE score > ? ORDER BY id", "params": `[7]`})
	if err != nil || !reflect.DeepEqual(again, rows) {
		t.Errorf("repeated query differs: %v, %v", again, err)
	}
}

func TestSQLQueryRejectsWrites(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	q := build(t, "database.sql_query", map[string]any{"dsn": dsn})
	_, err := componenttest.Run(context.Background(), q, map[string]any{"query": "DELETE FROM users"})
	if !errors.Is(err, component.ErrInvalidInput) {
		t.Errorf("expected InvalidInput, got %v", err)
	}
	if q.(*sqlComponent).db.Loaded() {
		t.Error("connection opened for a rejected statement")
	}
}

func TestSQLQueryCannotModifyRows(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	exec := build(t, "database.sql_exec", map[string]any{"dsn": dsn})
	query := build(t, "database.sql_query", map[string]any{"dsn": dsn})
	t.Cleanup(func() {
		_ = exec.(io.Closer).Close()
		_ = query.(io.Closer).Close()
	})
	ctx := context.Background()
	for _, stmt := range []string{"CREATE TABLE t (id INTEGER)", "INSERT INTO t VALUES (1), (2)"} {
		if _, err := componenttest.Run(ctx, exec, map[string]any{"statement": stmt}); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}

	if _, err := componenttest.Run(ctx, query, map[string]any{"query": "SELECT 1; DELETE FROM t"}); !errors.Is(err, component.ErrInvalidInput) {
		t.Errorf("multiple statements: expected InvalidInput, got %v", err)
	}
	if _, err := componenttest.Run(ctx, query, map[string]any{"query": "WITH x AS (SELECT 1) DELETE FROM t"}); err == nil {
		t.Error("data-modifying WITH statement succeeded")
	}

	rows, err := componenttest.Run(ctx, query, map[string]any{"query": "SELECT count(*) AS n FROM t;"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got := rows.([]any)[0].(map[string]any)["n"]; got != int64(2) {
		t.Errorf("rows left = %v, want 2", got)
	}

	if _, err := componenttest.Run(ctx, exec, map[string]any{"statement": "DELETE FROM t WHERE id = 1"}); err != nil {
		t.Errorf("exec after read-only query: %v", err)
	}
}

func TestStatementCount(t *testing.T) {
	tests := []struct {
		stmt string
		want int
	}{
		{"SELECT 1", 1},
		{"SELECT 1;", 1},
		{"SELECT 1; -- trailing comment", 1},
		{"SELECT 1; DELETE FROM t", 2},
		{"SELECT ';' AS s", 1},
		{`SELECT "a;b" FROM t`, 1},
		{"SELECT 'it''s; fine'", 1},
		{"SELECT 1 /* ; */", 1},
		{"SELECT $$;$$, $1", 1},
		{"SELECT $tag$ ; $tag$; DROP TABLE t", 2},
		{";;", 0},
	}
	for _, tt := range tests {
		if got := statementCount(tt.stmt); got != tt.want {
			t.Errorf("statementCount(%q) = %d, want %d", tt.stmt, got, tt.want)
		}
	}
}

func TestSQLMaxRows(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	q := build(t, "database.sql_query", map[string]any{"dsn": dsn, "max_rows": 2})
	t.Cleanup(func() { _ = q.(io.Closer).Close() })
	_, err := componenttest.Run(context.Background(), q, map[string]any{
		"query": "WITH RECURSIVE n(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM n WHERE x < 5) SELECT x FROM n",
	})
	if !errors.Is(err, component.ErrExternalFailure) {
		t.Errorf("expected ExternalFailure for too many rows, got %v", err)
	}
}

func TestSQLConfigurationErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	q := build(t, "database.sql_query", nil)
	if _, err := componenttest.Run(context.Background(), q, map[string]any{"query": "SELECT 1"}); !errors.Is(err, component.ErrConfiguration) {
		t.Errorf("expected ConfigurationError for missing dsn, got %v", err)
	}
	bad := build(t, "database.sql_query", map[string]any{"dsn": "x", "driver": "oracle"})
	if _, err := componenttest.Run(context.Background(), bad, map[string]any{"query": "SELECT 1"}); !errors.Is(err, component.ErrConfiguration) {
		t.Errorf("expected ConfigurationError for driver, got %v", err)
	}
}

func TestSQLSyntaxErrorIsExternal(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	q := build(t, "database.sql_query", map[string]any{"dsn": dsn})
	t.Cleanup(func() { _ = q.(io.Closer).Close() })
	_, err := componenttest.Run(context.Background(), q, map[string]any{"query": "SELECT * FROM missing_table"})
	if !errors.Is(err, component.ErrExternalFailure) {
		t.Errorf("expected ExternalFailure, got %v", err)
	}
}

type fakeDynamo struct {
	input *dynamodb.GetItemInput
	item  map[string]types.AttributeValue
	err   error
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func TestDynamoGet(t *testing.T) {
	fake := &fakeDynamo{item: map[string]types.AttributeValue{
		"pk":    &types.AttributeValueMemberS{Value: "user#1"},
		"age":   &types.AttributeValueMemberN{Value: "36"},
		"admin": &types.AttributeValueMemberBOOL{Value: true},
		"tags":  &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: "x"}}},
	}}
	c := build(t, "database.dynamodb_get", map[string]any{"table": "users"})
	c.(*dynamoGet).client.Set(fake)

	out, err := componenttest.Run(context.Background(), c, map[string]any{"key": `{"pk": "user#1"}`})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if *fake.input.TableName != "users" {
		t.Errorf("table = %s", *fake.input.TableName)
	}
	if s, ok := fake.input.Key["pk"].(*types.AttributeValueMemberS); !ok || s.Value != "user#1" {
		t.Errorf("key = %#v", fake.input.Key)
	}
	want := map[string]any{
		"found": true,
		"item":  map[string]any{"pk": "user#1", "age": 36.0, "admin": true, "tags": []any{"x"}},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("out = %#v", out)
	}

	fake.item = nil
	out, _ = componenttest.Run(context.Background(), c, map[string]any{"key": `{"pk": "user#2"}`})
	if out.(map[string]any)["found"] != false {
		t.Errorf("missing item = %v", out)
	}

	fake.err = errors.New("ResourceNotFoundException")
	if _, err := componenttest.Run(context.Background(), c, map[string]any{"key": `{"pk": "x"}`}); !errors.Is(err, component.ErrExternalFailure) {
		t.Errorf("expected ExternalFailure, got %v", err)
	}
}

func TestDynamoGetValidation(t *testing.T) {
	c := build(t, "database.dynamodb_get", nil)
	if _, err := componenttest.Run(context.Background(), c, map[string]any{"key": `{"pk": "x"}`}); !errors.Is(err, component.ErrConfiguration) {
		t.Errorf("expected ConfigurationError for missing table, got %v", err)
	}
	c = build(t, "database.dynamodb_get", map[string]any{"table": "users"})
	if _, err := componenttest.Run(context.Background(), c, map[string]any{"key": `{}`}); !errors.Is(err, component.ErrInvalidInput) {
		t.Errorf("expected InvalidInput for empty key, got %v", err)
	}
	if c.(*dynamoGet).client.Loaded() {
		t.Error("client built before validation passed")
	}
}
