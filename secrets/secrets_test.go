package secrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider_Get(t *testing.T) {
	t.Setenv("BING_API_KEY", "k1")
	t.Setenv("APP_DB_PASS", "pw")

	p := NewEnvProvider("")
	v, err := p.Get(context.Background(), "bing.api_key")
	if err != nil || v != "k1" {
		t.Fatalf("Get = %q, %v", v, err)
	}

	prefixed := NewEnvProvider("app_")
	v, err = prefixed.Get(context.Background(), "db_pass")
	if err != nil || v != "pw" {
		t.Fatalf("prefixed Get = %q, %v", v, err)
	}

	if _, err := p.Get(context.Background(), "NOT_SET_ANYWHERE_XYZ"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.Get(context.Background(), ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestFileProvider_Get(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "db_password"), []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := NewFileProvider(dir)

	v, err := p.Get(context.Background(), "db_password")
	if err != nil || v != "s3cret" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if _, err := p.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	for _, key := range []string{"../etc/passwd", "/etc/passwd", ""} {
		if _, err := p.Get(context.Background(), key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Get(%q): expected ErrInvalidKey, got %v", key, err)
		}
	}

	if err := os.Mkdir(filepath.Join(dir, "smtp"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "smtp", "password"), []byte("pw\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if v, err := p.Get(context.Background(), "smtp/password"); err != nil || v != "pw" {
		t.Errorf("nested Get = %q, %v", v, err)
	}

	if _, err := NewFileProvider(filepath.Join(dir, "absent")).Get(context.Background(), "x"); !errors.Is(err, ErrProviderInit) {
		t.Errorf("expected ErrProviderInit, got %v", err)
	}
}

func TestMultiResolver_Expand(t *testing.T) {
	t.Setenv("MY_DB_HOST", "localhost")
	t.Setenv("MY_DB_PORT", "5432")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token"), []byte("abc"), 0o600); err != nil {
		t.Fatal(err)
	}

	m := NewMultiResolver()
	m.Register("file", NewFileProvider(dir))

	tests := []struct {
		in, want string
	}{
		{"host=${MY_DB_HOST}:${env:MY_DB_PORT}", "host=localhost:5432"},
		{"Bearer ${file:token}", "Bearer abc"},
		{"plain-string-value", "plain-string-value"},
	}
	for _, tt := range tests {
		got, err := m.Expand(context.Background(), tt.in)
		if err != nil {
			t.Fatalf("Expand(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := m.Schemes(); len(got) != 2 || got[0] != "env" || got[1] != "file" {
		t.Errorf("Schemes = %v", got)
	}
}

func TestMultiResolver_ExpandErrors(t *testing.T) {
	m := NewMultiResolver()
	if _, err := m.Expand(context.Background(), "${unknown:key}"); !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("expected ErrUnknownScheme, got %v", err)
	}
	if _, err := m.Expand(context.Background(), "${NONEXISTENT_VAR_XYZ_123}"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMultiResolver_ExpandMap(t *testing.T) {
	t.Setenv("SMTP_PASSWORD", "pw")
	m := NewMultiResolver()
	in := map[string]any{
		"host": "smtp.example.com",
		"auth": map[string]any{"password": "${SMTP_PASSWORD}"},
		"port": 587,
	}
	out, err := m.ExpandMap(context.Background(), in)
	if err != nil {
		t.Fatalf("ExpandMap: %v", err)
	}
	if out["auth"].(map[string]any)["password"] != "pw" {
		t.Errorf("nested value not expanded: %v", out)
	}
	if out["port"] != 587 {
		t.Errorf("non-string value changed: %v", out["port"])
	}
	if in["auth"].(map[string]any)["password"] != "${SMTP_PASSWORD}" {
		t.Error("input map was modified")
	}
}

func newVaultServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		if r.URL.Path != "/v1/secret/data/components/bing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"request_id": "1",
			"lease_id": "",
			"renewable": false,
			"lease_duration": 0,
			"data": {
				"data": {"api_key": "vault-key"},
				"metadata": {
					"created_time": "2025-01-02T03:04:05.000000006Z",
					"custom_metadata": null,
					"deletion_time": "",
					"destroyed": false,
					"version": 1
				}
			}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultProvider_Get(t *testing.T) {
	srv := newVaultServer(t)
	p, err := NewVaultProvider(VaultConfig{Address: srv.URL, Token: "root"})
	if err != nil {
		t.Fatalf("NewVaultProvider: %v", err)
	}

	v, err := p.Get(context.Background(), "components/bing#api_key")
	if err != nil || v != "vault-key" {
		t.Fatalf("Get field = %q, %v", v, err)
	}

	whole, err := p.Get(context.Background(), "components/bing")
	if err != nil || whole != `{"api_key":"vault-key"}` {
		t.Fatalf("Get whole = %q, %v", whole, err)
	}

	if _, err := p.Get(context.Background(), "components/bing#missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing field, got %v", err)
	}
	if _, err := p.Get(context.Background(), "components/other#x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing path, got %v", err)
	}
}

func TestVaultProvider_RequiresConfig(t *testing.T) {
	if _, err := NewVaultProvider(VaultConfig{Token: "t"}); !errors.Is(err, ErrProviderInit) {
		t.Errorf("expected ErrProviderInit without address, got %v", err)
	}
	if _, err := NewVaultProvider(VaultConfig{Address: "http://127.0.0.1:8200"}); !errors.Is(err, ErrProviderInit) {
		t.Errorf("expected ErrProviderInit without token, got %v", err)
	}
}

func TestMultiResolver_VaultScheme(t *testing.T) {
	srv := newVaultServer(t)
	p, err := NewVaultProvider(VaultConfig{Address: srv.URL, Token: "root"})
	if err != nil {
		t.Fatal(err)
	}
	m := NewMultiResolver()
	m.Register("vault", p)
	got, err := m.Expand(context.Background(), "${vault:components/bing#api_key}")
	if err != nil || got != "vault-key" {
		t.Fatalf("Expand = %q, %v", got, err)
	}
}

type countingProvider struct {
	calls  int
	values map[string]string
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Get(_ context.Context, key string) (string, error) {
	p.calls++
	v, ok := p.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func TestMultiResolver_ExpandReportsAllFailures(t *testing.T) {
	m := NewMultiResolver()
	_, err := m.Expand(context.Background(), "${nope:a} and ${MISSING_VAR_ABC_987}")
	if !errors.Is(err, ErrUnknownScheme) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected both failures, got %v", err)
	}
}

func TestMultiResolver_ExpandResolvesOncePerReference(t *testing.T) {
	p := &countingProvider{values: map[string]string{"host": "db"}}
	m := NewMultiResolver()
	m.Register("kv", p)
	got, err := m.Expand(context.Background(), "${kv:host}:${kv:host}")
	if err != nil || got != "db:db" {
		t.Fatalf("Expand = %q, %v", got, err)
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
}

func TestMultiResolver_ExpandMapLists(t *testing.T) {
	t.Setenv("BROKER_A", "a:9092")
	m := NewMultiResolver()
	in := map[string]any{"brokers": []any{"${BROKER_A}", 3, map[string]any{"x": "${BROKER_A}"}}}
	got, err := m.ExpandMap(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	list := got["brokers"].([]any)
	if list[0] != "a:9092" || list[1] != 3 || list[2].(map[string]any)["x"] != "a:9092" {
		t.Errorf("brokers = %v", list)
	}
	if in["brokers"].([]any)[0] != "${BROKER_A}" {
		t.Error("input mutated")
	}
}
