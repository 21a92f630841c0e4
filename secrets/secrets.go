// Package secrets resolves configuration indirection: ${scheme:key} references
// in component configuration are replaced with values read from the process
// environment, a secrets directory, or HashiCorp Vault. Providers are
// read-only; components never write secrets.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Common errors.
var (
	ErrNotFound      = errors.New("secrets: secret not found")
	ErrInvalidKey    = errors.New("secrets: invalid key")
	ErrUnknownScheme = errors.New("secrets: unknown provider scheme")
	ErrProviderInit  = errors.New("secrets: provider initialization failed")
)

// Provider reads secret values from a backend.
type Provider interface {
	// Name returns the provider identifier.
	Name() string
	// Get retrieves a secret value by key.
	Get(ctx context.Context, key string) (string, error)
}

// EnvProvider reads secrets from environment variables. A key is mapped to a
// variable name by upper-casing it and turning dots and hyphens into
// underscores, so "bing.api_key" reads BING_API_KEY.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider returns an EnvProvider. A non-empty prefix is prepended to
// every variable name ("app_" and "db_pass" read APP_DB_PASS).
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: strings.ToUpper(prefix)}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	name := p.prefix + envName.Replace(strings.ToUpper(key))
	if val, ok := os.LookupEnv(name); ok {
		return val, nil
	}
	return "", fmt.Errorf("%w: env var %s", ErrNotFound, name)
}

var envName = strings.NewReplacer(".", "_", "-", "_")

// FileProvider reads one secret per file below a directory, the layout of a
// Kubernetes secret volume. Keys may name files in subdirectories but can
// never escape the directory. Trailing newlines are trimmed.
type FileProvider struct {
	dir string
}

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Get(_ context.Context, key string) (string, error) {
	if key == "" || !filepath.IsLocal(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	root, err := os.OpenRoot(p.dir)
	if err != nil {
		return "", fmt.Errorf("%w: secrets dir: %w", ErrProviderInit, err)
	}
	defer root.Close()

	data, err := root.ReadFile(key)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	case err != nil:
		return "", fmt.Errorf("secrets: read %s: %w", key, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
