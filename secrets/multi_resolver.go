package secrets

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// secretRefPattern matches ${scheme:key} or ${VAR_NAME} references.
// Examples: ${vault:components/bing#api_key}, ${file:db_password}, ${env:DB_HOST}, ${DB_HOST}
var secretRefPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// MultiResolver resolves ${...} references using providers keyed by scheme.
// Bare ${VAR_NAME} references resolve through the "env" provider.
//
// *MultiResolver satisfies component.Expander.
type MultiResolver struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewMultiResolver creates a MultiResolver with an EnvProvider registered
// under the "env" scheme.
func NewMultiResolver() *MultiResolver {
	m := &MultiResolver{
		providers: make(map[string]Provider),
	}
	m.providers["env"] = NewEnvProvider("")
	return m
}

// Register adds or replaces the provider for scheme.
func (m *MultiResolver) Register(scheme string, provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[scheme] = provider
}

// Schemes returns the registered provider schemes in sorted order.
func (m *MultiResolver) Schemes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.providers))
}

// Expand replaces every ${...} reference in input with its resolved value.
// Each distinct reference is fetched once per call. When references fail,
// every failure is reported together.
//
// Supported formats:
//   - ${vault:path#field} uses the "vault" provider with key "path#field"
//   - ${file:name} uses the "file" provider
//   - ${env:VAR_NAME} uses the "env" provider
//   - ${VAR_NAME} is shorthand for ${env:VAR_NAME}
func (m *MultiResolver) Expand(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}
	refs := secretRefPattern.FindAllString(input, -1)
	if len(refs) == 0 {
		return input, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	resolved := make(map[string]string, len(refs))
	var errs []error
	for _, ref := range refs {
		if _, done := resolved[ref]; done {
			continue
		}
		val, err := m.lookup(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			resolved[ref] = ref
			continue
		}
		resolved[ref] = val
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return secretRefPattern.ReplaceAllStringFunc(input, func(ref string) string {
		return resolved[ref]
	}), nil
}

// lookup resolves one ${...} reference. Callers hold m.mu.
func (m *MultiResolver) lookup(ctx context.Context, ref string) (string, error) {
	scheme, key := parseReference(ref[2 : len(ref)-1])
	provider, ok := m.providers[scheme]
	if !ok {
		return "", fmt.Errorf("%w %q in reference %s", ErrUnknownScheme, scheme, ref)
	}
	val, err := provider.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("secrets: resolve %s: %w", ref, err)
	}
	return val, nil
}

// ExpandMap resolves references in every string of in, recursing into nested
// maps and lists. The input is not modified.
func (m *MultiResolver) ExpandMap(ctx context.Context, in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		resolved, err := m.expandValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("secrets: key %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

func (m *MultiResolver) expandValue(ctx context.Context, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return m.Expand(ctx, val)
	case map[string]any:
		return m.ExpandMap(ctx, val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			r, err := m.expandValue(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// parseReference splits the inside of ${...} into scheme and key. Text
// without a valid scheme prefix is an environment variable name.
func parseReference(inner string) (scheme, key string) {
	if candidate, rest, ok := strings.Cut(inner, ":"); ok && isValidScheme(candidate) {
		return candidate, rest
	}
	return "env", inner
}

// isValidScheme reports whether s is a non-empty run of letters, digits and hyphens.
func isValidScheme(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}
