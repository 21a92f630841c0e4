package component

import (
	"context"
	"fmt"
	"maps"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Expander resolves ${scheme:key} references inside configuration strings.
// *secrets.MultiResolver satisfies this interface.
type Expander interface {
	Expand(ctx context.Context, input string) (string, error)
}

// Config is the resolved configuration of a component instance.
type Config struct {
	values     map[string]any
	unresolved map[string]error
}

// NewConfig wraps a plain map. Values are taken literally.
func NewConfig(values map[string]any) Config {
	v := make(map[string]any, len(values))
	maps.Copy(v, values)
	return Config{values: v}
}

// MergeOption adjusts MergeConfig.
type MergeOption func(*mergeOptions)

type mergeOptions struct {
	expandOverrides bool
}

// ExpandOverrides makes MergeConfig resolve ${...} references in caller
// overrides too. Only set it when overrides come from the operator (command
// line flags, batch files); overrides from remote callers must stay literal.
func ExpandOverrides() MergeOption {
	return func(o *mergeOptions) { o.expandOverrides = true }
}

// MergeConfig resolves configuration for d in increasing precedence:
// declared defaults, then the declared Env variable of each field, then the
// caller's overrides. ${...} references in defaults and Env values are
// expanded with exp; overrides are taken literally unless ExpandOverrides is
// given. A reference that cannot be resolved leaves the key empty; the
// failure surfaces only when the key is required (see Config.Require).
// Override keys not declared by d are rejected.
func MergeConfig(ctx context.Context, d Descriptor, overrides map[string]any, exp Expander, opts ...MergeOption) (Config, error) {
	var o mergeOptions
	for _, opt := range opts {
		opt(&o)
	}
	for k := range overrides {
		if _, ok := d.Field(k); !ok {
			return Config{}, Configuration(d.Name, k, "unknown configuration key")
		}
	}

	values := make(map[string]any, len(d.Config)+len(overrides))
	for _, f := range d.Config {
		if f.Default != nil {
			values[f.Key] = f.Default
		}
		if f.Env == "" {
			continue
		}
		if v, ok := os.LookupEnv(f.Env); ok && v != "" {
			values[f.Key] = v
		}
	}
	cfg := Config{values: values}
	cfg.expand(ctx, exp, values)

	if o.expandOverrides {
		cfg.expand(ctx, exp, overrides)
		return cfg, nil
	}
	for k, v := range overrides {
		values[k] = v
		delete(cfg.unresolved, k)
	}
	return cfg, nil
}

// expand resolves src into c.values, recording keys whose references fail.
func (c *Config) expand(ctx context.Context, exp Expander, src map[string]any) {
	for k, v := range src {
		delete(c.unresolved, k)
		if exp == nil {
			c.values[k] = v
			continue
		}
		resolved, err := expandValue(ctx, exp, v)
		if err != nil {
			if c.unresolved == nil {
				c.unresolved = make(map[string]error)
			}
			c.unresolved[k] = err
			delete(c.values, k)
			continue
		}
		c.values[k] = resolved
	}
}

func expandValue(ctx context.Context, exp Expander, v any) (any, error) {
	switch val := v.(type) {
	case string:
		if !strings.Contains(val, "${") {
			return val, nil
		}
		return exp.Expand(ctx, val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			r, err := expandValue(ctx, exp, inner)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			r, err := expandValue(ctx, exp, inner)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// Get returns the raw value for key.
func (c Config) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the configured keys in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value for key formatted as a string, or "".
func (c Config) String(key string) string {
	switch v := c.values[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value for key as an int, or def when unset or malformed.
func (c Config) Int(key string, def int) int {
	switch v := c.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the value for key as a bool, or def when unset or malformed.
func (c Config) Bool(key string, def bool) bool {
	switch v := c.values[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Duration parses the value for key as a time.Duration. Integers are
// seconds. Returns def when unset or malformed.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	switch v := c.values[key].(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

// StringSlice returns the value for key as a []string. Comma-separated
// strings are split.
func (c Config) StringSlice(key string) []string {
	switch v := c.values[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

// StringMap returns the value for key as a map[string]string.
func (c Config) StringMap(key string) map[string]string {
	switch v := c.values[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = fmt.Sprint(item)
		}
		return out
	}
	return nil
}

// Require returns a ConfigurationError for the first key that is missing or
// empty. When the key was a reference that failed to resolve, the
// resolution error is included.
func (c Config) Require(component string, keys ...string) error {
	for _, k := range keys {
		if c.String(k) != "" {
			continue
		}
		if err, ok := c.unresolved[k]; ok {
			return &Error{Kind: KindConfiguration, Component: component, Op: k, Err: err}
		}
		return Configuration(component, k, "required setting is missing or empty")
	}
	return nil
}
