package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/GoCodeAlone/workflow-components/invoke"
	"github.com/GoCodeAlone/workflow-components/plugins/all"
	"github.com/GoCodeAlone/workflow-components/registry"
	"github.com/GoCodeAlone/workflow-components/secrets"
)

// hostFlags are the options shared by every command that builds a registry.
type hostFlags struct {
	logLevel      string
	secretsDir    string
	vaultAddr     string
	vaultToken    string
	vaultMount    string
	maxConcurrent int64
	ratePerSecond float64
	streamLimit   int
}

func (h *hostFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&h.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&h.secretsDir, "secrets-dir", "", "Directory resolved by ${file:name} references")
	fs.StringVar(&h.vaultAddr, "vault-addr", os.Getenv("VAULT_ADDR"), "Vault address for ${vault:path#field} references")
	fs.StringVar(&h.vaultToken, "vault-token", os.Getenv("VAULT_TOKEN"), "Vault token")
	fs.StringVar(&h.vaultMount, "vault-mount", "secret", "Vault KV v2 mount path")
	fs.Int64Var(&h.maxConcurrent, "max-concurrent", 0, "Maximum concurrent invocations (0 = unlimited)")
	fs.Float64Var(&h.ratePerSecond, "rate", 0, "Maximum invocations per second (0 = unlimited)")
	fs.IntVar(&h.streamLimit, "stream-limit", invoke.DefaultStreamLimit, "Maximum items collected from a stream output")
}

func (h *hostFlags) logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(h.logLevel)}))
}

// resolver builds the ${scheme:key} expander from the flags.
func (h *hostFlags) resolver() (*secrets.MultiResolver, error) {
	r := secrets.NewMultiResolver()
	if h.secretsDir != "" {
		r.Register("file", secrets.NewFileProvider(h.secretsDir))
	}
	if h.vaultAddr != "" {
		vp, err := secrets.NewVaultProvider(secrets.VaultConfig{
			Address:   h.vaultAddr,
			Token:     h.vaultToken,
			MountPath: h.vaultMount,
		})
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		r.Register("vault", vp)
	}
	return r, nil
}

// registry loads every built-in plugin behind the configured resolver.
func (h *hostFlags) registry() (*registry.Registry, error) {
	res, err := h.resolver()
	if err != nil {
		return nil, err
	}
	reg := registry.New(registry.WithExpander(res))
	if err := all.LoadAll(reg); err != nil {
		return nil, fmt.Errorf("load plugins: %w", err)
	}
	return reg, nil
}

func (h *hostFlags) invoker(logger *slog.Logger, opts ...invoke.Option) (*invoke.Invoker, error) {
	reg, err := h.registry()
	if err != nil {
		return nil, err
	}
	opts = append([]invoke.Option{
		invoke.WithLogger(logger),
		invoke.WithMaxConcurrent(h.maxConcurrent),
		invoke.WithRateLimit(h.ratePerSecond, 1),
		invoke.WithStreamLimit(h.streamLimit),
	}, opts...)
	return invoke.New(reg, opts...), nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// kvFlag collects repeated key=value flags.
type kvFlag map[string]any

func (f kvFlag) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

func (f kvFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	f[k] = v
	return nil
}
