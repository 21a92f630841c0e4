package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoCodeAlone/workflow-components/config"
	"github.com/GoCodeAlone/workflow-components/invoke"
)

// result is one line of exec output.
type result struct {
	Name      string `json:"name"`
	Component string `json:"component"`
	Output    any    `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	Outcome   string `json:"outcome"`
}

func runExec(args []string) error {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	var host hostFlags
	host.register(fs)
	watch := fs.Bool("watch", false, "Re-run the batch whenever the file changes")
	failFast := fs.Bool("fail-fast", false, "Stop at the first failed invocation")
	debounce := fs.Duration("debounce", 500*time.Millisecond, "Settle time for -watch")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: compctl exec [options] <batch.yaml>\n\nRun every invocation in a batch file in order and print one JSON result per invocation.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("batch file path is required")
	}
	path := fs.Arg(0)

	logger := host.logger(os.Stderr)
	inv, err := host.invoker(logger, invoke.WithTrustedConfig())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	runErr := execBatch(ctx, inv, b, *failFast)
	if !*watch {
		return runErr
	}
	if runErr != nil {
		logger.Warn("batch finished with failures", "err", runErr)
	}

	w := config.NewWatcher(config.NewFileSource(path), func(evt config.ChangeEvent) {
		logger.Info("re-running batch", "batch", evt.Batch.Name, "hash", evt.NewHash[:8])
		if err := execBatch(ctx, inv, evt.Batch, *failFast); err != nil {
			logger.Warn("batch finished with failures", "err", err)
		}
	}, config.WithWatchDebounce(*debounce), config.WithWatchLogger(logger))
	if err := w.Start(ctx); err != nil {
		return err
	}
	logger.Info("watching batch file", "path", path)
	<-ctx.Done()
	return w.Stop()
}

// execBatch validates b and runs its invocations in order, printing one
// result per invocation. Failures are collected unless failFast is set.
func execBatch(ctx context.Context, inv *invoke.Invoker, b *config.Batch, failFast bool) error {
	if err := b.Validate(inv.Registry()); err != nil {
		return err
	}
	var errs []error
	for _, in := range b.Invocations {
		out, err := inv.Invoke(ctx, in.Component, b.ConfigFor(in), in.Inputs)
		r := result{Name: in.Name, Component: in.Component, Output: out, Outcome: invoke.Outcome(err)}
		if err != nil {
			r.Output = nil
			r.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", in.Name, err))
		}
		if perr := printJSONLine(r); perr != nil {
			return perr
		}
		if err != nil && (failFast || ctx.Err() != nil) {
			break
		}
	}
	return errors.Join(errs...)
}

func printJSONLine(r result) error {
	if f, ok := r.Output.(interface{ ToMap() map[string]any }); ok {
		r.Output = f.ToMap()
	}
	if err := json.NewEncoder(stdout).Encode(r); err != nil {
		return fmt.Errorf("encode result %s: %w", r.Name, err)
	}
	return nil
}
