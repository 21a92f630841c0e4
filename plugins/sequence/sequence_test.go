package sequence

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/componenttest"
)

func stream(t *testing.T, name string, raw map[string]any) component.Stream {
	t.Helper()
	c := componenttest.Build(t, componenttest.Find(t, New().Components(), name), nil)
	out, err := componenttest.Run(context.Background(), c, raw)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, ok := out.(component.Stream)
	if !ok {
		t.Fatalf("output is %T, want component.Stream", out)
	}
	return s
}

func TestRange(t *testing.T) {
	tests := []struct {
		raw  map[string]any
		want []any
	}{
		{map[string]any{"start": 0, "stop": 5, "step": 2}, []any{int64(0), int64(2), int64(4)}},
		{map[string]any{"stop": 3}, []any{int64(0), int64(1), int64(2)}},
		{map[string]any{"start": 3, "stop": 0, "step": -1}, []any{int64(3), int64(2), int64(1)}},
		{map[string]any{"start": 5, "stop": 5}, nil},
	}
	for _, tt := range tests {
		got, err := component.Collect(context.Background(), stream(t, "sequence.range", tt.raw), 0)
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("range %v = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestRangeNearIntegerLimits(t *testing.T) {
	tests := []struct {
		raw  map[string]any
		want []any
	}{
		{map[string]any{"start": int64(math.MaxInt64 - 1), "stop": int64(math.MaxInt64), "step": 2}, []any{int64(math.MaxInt64 - 1)}},
		{map[string]any{"start": int64(math.MaxInt64 - 5), "stop": int64(math.MaxInt64), "step": 3}, []any{int64(math.MaxInt64 - 5), int64(math.MaxInt64 - 2)}},
		{map[string]any{"start": int64(math.MinInt64 + 1), "stop": int64(math.MinInt64), "step": -2}, []any{int64(math.MinInt64 + 1)}},
		{map[string]any{"start": int64(math.MinInt64), "stop": int64(math.MaxInt64), "step": int64(math.MaxInt64)}, []any{int64(math.MinInt64), int64(-1), int64(math.MaxInt64 - 1)}},
		{map[string]any{"start": int64(math.MaxInt64), "stop": int64(math.MinInt64), "step": int64(math.MinInt64)}, []any{int64(math.MaxInt64), int64(-1)}},
	}
	for _, tt := range tests {
		got, err := component.Collect(context.Background(), stream(t, "sequence.range", tt.raw), 10)
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("range %v = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestRangeIsLazyAndStopsEarly(t *testing.T) {
	s := stream(t, "sequence.range", map[string]any{"stop": 1 << 40})
	var seen []int64
	for v, err := range s {
		if err != nil {
			t.Fatal(err)
		}
		seen = append(seen, v.(int64))
		if len(seen) == 3 {
			break
		}
	}
	if !reflect.DeepEqual(seen, []int64{0, 1, 2}) {
		t.Errorf("seen = %v", seen)
	}
}

func TestRangeRestartsPerInvocation(t *testing.T) {
	raw := map[string]any{"start": 0, "stop": 5, "step": 2}
	a, _ := component.Collect(context.Background(), stream(t, "sequence.range", raw), 0)
	b, _ := component.Collect(context.Background(), stream(t, "sequence.range", raw), 0)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("invocations differ: %v vs %v", a, b)
	}
}

func TestRangeZeroStep(t *testing.T) {
	c := componenttest.Build(t, componenttest.Find(t, New().Components(), "sequence.range"), nil)
	_, err := componenttest.Run(context.Background(), c, map[string]any{"stop": 5, "step": 0})
	if !errors.Is(err, component.ErrInvalidInput) {
		t.Errorf("expected InvalidInput, got %v", err)
	}
}

func TestRangeCancelled(t *testing.T) {
	c := componenttest.Build(t, componenttest.Find(t, New().Components(), "sequence.range"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	out, err := componenttest.Run(ctx, c, map[string]any{"stop": 100})
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	_, err = component.Collect(context.Background(), out.(component.Stream), 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIterate(t *testing.T) {
	got, err := component.Collect(context.Background(), stream(t, "sequence.iterate", map[string]any{"items": `["a", 1, true]`}), 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []any{"a", 1.0}) {
		t.Errorf("got %v", got)
	}
}
