package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/componenttest"
	"github.com/alicebob/miniredis/v2"
)

func build(t *testing.T, name string, cfg map[string]any) component.Component {
	t.Helper()
	c := componenttest.Build(t, componenttest.Find(t, New().Components(), name), cfg)
	t.Cleanup(func() { _ = c.(*redisOp).Close() })
	return c
}

func TestRedisSetGetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := map[string]any{"address": mr.Addr(), "prefix": "test:"}
	set := build(t, "cache.redis_set", cfg)
	get := build(t, "cache.redis_get", cfg)
	del := build(t, "cache.redis_delete", cfg)
	ctx := context.Background()

	if _, err := componenttest.Run(ctx, set, map[string]any{"key": "greeting", "value": "hello"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := mr.Get("test:greeting"); v != "hello" {
		t.Errorf("stored value = %q", v)
	}

	out, err := componenttest.Run(ctx, get, map[string]any{"key": "greeting"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m := out.(map[string]any); m["found"] != true || m["value"] != "hello" {
		t.Errorf("get = %v", m)
	}

	out, err = componenttest.Run(ctx, del, map[string]any{"key": "greeting"})
	if err != nil || out.(map[string]any)["deleted"] != true {
		t.Fatalf("delete = %v, %v", out, err)
	}
	out, _ = componenttest.Run(ctx, get, map[string]any{"key": "greeting"})
	if out.(map[string]any)["found"] != false {
		t.Errorf("get after delete = %v", out)
	}
}

func TestRedisSetTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	set := build(t, "cache.redis_set", map[string]any{"address": mr.Addr(), "default_ttl": "1h"})
	ctx := context.Background()

	if _, err := componenttest.Run(ctx, set, map[string]any{"key": "a", "value": "1"}); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("a"); ttl != time.Hour {
		t.Errorf("default ttl = %v", ttl)
	}
	if _, err := componenttest.Run(ctx, set, map[string]any{"key": "b", "value": "2", "ttl_seconds": 30}); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("b"); ttl != 30*time.Second {
		t.Errorf("input ttl = %v", ttl)
	}
	mr.FastForward(31 * time.Second)
	if mr.Exists("b") {
		t.Error("key b should have expired")
	}

	if _, err := componenttest.Run(ctx, set, map[string]any{"key": "c", "value": "3", "ttl_seconds": -1}); !errors.Is(err, component.ErrInvalidInput) {
		t.Errorf("expected InvalidInput for negative ttl, got %v", err)
	}
}

func TestRedisEmptyKey(t *testing.T) {
	get := build(t, "cache.redis_get", map[string]any{"address": "127.0.0.1:1"})
	if _, err := componenttest.Run(context.Background(), get, map[string]any{"key": "  "}); !errors.Is(err, component.ErrInvalidInput) {
		t.Errorf("expected InvalidInput, got %v", err)
	}
	if get.(*redisOp).client.Loaded() {
		t.Error("client connected for invalid input")
	}
}

func TestRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	get := build(t, "cache.redis_get", map[string]any{"address": addr, "timeout": "1s"})
	_, err := componenttest.Run(context.Background(), get, map[string]any{"key": "x"})
	if !errors.Is(err, component.ErrExternalFailure) {
		t.Errorf("expected ExternalFailure, got %v", err)
	}
}
