// Package cache provides Redis-backed key/value components.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
	"github.com/redis/go-redis/v9"
)

// Plugin registers the cache.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the cache plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "cache",
			PluginVersion:     "1.0.0",
			PluginDescription: "Redis get, set and delete",
		},
	}
}

// Components returns the cache.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		{Descriptor: getDescriptor, Factory: newRedisOp(getDescriptor, opGet)},
		{Descriptor: setDescriptor, Factory: newRedisOp(setDescriptor, opSet)},
		{Descriptor: deleteDescriptor, Factory: newRedisOp(deleteDescriptor, opDelete)},
	}
}

// redisClient is the subset of go-redis used by the cache components.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

func redisConfig() []component.ConfigField {
	return []component.ConfigField{
		{Key: "address", Env: "REDIS_ADDR", Default: "localhost:6379"},
		{Key: "password", Secret: true, Env: "REDIS_PASSWORD"},
		{Key: "db", Default: 0},
		{Key: "prefix", Description: "Prepended to every key"},
		{Key: "timeout", Default: "5s"},
	}
}

var getDescriptor = component.Descriptor{
	Name:        "cache.redis_get",
	Description: "Reads a string value from Redis",
	Group:       "cache",
	Inputs:      []component.InputDef{{Name: "key", Type: component.TypeText}},
	Output:      component.TypeJSON,
	Config:      redisConfig(),
}

var setDescriptor = component.Descriptor{
	Name:        "cache.redis_set",
	Description: "Stores a string value in Redis with an optional TTL",
	Group:       "cache",
	Inputs: []component.InputDef{
		{Name: "key", Type: component.TypeText},
		{Name: "value", Type: component.TypeText},
		{Name: "ttl_seconds", Type: component.TypeInt, Optional: true, Description: "Overrides default_ttl; 0 keeps the key forever"},
	},
	Output:      component.TypeJSON,
	Config:      append(redisConfig(), component.ConfigField{Key: "default_ttl", Default: "0s"}),
	SideEffects: "writes a Redis key",
}

var deleteDescriptor = component.Descriptor{
	Name:        "cache.redis_delete",
	Description: "Deletes a key from Redis",
	Group:       "cache",
	Inputs:      []component.InputDef{{Name: "key", Type: component.TypeText}},
	Output:      component.TypeJSON,
	Config:      redisConfig(),
	SideEffects: "deletes a Redis key",
}

type op int

const (
	opGet op = iota
	opSet
	opDelete
)

type redisOp struct {
	component.Base
	op     op
	client *component.Lazy[redisClient]
}

func newRedisOp(d component.Descriptor, o op) component.Factory {
	return func(cfg component.Config) (component.Component, error) {
		return &redisOp{
			Base: component.NewBase(d, cfg),
			op:   o,
			client: component.NewLazy(func(ctx context.Context) (redisClient, error) {
				c := redis.NewClient(&redis.Options{
					Addr:     cfg.String("address"),
					Password: cfg.String("password"),
					DB:       cfg.Int("db", 0),
				})
				if err := c.Ping(ctx).Err(); err != nil {
					_ = c.Close()
					return nil, fmt.Errorf("ping %s: %w", cfg.String("address"), err)
				}
				return c, nil
			}),
		}, nil
	}
}

// Close releases the Redis connection pool.
func (r *redisOp) Close() error { return r.client.Close() }

func (r *redisOp) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := r.Require("address"); err != nil {
		return nil, err
	}
	key := in.Text("key")
	if strings.TrimSpace(key) == "" {
		return nil, r.InvalidInput("key", "must not be empty")
	}
	key = r.Config().String("prefix") + key

	var ttl time.Duration
	if r.op == opSet {
		ttl = r.Config().Duration("default_ttl", 0)
		if in.Has("ttl_seconds") {
			secs := in.Int("ttl_seconds", 0)
			if secs < 0 {
				return nil, r.InvalidInput("ttl_seconds", "must not be negative")
			}
			ttl = time.Duration(secs) * time.Second
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.Config().Duration("timeout", 5*time.Second))
	defer cancel()
	client, err := r.client.Get(ctx)
	if err != nil {
		return nil, r.External("connect", err)
	}

	switch r.op {
	case opGet:
		val, err := client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return map[string]any{"found": false, "value": nil}, nil
		}
		if err != nil {
			return nil, r.External("GET", err)
		}
		return map[string]any{"found": true, "value": val}, nil
	case opSet:
		if err := client.Set(ctx, key, in.Text("value"), ttl).Err(); err != nil {
			return nil, r.External("SET", err)
		}
		return map[string]any{"stored": true, "ttl_seconds": int64(ttl / time.Second)}, nil
	default:
		n, err := client.Del(ctx, key).Result()
		if err != nil {
			return nil, r.External("DEL", err)
		}
		return map[string]any{"deleted": n > 0}, nil
	}
}
