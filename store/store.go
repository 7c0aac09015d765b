// Package store is the persisted key/value surface for world-scoped and per-player
// campaign state. Values are JSON documents; typed reads substitute a caller-supplied
// default when a key is absent or holds a value of the wrong type
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
)

// ErrNotFound is returned by Get when the key has never been written
var ErrNotFound = errors.New("store: key not found")

// Store persists raw JSON values by key
// Implementations are safe for concurrent use
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, raw string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// lookup returns the parsed value for key, or false when absent, unreadable or corrupt
func lookup(ctx context.Context, s Store, key string) (gjson.Result, bool) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("store read failed", "component", "store", "key", key, "error", err)
		}
		return gjson.Result{}, false
	}
	if !gjson.Valid(raw) {
		slog.Warn("store value corrupt, using default", "component", "store", "key", key)
		return gjson.Result{}, false
	}
	return gjson.Parse(raw), true
}

// Int reads an integer; absence, non-numeric and fractional values yield def
func Int(ctx context.Context, s Store, key string, def int) int {
	r, ok := lookup(ctx, s, key)
	if !ok || r.Type != gjson.Number {
		return def
	}
	if float64(r.Int()) != r.Float() {
		return def
	}
	return int(r.Int())
}

// Bool reads a boolean; anything but a JSON true/false yields def
func Bool(ctx context.Context, s Store, key string, def bool) bool {
	r, ok := lookup(ctx, s, key)
	if !ok || !r.IsBool() {
		return def
	}
	return r.Bool()
}

// String reads a string; anything but a JSON string yields def
func String(ctx context.Context, s Store, key, def string) string {
	r, ok := lookup(ctx, s, key)
	if !ok || r.Type != gjson.String {
		return def
	}
	return r.Str
}

// Object reads a JSON object; callers pull fields with their own defaults
func Object(ctx context.Context, s Store, key string) (gjson.Result, bool) {
	r, ok := lookup(ctx, s, key)
	if !ok || !r.IsObject() {
		return gjson.Result{}, false
	}
	return r, true
}

// Put encodes v as JSON and writes it under key
func Put(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	return nil
}

// Add increments an integer counter, treating a missing or corrupt value as zero
func Add(ctx context.Context, s Store, key string, delta int) (int, error) {
	v := Int(ctx, s, key, 0) + delta
	return v, Put(ctx, s, key, v)
}
