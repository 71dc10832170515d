// Package store persists budget state best-effort. The in-memory ledger is
// the source of truth for a session's lifetime; the store exists so
// dashboards and scorecards survive restarts, and its failures never affect
// ledger correctness.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("store: not found")

// Collections used by the arbiter service.
const (
	CollectionSessions   = "session_budgets"
	CollectionScorecards = "agent_scorecards"
	CollectionAlerts     = "budget_alerts"
)

// Store is a keyed document store. Values are marshaled as JSON.
type Store interface {
	Put(ctx context.Context, collection, key string, value any) error
	Get(ctx context.Context, collection, key string, out any) error
	// List unmarshals every value in a collection through fn, which receives
	// the key and raw JSON document.
	List(ctx context.Context, collection string, fn func(key string, raw []byte) error) error
	Close() error
}

// NopStore discards writes and finds nothing. Used when persistence is
// disabled and in tests.
type NopStore struct{}

func (NopStore) Put(context.Context, string, string, any) error { return nil }

func (NopStore) Get(ctx context.Context, collection, key string, out any) error {
	return ErrNotFound
}

func (NopStore) List(context.Context, string, func(string, []byte) error) error { return nil }

func (NopStore) Close() error { return nil }
