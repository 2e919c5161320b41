package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// KV is the key-scoped JSON document store the learning engine persists through.
type KV interface {
	// Get returns the stored document, or nil when the key is absent.
	Get(ctx context.Context, key string) (json.RawMessage, error)

	// Set replaces the document stored under key.
	Set(ctx context.Context, key string, value json.RawMessage) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Update atomically reads the current document (nil when absent), passes it
	// to fn and stores the result. A nil result leaves the key untouched.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// UpdateFunc transforms the current document into its replacement.
type UpdateFunc func(current json.RawMessage) (json.RawMessage, error)

// Keys names the documents that belong to one learner.
type Keys struct {
	Learner string
}

// Observations holds the capped session history and the derived profile.
func (k Keys) Observations() string { return "learner:" + k.Learner + ":observations" }

// Progress holds assessments, bonus points and earned badges.
func (k Keys) Progress() string { return "learner:" + k.Learner + ":progress" }

// Tempo holds the seeded speed multiplier for the rhythm activity.
func (k Keys) Tempo() string { return "learner:" + k.Learner + ":tempo" }

// All returns every key owned by the learner.
func (k Keys) All() []string {
	return []string{k.Observations(), k.Progress(), k.Tempo()}
}

// sqlKV implements KV on the kv_entries table.
type sqlKV struct {
	store *Store
}

func (kv *sqlKV) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return kv.get(ctx, kv.store.drv, key, false)
}

func (kv *sqlKV) get(ctx context.Context, q dialect.ExecQuerier, key string, lock bool) (json.RawMessage, error) {
	sel := kv.store.builder().
		Select("value").
		From(entsql.Table(KVEntriesTable.Name)).
		Where(entsql.EQ("entry_key", key))
	if lock && kv.store.dialect == dialect.Postgres {
		sel.ForUpdate()
	}
	query, args := sel.Query()

	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var value string
	if err := rows.Scan(&value); err != nil {
		return nil, fmt.Errorf("scan %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

func (kv *sqlKV) Set(ctx context.Context, key string, value json.RawMessage) error {
	return kv.set(ctx, kv.store.drv, key, value)
}

func (kv *sqlKV) set(ctx context.Context, q dialect.ExecQuerier, key string, value json.RawMessage) error {
	query, args := kv.store.builder().
		Insert(KVEntriesTable.Name).
		Columns("entry_key", "value", "updated_at").
		Values(key, string(value), time.Now().UTC().UnixMilli()).
		OnConflict(entsql.ConflictColumns("entry_key"), entsql.ResolveWithNewValues()).
		Query()
	if err := q.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (kv *sqlKV) Delete(ctx context.Context, key string) error {
	query, args := kv.store.builder().
		Delete(KVEntriesTable.Name).
		Where(entsql.EQ("entry_key", key)).
		Query()
	if err := kv.store.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (kv *sqlKV) Update(ctx context.Context, key string, fn UpdateFunc) (err error) {
	kv.store.kvMu.Lock()
	defer kv.store.kvMu.Unlock()

	tx, err := kv.store.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin update %s: %w", key, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	current, err := kv.get(ctx, tx, key, true)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next != nil {
		if err = kv.set(ctx, tx, key, next); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update %s: %w", key, err)
	}
	return nil
}

// MemoryKV is an in-process KV for tests and throwaway runs.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]json.RawMessage)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRaw(m.data[key]), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = cloneRaw(value)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(cloneRaw(m.data[key]))
	if err != nil {
		return err
	}
	if next != nil {
		m.data[key] = cloneRaw(next)
	}
	return nil
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}
