// Package boltdb persists the user registry and the enabled-flag mirror in a
// single bbolt file. Write transactions are serialized by bbolt, which
// satisfies the registry's single-writer contract.
package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/models"
)

const (
	usersBucket = "users"
	stateBucket = "state"

	enabledKey = "enabled"

	openTimeout = 5 * time.Second
)

// DB is a bbolt-backed implementation of storage.Storage.
type DB struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the bolt file at path.
func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt db %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

// Initialize creates the buckets used by the bot.
func (d *DB) Initialize(ctx context.Context) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{usersBucket, stateBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// AddUser stores a user record keyed by its id. Re-registering an existing
// user keeps the original record.
func (d *DB) AddUser(ctx context.Context, user models.UserRecord) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(usersBucket))
		if b.Get([]byte(user.ID)) != nil {
			return nil
		}
		encoded, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encode user %s: %w", user.ID, err)
		}
		return b.Put([]byte(user.ID), encoded)
	})
}

// HasUser reports whether the id is registered.
func (d *DB) HasUser(ctx context.Context, id string) (bool, error) {
	var found bool
	err := d.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte(usersBucket)).Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

// ListUsers returns all registered users sorted by id.
func (d *DB) ListUsers(ctx context.Context) ([]models.UserRecord, error) {
	var users []models.UserRecord
	err := d.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(usersBucket)).ForEach(func(k, v []byte) error {
			var user models.UserRecord
			if err := json.Unmarshal(v, &user); err != nil {
				return fmt.Errorf("decode user %s: %w", k, err)
			}
			users = append(users, user)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// RemoveUsers deletes the given ids in one write transaction.
func (d *DB) RemoveUsers(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(usersBucket))
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return fmt.Errorf("delete user %s: %w", id, err)
			}
		}
		return nil
	})
}

// SetEnabledMirror persists the last-known enabled value.
func (d *DB) SetEnabledMirror(ctx context.Context, enabled bool) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		value := []byte("false")
		if enabled {
			value = []byte("true")
		}
		return tx.Bucket([]byte(stateBucket)).Put([]byte(enabledKey), value)
	})
}

// EnabledMirror reads the last-known enabled value. ok is false when the
// mirror has never been written.
func (d *DB) EnabledMirror(ctx context.Context) (bool, bool, error) {
	var enabled, ok bool
	err := d.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket([]byte(stateBucket)).Get([]byte(enabledKey))
		if value == nil {
			return nil
		}
		ok = true
		enabled = string(value) == "true"
		return nil
	})
	return enabled, ok, err
}

// Close closes the underlying bolt file.
func (d *DB) Close() error {
	return d.db.Close()
}
