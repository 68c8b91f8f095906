// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package posting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//
//	credential/<accountID>        -> Credential JSON
//	user/<userID>/<provider>      -> accountID
//
// The user index allows one linked account per (user, provider),
// matching the OAuth link flow.
const (
	credentialPrefix = "credential/"
	userPrefix       = "user/"
)

// StoreConfig configures the embedded credential store.
type StoreConfig struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultStoreConfig returns production defaults for a store at path.
func DefaultStoreConfig(path string) StoreConfig {
	return StoreConfig{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryStoreConfig returns a configuration for tests: in-memory,
// no sync, data lost on close.
func InMemoryStoreConfig() StoreConfig {
	return StoreConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore is the embedded CredentialStore. Safe for concurrent
// use; BadgerDB transactions provide the isolation.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens the credential database. Creates the
// directory if it doesn't exist. Caller must Close() when done.
func OpenBadgerStore(cfg StoreConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent credential store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create credential store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func credentialKey(accountID string) []byte {
	return []byte(credentialPrefix + accountID)
}

func userKey(userID, provider string) []byte {
	return []byte(userPrefix + userID + "/" + provider)
}

// Get implements CredentialStore.
func (s *BadgerStore) Get(ctx context.Context, accountID string) (*Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cred Credential
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(credentialKey(accountID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cred)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load credential %s: %w", accountID, err)
	}
	return &cred, nil
}

// GetByUser implements CredentialStore.
func (s *BadgerStore) GetByUser(ctx context.Context, userID, provider string) (*Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var accountID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID, provider))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			accountID = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user index %s/%s: %w", userID, provider, err)
	}
	return s.Get(ctx, accountID)
}

// Put implements CredentialStore.
func (s *BadgerStore) Put(ctx context.Context, cred *Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cred.AccountID == "" {
		return errors.New("credential account id is required")
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(credentialKey(cred.AccountID), data); err != nil {
			return err
		}
		if cred.UserID != "" && cred.Provider != "" {
			return txn.Set(userKey(cred.UserID, cred.Provider), []byte(cred.AccountID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store credential %s: %w", cred.AccountID, err)
	}
	return nil
}

// Delete implements CredentialStore.
func (s *BadgerStore) Delete(ctx context.Context, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cred, err := s.Get(ctx, accountID)
	if errors.Is(err, ErrCredentialNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(credentialKey(accountID)); err != nil {
			return err
		}
		if cred.UserID != "" && cred.Provider != "" {
			return txn.Delete(userKey(cred.UserID, cred.Provider))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete credential %s: %w", accountID, err)
	}
	return nil
}

var _ CredentialStore = (*BadgerStore)(nil)
