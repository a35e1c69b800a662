// Package cache stores encoded decode output in an embedded BadgerDB so that
// repeated conversions of the same input skip decoding.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/paulmatencio/s3c/gLog"
)

const (
	// Ref: https://godoc.org/github.com/dgraph-io/badger#DB.RunValueLogGC
	badgerDiscardRatio = 0.5
	// Default BadgerDB GC interval
	badgerGCInterval = 10 * time.Minute

	pngNamespace = "png"
)

// Cache is a BadgerDB backed store of PNG output keyed by Key.
type Cache struct {
	db         *badger.DB
	ttl        time.Duration
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Open opens or creates the cache in dir. An empty dir keeps the cache in memory.
// Entries expire after ttl; zero keeps them forever.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0774); err != nil {
		return nil, err
	}
	opts.Logger = nil //  disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	c := &Cache{db: db, ttl: ttl}
	c.ctx, c.cancelFunc = context.WithCancel(context.Background())
	if dir != "" {
		go c.runGC()
	}
	return c, nil
}

// Key derives the cache key of input decoded with variant, a string describing
// every option that changes the output.
func Key(input []byte, variant string) []byte {
	h := sha256.New()
	h.Write(input)
	h.Write([]byte{0})
	h.Write([]byte(variant))
	return []byte(hex.EncodeToString(h.Sum(nil)))
}

// Get returns the value stored under key. ok is false on a miss.
func (c *Cache) Get(key []byte) (value []byte, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(namespaceKey(pngNamespace, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key, with the cache TTL if one is configured.
func (c *Cache) Set(key, value []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(namespaceKey(pngNamespace, key), value)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes key.
func (c *Cache) Delete(key []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(namespaceKey(pngNamespace, key))
	})
}

// Len counts the live entries.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := namespaceKey(pngNamespace, nil)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close stops garbage collection and closes the database.
func (c *Cache) Close() error {
	c.cancelFunc()
	return c.db.Close()
}

// runGC triggers value log garbage collection until Close. It should be run in a goroutine.
func (c *Cache) runGC() {
	ticker := time.NewTicker(badgerGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// ErrNoRewrite only means nothing was collected
			if err := c.db.RunValueLogGC(badgerDiscardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				gLog.Error.Printf("failed to GC cache: %v", err)
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// namespaceKey returns a composite key used for lookup and storage for a
// given namespace and key.
func namespaceKey(namespace string, key []byte) []byte {
	prefix := []byte(namespace + "/")
	return append(prefix, key...)
}
