// Package sizecache resolves on-disk sizes of package payloads. Directory
// walks over Cellar trees and app bundles are expensive, so resolved sizes
// are kept in a bounded LRU keyed by path.
package sizecache

import (
	"io/fs"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultEntries = 4096

// Cache memoizes path sizes. Safe for concurrent use.
type Cache struct {
	lru *lru.Cache[string, int64]
}

// New creates a cache holding up to entries paths; entries <= 0 uses a
// default suitable for a full-host inventory.
func New(entries int) (*Cache, error) {
	if entries <= 0 {
		entries = defaultEntries
	}
	c, err := lru.New[string, int64](entries)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Resolve returns the total size in bytes of the file or directory tree
// at path. A missing path resolves to 0 without error so a half-removed
// package does not fail an entire scan.
func (c *Cache) Resolve(path string) (int64, error) {
	if path == "" {
		return 0, nil
	}
	if size, ok := c.lru.Get(path); ok {
		return size, nil
	}
	size, err := diskUsage(path)
	if err != nil {
		return 0, err
	}
	c.lru.Add(path, size)
	return size, nil
}

// Invalidate drops a cached size, used after removals.
func (c *Cache) Invalidate(path string) {
	c.lru.Remove(path)
}

// Len reports how many paths are currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func diskUsage(path string) (int64, error) {
	st, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !st.IsDir() {
		return st.Size(), nil
	}

	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			// Permission problems inside a tree should not zero it out.
			return fs.SkipDir
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
