// Copyright 2020 the Exposure Notifications Server authors
// Copyright 2024 the OBIS Export authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache implements a small in-memory cache with per-item expiry. It
// sits in front of secret managers so repeated config resolution does not
// fan out to the remote store.
package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidDuration is returned when the expiry is negative.
var ErrInvalidDuration = errors.New("expireAfter duration cannot be negative")

const initialSize = 16

// Func is a lookup function invoked on a cache miss.
type Func[T any] func() (T, error)

// Cache is a TTL cache keyed by string.
type Cache[T any] struct {
	data        map[string]item[T]
	expireAfter time.Duration
	mu          sync.RWMutex
	now         func() time.Time
}

type item[T any] struct {
	object    T
	expiresAt time.Time
}

// New creates a new in memory cache.
func New[T any](expireAfter time.Duration) (*Cache[T], error) {
	if expireAfter < 0 {
		return nil, ErrInvalidDuration
	}

	return &Cache[T]{
		data:        make(map[string]item[T], initialSize),
		expireAfter: expireAfter,
		now:         time.Now,
	}, nil
}

// Size returns the number of items in the cache, expired or not.
func (c *Cache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Lookup returns the non-expired value at name. The bool reports whether
// there was a hit.
func (c *Cache[T]) Lookup(name string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(name)
}

// Set stores the value at name.
func (c *Cache[T]) Set(name string, object T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(name, object)
}

// WriteThruLookup checks the cache for the value associated with name, and if
// not found or expired, invokes primaryLookup and stores its result. Errors
// from primaryLookup are not cached.
func (c *Cache[T]) WriteThruLookup(name string, primaryLookup Func[T]) (T, error) {
	c.mu.RLock()
	val, hit := c.lookup(name)
	c.mu.RUnlock()
	if hit {
		return val, nil
	}

	// Escalate to the write lock and check again; another goroutine may have
	// filled the entry in the meantime.
	c.mu.Lock()
	defer c.mu.Unlock()
	if val, hit := c.lookup(name); hit {
		return val, nil
	}

	newData, err := primaryLookup()
	if err != nil {
		var zero T
		return zero, err
	}

	c.set(name, newData)
	return newData, nil
}

// lookup is not thread-safe; callers must hold at least the read lock.
func (c *Cache[T]) lookup(name string) (T, bool) {
	if item, ok := c.data[name]; ok && c.now().Before(item.expiresAt) {
		return item.object, true
	}
	var zero T
	return zero, false
}

// set is not thread-safe; callers must hold the write lock.
func (c *Cache[T]) set(name string, object T) {
	c.data[name] = item[T]{
		object:    object,
		expiresAt: c.now().Add(c.expireAfter),
	}
}
