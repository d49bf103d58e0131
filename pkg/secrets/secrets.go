// Copyright 2020 Google LLC
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

// Package secrets defines a minimum abstract interface for a secret manager.
// Allows for a different implementation to be bound within the ServerEnv.
//
// Database passwords and cloud credentials are referenced from the
// environment as secret://<name> and resolved through the configured backend
// when the configuration is loaded.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrSecretNotFound is returned by backends that can tell a missing secret
// apart from other failures.
var ErrSecretNotFound = errors.New("secret not found")

// SecretManager defines the minimum shared functionality for a secret manager
// used by this application.
type SecretManager interface {
	GetSecretValue(ctx context.Context, name string) (string, error)
}

// SecretManagerFunc is a func that returns a secret manager or error.
type SecretManagerFunc func(ctx context.Context, cfg *Config) (SecretManager, error)

// managers is the list of registered secret managers.
var (
	managers     = make(map[string]SecretManagerFunc)
	managersLock sync.RWMutex
)

// RegisterManager registers a new secret manager with the given name. If a
// manager is already registered with the given name, it panics. Managers
// register themselves in init().
func RegisterManager(name string, fn SecretManagerFunc) {
	managersLock.Lock()
	defer managersLock.Unlock()

	if _, ok := managers[name]; ok {
		panic(fmt.Sprintf("secret manager %q is already registered", name))
	}
	managers[name] = fn
}

// RegisteredManagers returns the list of the names of the registered secret
// managers.
func RegisteredManagers() []string {
	managersLock.RLock()
	defer managersLock.RUnlock()

	list := make([]string, 0, len(managers))
	for k := range managers {
		list = append(list, k)
	}
	sort.Strings(list)
	return list
}

// SecretManagerFor returns the secret manager with the given name, wrapped in
// the JSON expander and TTL cache when configured.
func SecretManagerFor(ctx context.Context, cfg *Config) (SecretManager, error) {
	managersLock.RLock()
	defer managersLock.RUnlock()

	name := string(cfg.Type)
	fn, ok := managers[name]
	if !ok {
		return nil, fmt.Errorf("unknown or uncompiled secret manager %q (registered: %s)",
			name, strings.Join(registeredNamesLocked(), ", "))
	}

	sm, err := fn(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.SecretExpansion {
		sm = WrapJSONExpander(sm)
	}

	if cfg.SecretCacheTTL > 0 {
		sm, err = WrapCacher(sm, cfg.SecretCacheTTL)
		if err != nil {
			return nil, err
		}
	}

	return sm, nil
}

func registeredNamesLocked() []string {
	list := make([]string, 0, len(managers))
	for k := range managers {
		list = append(list, k)
	}
	sort.Strings(list)
	return list
}
