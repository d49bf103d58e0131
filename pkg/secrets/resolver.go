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

package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/andesobis/obis-export/pkg/logging"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"
)

const (
	// SecretPrefix marks an environment value as a reference into the secret
	// manager, e.g. secret://obis-db-password.
	SecretPrefix = "secret://"

	// FileSuffix asks for the secret to be written to a file under SecretsDir
	// and for the file path to be used as the value. TLS material for the
	// database connections is usually referenced this way.
	FileSuffix = "?target=file"

	maxParallelResolves = 4
)

// Resolver returns an envconfig mutator that replaces secret:// references
// with their values. Comma-separated values are resolved element by element.
// It returns nil when sm is nil.
func Resolver(sm SecretManager, config *Config) envconfig.MutatorFunc {
	if sm == nil {
		return nil
	}

	dir := config.SecretsDir
	return func(ctx context.Context, key, value string) (string, error) {
		parts := strings.Split(value, ",")
		if len(parts) == 1 {
			return resolveRef(ctx, sm, dir, key, value)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelResolves)
		for i := range parts {
			i := i
			g.Go(func() error {
				resolved, err := resolveRef(gctx, sm, dir, key, parts[i])
				if err != nil {
					return err
				}
				parts[i] = resolved
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
		return strings.Join(parts, ","), nil
	}
}

// secretRef is a parsed secret:// reference.
type secretRef struct {
	name   string
	toFile bool
}

func parseRef(s string) (*secretRef, bool, error) {
	if !strings.HasPrefix(s, SecretPrefix) {
		return nil, false, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, true, fmt.Errorf("invalid secret reference: %w", err)
	}

	ref := &secretRef{name: u.Host + u.Path}
	if ref.name == "" {
		return nil, true, fmt.Errorf("secret reference %q has no name", s)
	}

	switch target := u.Query().Get("target"); target {
	case "":
	case "file":
		ref.toFile = true
	default:
		return nil, true, fmt.Errorf("unknown secret target %q", target)
	}
	return ref, true, nil
}

func resolveRef(ctx context.Context, sm SecretManager, dir, key, value string) (string, error) {
	ref, ok, err := parseRef(value)
	if !ok {
		return value, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}

	logging.FromContext(ctx).Named("secrets").
		Debugw("resolving secret", "env", key, "to_file", ref.toFile)

	val, err := sm.GetSecretValue(ctx, ref.name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", ref.name, err)
	}
	if !ref.toFile {
		return val, nil
	}

	if err := ensureSecureDir(dir); err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(key + "." + ref.name))
	pth := filepath.Join(dir, hex.EncodeToString(sum[:]))
	if err := os.WriteFile(pth, []byte(val), 0o600); err != nil {
		return "", fmt.Errorf("failed to write secret file for %s: %w", key, err)
	}
	return pth, nil
}

// ensureSecureDir creates dir as 0700, or checks that an existing dir is
// not readable by others.
func ensureSecureDir(dir string) error {
	stat, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create secrets directory %q: %w", dir, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat secrets directory %q: %w", dir, err)
	}

	if perm := stat.Mode().Perm(); perm != 0o700 {
		return fmt.Errorf("secrets directory %q has mode %v, want 0700", dir, perm)
	}
	return nil
}
