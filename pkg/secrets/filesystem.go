// Copyright 2021 Google LLC
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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	RegisterManager(string(SecretManagerTypeFilesystem), NewFilesystem)
}

// Compile-time check to verify implements interface.
var _ SecretManager = (*Filesystem)(nil)

// Filesystem is a local filesystem based secret manager, primarily used for
// local development and mounted secret volumes.
type Filesystem struct {
	root string
}

// NewFilesystem creates a new filesystem-based secret manager.
func NewFilesystem(_ context.Context, cfg *Config) (SecretManager, error) {
	return &Filesystem{
		root: cfg.FilesystemRoot,
	}, nil
}

// GetSecretValue returns the contents of the file at name, relative to the
// configured root, with trailing newlines removed.
func (sm *Filesystem) GetSecretValue(_ context.Context, name string) (string, error) {
	pth := filepath.Join(sm.root, filepath.Clean("/"+name))
	b, err := os.ReadFile(pth)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
