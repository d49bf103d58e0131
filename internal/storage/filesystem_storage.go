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

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*FilesystemStorage)(nil)

// FilesystemStorage implements Blobstore and provides the ability to write
// files to the local filesystem. The parent is a directory.
type FilesystemStorage struct{}

// NewFilesystemStorage creates a Blobstore compatible storage for the
// filesystem.
func NewFilesystemStorage(_ context.Context) (Blobstore, error) {
	return &FilesystemStorage{}, nil
}

// CreateObject writes contents to a temporary file in the target directory
// and renames it over parent/name, so readers never observe a partial file.
// The directory must already exist.
func (s *FilesystemStorage) CreateObject(_ context.Context, parent, name string, contents []byte, _ string) (retErr error) {
	pth := filepath.Join(parent, name)

	f, err := os.CreateTemp(filepath.Dir(pth), "."+filepath.Base(pth)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()

	defer func() {
		if retErr != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(contents); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, pth); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, pth, err)
	}
	return nil
}

// DeleteObject deletes an object. It returns nil if the object was deleted or
// if the object no longer exists.
func (s *FilesystemStorage) DeleteObject(_ context.Context, parent, name string) error {
	pth := filepath.Join(parent, name)
	if err := os.Remove(pth); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetObject returns the contents for the given object. If the object does not
// exist, it returns ErrNotFound.
func (s *FilesystemStorage) GetObject(_ context.Context, parent, name string) ([]byte, error) {
	pth := filepath.Join(parent, name)
	b, err := os.ReadFile(pth)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return b, nil
}
