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

import "context"

// Compile-time check to verify implements interface.
var _ Blobstore = (*NoopBlobstore)(nil)

// NoopBlobstore is a blobstore that does nothing. It is useful for dry runs
// that only validate the source data.
type NoopBlobstore struct{}

// NewNoopBlobstore creates a blobstore that discards everything.
func NewNoopBlobstore(_ context.Context) (Blobstore, error) {
	return &NoopBlobstore{}, nil
}

func (s *NoopBlobstore) CreateObject(_ context.Context, _, _ string, _ []byte, _ string) error {
	return nil
}

func (s *NoopBlobstore) DeleteObject(_ context.Context, _, _ string) error {
	return nil
}

func (s *NoopBlobstore) GetObject(_ context.Context, _, _ string) ([]byte, error) {
	return nil, ErrNotFound
}
