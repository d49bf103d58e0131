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
	"sync"
)

var _ Blobstore = (*Memory)(nil)

// Memory keeps archives in process, grouped by bucket. It backs dry runs and
// tests that read back what the exporter wrote.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*memoryObject
}

type memoryObject struct {
	contents    []byte
	contentType string
}

// NewMemory creates an empty in-memory Blobstore.
func NewMemory(_ context.Context) (Blobstore, error) {
	return &Memory{
		buckets: make(map[string]map[string]*memoryObject),
	}, nil
}

// CreateObject stores a copy of contents under parent/name.
func (s *Memory) CreateObject(_ context.Context, parent, name string, contents []byte, contentType string) error {
	obj := &memoryObject{
		contents:    append([]byte{}, contents...),
		contentType: contentType,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[parent]
	if !ok {
		bucket = make(map[string]*memoryObject)
		s.buckets[parent] = bucket
	}
	bucket[name] = obj
	return nil
}

// DeleteObject removes parent/name. Buckets left empty are dropped.
func (s *Memory) DeleteObject(_ context.Context, parent, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.buckets[parent]
	delete(bucket, name)
	if len(bucket) == 0 {
		delete(s.buckets, parent)
	}
	return nil
}

// GetObject returns a copy of the stored contents, or ErrNotFound.
func (s *Memory) GetObject(_ context.Context, parent, name string) ([]byte, error) {
	obj, err := s.lookup(parent, name)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, obj.contents...), nil
}

// ContentType returns the content type the object was written with.
func (s *Memory) ContentType(parent, name string) (string, error) {
	obj, err := s.lookup(parent, name)
	if err != nil {
		return "", err
	}
	return obj.contentType, nil
}

func (s *Memory) lookup(parent, name string) (*memoryObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.buckets[parent][name]
	if !ok {
		return nil, ErrNotFound
	}
	return obj, nil
}
