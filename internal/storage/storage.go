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

// Package storage is an interface over blob storage. Archives are handed to a
// Blobstore once they are fully built in memory.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is the error returned when an object is not found.
var ErrNotFound = errors.New("storage object not found")

// ContentTypeZip is the content type of Darwin Core Archives.
const ContentTypeZip = "application/zip"

// Blobstore defines the minimum interface for a blob storage system.
type Blobstore interface {
	// CreateObject creates or overwrites an object in the storage system.
	// Implementations must not leave a partially written object visible at
	// parent/name when they return an error.
	CreateObject(ctx context.Context, parent, name string, contents []byte, contentType string) error

	// DeleteObject deletes an object or does nothing if the object doesn't
	// exist.
	DeleteObject(ctx context.Context, parent, name string) error

	// GetObject fetches the object's contents. It returns ErrNotFound when the
	// object does not exist.
	GetObject(ctx context.Context, parent, name string) ([]byte, error)
}

// BlobstoreFor returns the blob store for the given type, or an error if one
// does not exist. Uploads through the returned store are measured.
func BlobstoreFor(ctx context.Context, cfg *Config) (Blobstore, error) {
	var (
		b   Blobstore
		err error
	)

	switch cfg.Type {
	case BlobstoreTypeAWSS3:
		b, err = NewAWSS3(ctx)
	case BlobstoreTypeAzureBlobStorage:
		b, err = NewAzureBlobstore(ctx, cfg)
	case BlobstoreTypeGoogleCloudStorage:
		b, err = NewGoogleCloudStorage(ctx)
	case BlobstoreTypeFilesystem:
		b, err = NewFilesystemStorage(ctx)
	case BlobstoreTypeMemory:
		b, err = NewMemory(ctx)
	case BlobstoreTypeNoop:
		b, err = NewNoopBlobstore(ctx)
	default:
		return nil, fmt.Errorf("unknown blob store: %v", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return instrument(b, cfg.Type), nil
}
