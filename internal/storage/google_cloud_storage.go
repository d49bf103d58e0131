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
	"io"

	"github.com/andesobis/obis-export/pkg/observability"

	"cloud.google.com/go/storage"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*GoogleCloudStorage)(nil)

// GoogleCloudStorage implements the Blob interface and provides the ability
// write files to Google Cloud Storage. The parent is the bucket name.
type GoogleCloudStorage struct {
	client *storage.Client
}

// NewGoogleCloudStorage creates a Google Cloud Storage Client, suitable
// for use with serverenv.ServerEnv.
func NewGoogleCloudStorage(ctx context.Context) (Blobstore, error) {
	client, err := storage.NewClient(ctx, observability.GoogleClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GoogleCloudStorage{client}, nil
}

// CreateObject creates a new cloud storage object or overwrites an existing
// one. GCS only makes an object visible once the writer is closed
// successfully, so a failed upload leaves the previous version in place.
func (gcs *GoogleCloudStorage) CreateObject(ctx context.Context, bucket, name string, contents []byte, contentType string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wc := gcs.client.Bucket(bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "no-cache, max-age=0"

	if _, err := wc.Write(contents); err != nil {
		// Cancelling the context aborts the upload.
		cancel()
		_ = wc.Close()
		return fmt.Errorf("storage.Writer.Write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("storage.Writer.Close: %w", err)
	}
	return nil
}

// DeleteObject deletes a cloud storage object, returns nil if the object was
// successfully deleted, or of the object doesn't exist.
func (gcs *GoogleCloudStorage) DeleteObject(ctx context.Context, bucket, name string) error {
	if err := gcs.client.Bucket(bucket).Object(name).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("storage.DeleteObject: %w", err)
	}
	return nil
}

// GetObject returns the contents for the given object. If the object does not
// exist, it returns ErrNotFound.
func (gcs *GoogleCloudStorage) GetObject(ctx context.Context, bucket, name string) ([]byte, error) {
	r, err := gcs.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to create object reader: %w", err)
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to download bytes: %w", err)
	}
	return b, nil
}
