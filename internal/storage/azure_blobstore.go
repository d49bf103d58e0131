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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/andesobis/obis-export/pkg/logging"
	"github.com/andesobis/obis-export/pkg/observability"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/Azure/go-autorest/autorest/adal"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*AzureBlobstore)(nil)

// AzureBlobstore implements the Blob interface and provides the ability
// write files to Azure Blob Storage. The parent is the container name.
type AzureBlobstore struct {
	serviceURL *azblob.ServiceURL
}

// NewAzureBlobstore creates a storage client, suitable for use with
// serverenv.ServerEnv. The account key is used when set, otherwise the VM's
// managed identity.
func NewAzureBlobstore(ctx context.Context, cfg *Config) (Blobstore, error) {
	accountName := cfg.AzureAccountName
	if accountName == "" {
		return nil, fmt.Errorf("missing AZURE_STORAGE_ACCOUNT")
	}

	primaryURLRaw := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	primaryURL, err := url.Parse(primaryURLRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %v: %w", primaryURLRaw, err)
	}

	var credential azblob.Credential
	if key := cfg.AzureAccountKey; key != "" {
		credential, err = azblob.NewSharedKeyCredential(accountName, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
	} else {
		credential, err = newMSITokenCredential(ctx, primaryURLRaw)
		if err != nil {
			return nil, err
		}
	}

	p := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	serviceURL := azblob.NewServiceURL(*primaryURL, p)

	return &AzureBlobstore{
		serviceURL: &serviceURL,
	}, nil
}

// newMSITokenCredential builds a token credential that refreshes itself from
// the managed identity endpoint two minutes before expiry.
func newMSITokenCredential(ctx context.Context, resource string) (azblob.Credential, error) {
	logger := logging.FromContext(ctx).Named("storage.azure")

	msiEndpoint, err := adal.GetMSIVMEndpoint()
	if err != nil {
		return nil, fmt.Errorf("failed to get MSI endpoint: %w", err)
	}

	spt, err := adal.NewServicePrincipalTokenFromMSI(msiEndpoint, resource)
	if err != nil {
		return nil, fmt.Errorf("failed to get service principal token from msi %v: %w", msiEndpoint, err)
	}

	refresher := func(credential azblob.TokenCredential) time.Duration {
		if err := spt.Refresh(); err != nil {
			logger.Errorw("failed to refresh access token", "error", err)
			_ = stats.RecordWithTags(ctx, []tag.Mutator{observability.ResultError("REFRESH_FAILED")}, mAzureTokenErrors.M(1))
			return 0
		}

		token := spt.Token()
		credential.SetToken(token.AccessToken)

		exp := token.Expires().UTC().Sub(time.Now().UTC().Add(2 * time.Minute))
		if exp <= 0 {
			_ = stats.RecordWithTags(ctx, []tag.Mutator{observability.ResultError("TOKEN_EXPIRED")}, mAzureTokenErrors.M(1))
			return 0
		}
		return exp
	}

	return azblob.NewTokenCredential("", refresher), nil
}

// CreateObject uploads the blob. Block blobs are committed in one call, so a
// failed upload leaves any previous blob untouched.
func (s *AzureBlobstore) CreateObject(ctx context.Context, container, name string, contents []byte, contentType string) error {
	blobURL := s.serviceURL.NewContainerURL(container).NewBlockBlobURL(name)
	headers := azblob.BlobHTTPHeaders{
		CacheControl: "no-cache, max-age=0",
		ContentType:  contentType,
	}
	if _, err := azblob.UploadBufferToBlockBlob(ctx, contents, blobURL, azblob.UploadToBlockBlobOptions{
		BlobHTTPHeaders: headers,
	}); err != nil {
		return fmt.Errorf("storage.CreateObject: %w", err)
	}
	return nil
}

// DeleteObject deletes the blob, ignoring blobs that are already gone.
func (s *AzureBlobstore) DeleteObject(ctx context.Context, container, name string) error {
	blobURL := s.serviceURL.NewContainerURL(container).NewBlockBlobURL(name)
	if _, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{}); err != nil {
		if isAzureNotFound(err) {
			return nil
		}
		return fmt.Errorf("storage.DeleteObject: %w", err)
	}
	return nil
}

// GetObject returns the contents for the given object. If the object does not
// exist, it returns ErrNotFound.
func (s *AzureBlobstore) GetObject(ctx context.Context, container, name string) ([]byte, error) {
	blobURL := s.serviceURL.NewContainerURL(container).NewBlockBlobURL(name)
	dr, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if isAzureNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download object: %w", err)
	}

	body := dr.Body(azblob.RetryReaderOptions{MaxRetryRequests: 5})
	defer body.Close()

	var b bytes.Buffer
	if _, err := io.Copy(&b, body); err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return b.Bytes(), nil
}

func isAzureNotFound(err error) bool {
	var serr azblob.StorageError
	return errors.As(err, &serr) && serr.ServiceCode() == azblob.ServiceCodeBlobNotFound
}
