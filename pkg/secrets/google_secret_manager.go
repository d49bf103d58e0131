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

package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/andesobis/obis-export/pkg/observability"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "google.golang.org/genproto/googleapis/cloud/secretmanager/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func init() {
	RegisterManager(string(SecretManagerTypeGoogleSecretManager), NewGoogleSecretManager)
}

// Compile-time check to verify implements interface.
var _ SecretManager = (*GoogleSecretManager)(nil)

// GoogleSecretManager implements SecretManager.
type GoogleSecretManager struct {
	client *secretmanager.Client
}

// NewGoogleSecretManager creates a new secret manager for GCP.
func NewGoogleSecretManager(ctx context.Context, _ *Config) (SecretManager, error) {
	client, err := secretmanager.NewClient(ctx, observability.GoogleClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("secretmanager.NewClient: %w", err)
	}

	sm := &GoogleSecretManager{
		client: client,
	}

	return sm, nil
}

// GetSecretValue implements the SecretManager interface. Secret names should be
// of the format:
//
//	projects/my-project/secrets/obis-db-password/versions/123
//
// The latest version is used when no version is given.
func (sm *GoogleSecretManager) GetSecretValue(ctx context.Context, name string) (string, error) {
	if !strings.Contains(name, "/versions/") {
		name = name + "/versions/latest"
	}

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: %v", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("failed to access secret %v: %w", name, err)
	}
	return string(result.Payload.Data), nil
}
