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
	"sync"

	"github.com/Azure/azure-sdk-for-go/profiles/latest/keyvault/keyvault"
	"github.com/Azure/azure-sdk-for-go/services/keyvault/auth"
	"github.com/Azure/go-autorest/autorest"
)

func init() {
	RegisterManager(string(SecretManagerTypeAzureKeyVault), NewAzureKeyVault)
}

// Compile-time check to verify implements interface.
var _ SecretManager = (*AzureKeyVault)(nil)

// The authorizer is read from the environment once per process.
var (
	azureAuthorizerOnce sync.Once
	azureAuthorizer     autorest.Authorizer
	azureAuthorizerErr  error
)

// AzureKeyVault implements SecretManager.
type AzureKeyVault struct {
	client *keyvault.BaseClient
}

// NewAzureKeyVault creates a new KeyVault client. Credentials come from the
// standard AZURE_* environment variables.
func NewAzureKeyVault(_ context.Context, _ *Config) (SecretManager, error) {
	azureAuthorizerOnce.Do(func() {
		azureAuthorizer, azureAuthorizerErr = auth.NewAuthorizerFromEnvironment()
	})
	if azureAuthorizerErr != nil {
		return nil, fmt.Errorf("secrets.NewAzureKeyVault: auth: %w", azureAuthorizerErr)
	}

	client := keyvault.New()
	client.Authorizer = azureAuthorizer

	return &AzureKeyVault{
		client: &client,
	}, nil
}

// GetSecretValue implements the SecretManager interface. Secrets are specified
// in the format:
//
//	VAULT_NAME/SECRET_NAME/SECRET_VERSION
//
// If the secret version is omitted, the latest version is used.
func (kv *AzureKeyVault) GetSecretValue(ctx context.Context, name string) (string, error) {
	vaultName, secretName, version, err := parseAzureSecretRef(name)
	if err != nil {
		return "", err
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net", vaultName)
	result, err := kv.client.GetSecret(ctx, vaultURL, secretName, version)
	if err != nil {
		return "", fmt.Errorf("failed to access secret %v: %w", name, err)
	}
	if result.Value == nil {
		return "", fmt.Errorf("found secret %v, but value was nil", name)
	}
	return *result.Value, nil
}

// parseAzureSecretRef splits vault/secret[/version].
func parseAzureSecretRef(name string) (vault, secret, version string, err error) {
	parts := strings.SplitN(name, "/", 3)
	switch len(parts) {
	case 2:
		return parts[0], parts[1], "", nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	default:
		return "", "", "", fmt.Errorf("%v is not a valid secret ref", name)
	}
}
