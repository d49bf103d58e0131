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
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	vaultapi "github.com/hashicorp/vault/api"
)

func init() {
	RegisterManager(string(SecretManagerTypeHashiCorpVault), NewHashiCorpVault)
}

// Compile-time check to verify implements interface.
var _ SecretManager = (*HashiCorpVault)(nil)

// HashiCorpVault implements SecretManager for a Vault KV v2 secrets engine.
type HashiCorpVault struct {
	client *vaultapi.Client
}

// NewHashiCorpVault creates a Vault client. The address and token come from
// the standard VAULT_ADDR and VAULT_TOKEN environment variables.
func NewHashiCorpVault(_ context.Context, _ *Config) (SecretManager, error) {
	client, err := vaultapi.NewClient(nil)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewHashiCorpVault: client: %w", err)
	}

	return &HashiCorpVault{
		client: client,
	}, nil
}

// GetSecretValue implements the SecretManager interface. Secrets are specified
// as the path to the secret in Vault with an optional version query, and the
// value is read from the "value" key of the KV v2 "data" block:
//
//	$ vault kv put secret/obis-db value="abc123"
//	OBIS_DB_PASSWORD=secret:///secret/data/obis-db?version=2
//
// The latest version is read when no version is given.
func (kv *HashiCorpVault) GetSecretValue(ctx context.Context, name string) (string, error) {
	u, err := url.Parse(name)
	if err != nil {
		return "", fmt.Errorf("failed to parse name: %w", err)
	}

	var data map[string][]string
	if version := u.Query().Get("version"); version != "" {
		data = map[string][]string{"version": {version}}
	}

	secret, err := kv.client.Logical().ReadWithDataWithContext(ctx, u.Path, data)
	if err != nil {
		return "", fmt.Errorf("failed to access secret: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret %v has no data", u.Path)
	}

	inner, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("secret %v is missing the 'data' map", u.Path)
	}

	valueRaw, ok := inner["value"]
	if !ok {
		return "", fmt.Errorf("secret %v is missing the 'value' key", u.Path)
	}
	return vaultValueString(valueRaw)
}

// vaultValueString coerces a decoded Vault value into a string.
func vaultValueString(v interface{}) (string, error) {
	switch typ := v.(type) {
	case string:
		return typ, nil
	case []byte:
		return string(typ), nil
	case bool:
		return strconv.FormatBool(typ), nil
	case json.Number:
		return typ.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", typ), nil
	default:
		return "", fmt.Errorf("secret value is of unsupported type %T", typ)
	}
}
