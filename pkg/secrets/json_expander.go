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
	"strings"
)

// Compile-time check to verify implements interface.
var _ SecretManager = (*JSONExpander)(nil)

// JSONExpander is a SecretManager that can address keys inside JSON-valued
// secrets, such as a single credentials secret holding both the OBIS database
// user and password.
type JSONExpander struct {
	sm SecretManager
}

// WrapJSONExpander wraps an existing SecretManager with json-expansion logic.
func WrapJSONExpander(sm SecretManager) SecretManager {
	return &JSONExpander{
		sm: sm,
	}
}

// GetSecretValue implements the SecretManager interface. If the secret name
// contains a period, the part before the first period names the secret and the
// remaining parts are a path into its JSON value. For example, with
// obisdb = {"user":"obis","password":"abc"}, the name "obisdb.password"
// resolves to abc.
func (sm *JSONExpander) GetSecretValue(ctx context.Context, name string) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) == 1 {
		return sm.sm.GetSecretValue(ctx, name)
	}
	secretName, path := parts[0], parts[1:]

	raw, err := sm.sm.GetSecretValue(ctx, secretName)
	if err != nil {
		return "", err
	}

	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", secretName, err)
	}

	for i, p := range path {
		v, ok := m[p]
		if !ok {
			return "", fmt.Errorf("missing key %q in secret %q", p, secretName)
		}

		if i == len(path)-1 {
			s, ok := v.(string)
			if !ok {
				return "", fmt.Errorf("key %q in secret %q is not a string", p, secretName)
			}
			return s, nil
		}

		m, ok = v.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("key %q in secret %q is not an object", p, secretName)
		}
	}

	return "", fmt.Errorf("empty path for secret %q", secretName)
}
