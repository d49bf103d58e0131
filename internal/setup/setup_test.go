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

package setup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andesobis/obis-export/internal/project"
	"github.com/andesobis/obis-export/internal/storage"
	"github.com/andesobis/obis-export/pkg/observability"
	"github.com/andesobis/obis-export/pkg/secrets"

	"github.com/sethvargo/go-envconfig"
)

var (
	_ SecretManagerConfigProvider         = (*testConfig)(nil)
	_ BlobstoreConfigProvider             = (*testConfig)(nil)
	_ ObservabilityExporterConfigProvider = (*testConfig)(nil)
)

type testConfig struct {
	SecretManager secrets.Config
	Storage       storage.Config
	Observability observability.Config

	Token string `env:"EXPORT_TOKEN"`
}

func (c *testConfig) SecretManagerConfig() *secrets.Config {
	return &c.SecretManager
}

func (c *testConfig) BlobstoreConfig() *storage.Config {
	return &c.Storage
}

func (c *testConfig) ObservabilityExporterConfig() *observability.Config {
	return &c.Observability
}

func TestSetupWith(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "export-token"), []byte("s3cr3t\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	lookuper := envconfig.MapLookuper(map[string]string{
		"SECRET_MANAGER":         "FILESYSTEM",
		"SECRET_FILESYSTEM_ROOT": root,
		"BLOBSTORE":              "MEMORY",
		"OBSERVABILITY_EXPORTER": "NOOP",
		"EXPORT_TOKEN":           "secret://export-token",
	})

	var config testConfig
	env, err := SetupWith(ctx, &config, lookuper)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := env.Close(ctx); err != nil {
			t.Error(err)
		}
	})

	if got, want := config.Token, "s3cr3t"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}
	if env.SecretManager() == nil {
		t.Errorf("expected secret manager to be set")
	}
	if env.Blobstore() == nil {
		t.Errorf("expected blobstore to be set")
	}
	if env.ObservabilityExporter() == nil {
		t.Errorf("expected exporter to be set")
	}
	if env.Database() != nil || env.SurveyDatabase() != nil {
		t.Errorf("expected no database connections")
	}
}

func TestSetupWith_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		env  map[string]string
		err  string
	}{
		{
			name: "unknown_secret_manager",
			env: map[string]string{
				"SECRET_MANAGER": "NOPE",
			},
			err: "unable to connect to secret manager",
		},
		{
			name: "missing_secret",
			env: map[string]string{
				"SECRET_MANAGER":         "FILESYSTEM",
				"SECRET_FILESYSTEM_ROOT": "/does/not/exist",
				"EXPORT_TOKEN":           "secret://export-token",
			},
			err: "error loading environment variables",
		},
		{
			name: "unknown_blobstore",
			env: map[string]string{
				"BLOBSTORE": "TAPE",
			},
			err: "unable to connect to storage system",
		},
		{
			name: "unknown_exporter",
			env: map[string]string{
				"OBSERVABILITY_EXPORTER": "CARRIER_PIGEON",
			},
			err: "unable to create observability provider",
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := project.TestContext(t)

			var config testConfig
			_, err := SetupWith(ctx, &config, envconfig.MapLookuper(tc.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.err) {
				t.Errorf("expected %q to contain %q", err, tc.err)
			}
		})
	}
}
