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

package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andesobis/obis-export/internal/project"
)

func TestResolver(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	sm, err := NewInMemoryFromMap(ctx, map[string]string{
		"obis-db-password":              "hunter2",
		"survey-db-password":            "correct-horse",
		"obis-db-ca":                    "-----BEGIN CERTIFICATE-----",
		"projects/andes/secrets/survey": "survey-nested",
	})
	if err != nil {
		t.Fatal(err)
	}

	tmpdir := filepath.Join(t.TempDir(), "secrets")

	cases := []struct {
		name  string
		dir   string
		key   string
		value string
		exp   string
		err   bool
	}{
		{
			name:  "bad_dir_no_file",
			dir:   "/totally/not/a/valid/dir",
			key:   "OBIS_DB_PASSWORD",
			value: "secret://obis-db-password",
			exp:   "hunter2",
		},
		{
			name:  "to_file",
			dir:   tmpdir,
			key:   "OBIS_DB_SSLROOTCERT",
			value: "secret://obis-db-ca?target=file",
			exp:   tmpdir,
		},
		{
			name:  "not_a_secret",
			key:   "OBIS_DB_HOST",
			value: "obis.internal",
			exp:   "obis.internal",
		},
		{
			name:  "no_exist",
			key:   "OBIS_DB_PASSWORD",
			value: "secret://not-a-secret",
			err:   true,
		},
		{
			name:  "unknown_target",
			key:   "OBIS_DB_PASSWORD",
			value: "secret://obis-db-password?target=env",
			err:   true,
		},
		{
			name:  "nested_name",
			key:   "SURVEY_DB_PASSWORD",
			value: "secret://projects/andes/secrets/survey",
			exp:   "survey-nested",
		},
		{
			name:  "multi",
			key:   "foo",
			value: "secret://obis-db-password,secret://survey-db-password",
			exp:   "hunter2,correct-horse",
		},
		{
			name:  "multi_mixed",
			key:   "foo",
			value: "secret://obis-db-password,plain",
			exp:   "hunter2,plain",
		},
		{
			name:  "multi_missing",
			key:   "foo",
			value: "secret://obis-db-password,secret://not-a-secret,plain",
			err:   true,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			config := &Config{SecretsDir: tc.dir}
			result, err := Resolver(sm, config)(ctx, tc.key, tc.value)
			if (err != nil) != tc.err {
				t.Fatal(err)
			}

			if got, want := result, tc.exp; !strings.HasPrefix(got, want) {
				t.Errorf("expected %v to be prefixed with %v", got, want)
			}
		})
	}
}

func TestResolver_fileContents(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	sm, err := NewInMemoryFromMap(ctx, map[string]string{"ca": "pem-data"})
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "secrets")
	pth, err := Resolver(sm, &Config{SecretsDir: dir})(ctx, "OBIS_DB_SSLROOTCERT", "secret://ca?target=file")
	if err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(pth)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "pem-data"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := stat.Mode().Perm(), os.FileMode(0o700); got != want {
		t.Errorf("expected dir mode %v to be %v", got, want)
	}
}

func TestResolver_nilManager(t *testing.T) {
	t.Parallel()

	if fn := Resolver(nil, &Config{}); fn != nil {
		t.Errorf("expected nil mutator for nil secret manager")
	}
}
