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

// Package serverenv defines common parameters for the sever environment.
package serverenv

import (
	"context"
	"fmt"

	"github.com/andesobis/obis-export/internal/storage"
	"github.com/andesobis/obis-export/pkg/database"
	"github.com/andesobis/obis-export/pkg/observability"
	"github.com/andesobis/obis-export/pkg/secrets"
)

// ServerEnv represents latent environment configuration for servers in this
// application.
type ServerEnv struct {
	blobstore             storage.Blobstore
	database              *database.DB
	surveyDatabase        *database.DB
	observabilityExporter observability.Exporter
	secretManager         secrets.SecretManager
}

// Option defines function types to modify the ServerEnv on creation.
type Option func(*ServerEnv) *ServerEnv

// New creates a new ServerEnv with the requested options.
func New(ctx context.Context, opts ...Option) *ServerEnv {
	env := &ServerEnv{}

	for _, f := range opts {
		env = f(env)
	}

	return env
}

// WithBlobStorage creates an Option to install a specific Blobstore to use.
func WithBlobStorage(sto storage.Blobstore) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.blobstore = sto
		return s
	}
}

// WithDatabase attaches the OBIS database to the environment.
func WithDatabase(db *database.DB) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.database = db
		return s
	}
}

// WithSurveyDatabase attaches the upstream survey database to the
// environment.
func WithSurveyDatabase(db *database.DB) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.surveyDatabase = db
		return s
	}
}

// WithObservabilityExporter creates an Option to install a specific
// observability exporter system.
func WithObservabilityExporter(oe observability.Exporter) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.observabilityExporter = oe
		return s
	}
}

// WithSecretManager creates an Option to install a specific secret manager to
// use.
func WithSecretManager(sm secrets.SecretManager) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.secretManager = sm
		return s
	}
}

func (s *ServerEnv) Blobstore() storage.Blobstore {
	return s.blobstore
}

// Database returns the OBIS database.
func (s *ServerEnv) Database() *database.DB {
	return s.database
}

// SurveyDatabase returns the upstream survey database, or nil if the binary
// was not configured to read it.
func (s *ServerEnv) SurveyDatabase() *database.DB {
	return s.surveyDatabase
}

func (s *ServerEnv) ObservabilityExporter() observability.Exporter {
	return s.observabilityExporter
}

func (s *ServerEnv) SecretManager() secrets.SecretManager {
	return s.secretManager
}

// Close shuts down the server env, closing database connections and flushing
// metrics.
func (s *ServerEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		s.database.Close(ctx)
	}

	if s.surveyDatabase != nil {
		s.surveyDatabase.Close(ctx)
	}

	if s.observabilityExporter != nil {
		if err := s.observabilityExporter.Close(); err != nil {
			return fmt.Errorf("failed to close observability exporter: %w", err)
		}
	}

	return nil
}
