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

package export

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/andesobis/obis-export/internal/middleware"
	"github.com/andesobis/obis-export/internal/serverenv"
	"github.com/andesobis/obis-export/pkg/logging"
	"github.com/andesobis/obis-export/pkg/render"
	"github.com/andesobis/obis-export/pkg/server"

	"github.com/gorilla/mux"
)

// NewServer makes a Server.
func NewServer(config *Config, env *serverenv.ServerEnv) (*Server, error) {
	// Validate config.
	if env.Blobstore() == nil {
		return nil, fmt.Errorf("export.NewServer requires Blobstore present in the ServerEnv")
	}
	if env.Database() == nil {
		return nil, fmt.Errorf("export.NewServer requires Database present in the ServerEnv")
	}
	if config.Build && env.SurveyDatabase() == nil {
		return nil, fmt.Errorf("export.NewServer requires SurveyDatabase present in the ServerEnv when EXPORT_BUILD is set")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Server{
		config: config,
		env:    env,
		h:      render.NewRenderer(),
		run: func(ctx context.Context) (*Report, error) {
			return Run(ctx, config, env)
		},
	}, nil
}

// Server triggers exports over HTTP. Only one export runs at a time.
type Server struct {
	config *Config
	env    *serverenv.ServerEnv
	h      *render.Renderer

	lock sync.Mutex
	run  func(ctx context.Context) (*Report, error)
}

// Routes defines and returns the routes for this server.
func (s *Server) Routes(ctx context.Context) *mux.Router {
	logger := logging.FromContext(ctx).Named("export")

	r := mux.NewRouter()
	r.Use(middleware.Recovery())
	r.Use(middleware.PopulateRequestID())
	r.Use(middleware.PopulateLogger(logger))

	r.Handle("/healthz", server.HandleHealthz(s.env.Database())).Methods(http.MethodGet)

	maintenance := middleware.ProcessMaintenance(s.config)
	r.Handle("/export", maintenance(s.handleExport())).Methods(http.MethodPost)

	return r
}

func (s *Server) handleExport() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx).Named("export.handleExport")

		if !s.lock.TryLock() {
			logger.Warnw("export already running")
			s.h.RenderJSON(w, http.StatusConflict, fmt.Errorf("an export is already running"))
			return
		}
		defer s.lock.Unlock()

		report, err := s.run(ctx)
		if err != nil {
			logger.Errorw("export failed", "error", err)
			s.h.RenderJSON(w, http.StatusInternalServerError, err)
			return
		}

		s.h.RenderJSON(w, http.StatusOK, report)
	})
}
