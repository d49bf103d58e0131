// Copyright 2021 Google LLC
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

package middleware

import (
	"net/http"

	"github.com/andesobis/obis-export/pkg/logging"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PopulateLogger puts a logger carrying the request id and route on the
// request context.
func PopulateLogger(originalLogger *zap.SugaredLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			logger := originalLogger
			if id := RequestIDFromContext(ctx); id != "" {
				logger = logger.With("request_id", id)
			}
			logger = logger.With("method", r.Method, "path", r.URL.Path)

			ctx = logging.WithLogger(ctx, logger)
			next.ServeHTTP(w, r.Clone(ctx))
		})
	}
}
