// Copyright 2021 the Exposure Notifications Server authors
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
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RequestIDHeader carries a caller supplied request id.
const RequestIDHeader = "X-Request-ID"

const contextKeyRequestID = contextKey("request_id")

// PopulateRequestID puts a request id on the request context. The caller's
// X-Request-ID header is used when present, otherwise a random UUID.
func PopulateRequestID() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if RequestIDFromContext(ctx) == "" {
				id := r.Header.Get(RequestIDHeader)
				if id == "" {
					u, err := uuid.NewRandom()
					if err != nil {
						http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
						return
					}
					id = u.String()
				}

				ctx = context.WithValue(ctx, contextKeyRequestID, id)
				r = r.Clone(ctx)
			}

			w.Header().Set(RequestIDHeader, RequestIDFromContext(ctx))
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDFromContext returns the request id, or the empty string.
func RequestIDFromContext(ctx context.Context) string {
	t, _ := ctx.Value(contextKeyRequestID).(string)
	return t
}
