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

package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/andesobis/obis-export/pkg/database"
	"github.com/andesobis/obis-export/pkg/logging"

	"golang.org/x/time/rate"
)

// HandleHealthz returns a handler that pings the database. Pings are limited
// to one per second; requests in between report the last outcome.
func HandleHealthz(db *database.DB) http.Handler {
	return handleHealthz(db, rate.NewLimiter(rate.Every(time.Second), 1))
}

func handleHealthz(db *database.DB, limiter *rate.Limiter) http.Handler {
	var lock sync.Mutex
	var lastErr error

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx).Named("server.HandleHealthz")

		lock.Lock()
		if db != nil && limiter.Allow() {
			lastErr = db.Ping(ctx)
			if lastErr != nil {
				logger.Errorw("failed to ping database", "error", lastErr)
			}
		}
		err := lastErr
		lock.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"database unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
