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

package observability

import (
	"database/sql"
	"fmt"
	"sync"

	"contrib.go.opencensus.io/integrations/ocsql"
	"go.opencensus.io/plugin/ocgrpc"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
)

// UserAgent identifies this application to Google Cloud APIs.
const UserAgent = "obis-export"

// GoogleClientOptions are passed to every Google Cloud API client. gRPC
// clients report through the ocgrpc client views; HTTP clients ignore the
// dial option.
func GoogleClientOptions() []option.ClientOption {
	return []option.ClientOption{
		option.WithUserAgent(UserAgent),
		option.WithGRPCDialOption(grpc.WithStatsHandler(&ocgrpc.ClientHandler{})),
	}
}

// OCSQLDriverName is the database/sql driver registered by
// InstrumentSQLDriver.
const OCSQLDriverName = "ocsql"

var (
	instrumentSQLOnce sync.Once
	instrumentSQLErr  error
)

// InstrumentSQLDriver registers OCSQLDriverName as the named database/sql
// driver wrapped with OpenCensus traces and stats. Only the first call has an
// effect; later calls return its result.
func InstrumentSQLDriver(name string) error {
	instrumentSQLOnce.Do(func() {
		db, err := sql.Open(name, "")
		if err != nil {
			instrumentSQLErr = fmt.Errorf("failed to find sql driver %q: %w", name, err)
			return
		}
		d := db.Driver()
		if err := db.Close(); err != nil {
			instrumentSQLErr = fmt.Errorf("failed to close sql lookup handle: %w", err)
			return
		}
		sql.Register(OCSQLDriverName, ocsql.Wrap(d, ocsql.WithAllTraceOptions()))
	})
	return instrumentSQLErr
}

func sqlInstrumented() bool {
	for _, d := range sql.Drivers() {
		if d == OCSQLDriverName {
			return true
		}
	}
	return false
}
