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

	"github.com/andesobis/obis-export/internal/builder"
	obisdb "github.com/andesobis/obis-export/internal/obis/database"
	"github.com/andesobis/obis-export/internal/serverenv"
	surveydb "github.com/andesobis/obis-export/internal/survey/database"
	"github.com/andesobis/obis-export/pkg/logging"
)

// Report is the outcome of Run.
type Report struct {
	Build  *builder.Result `json:"build,omitempty"`
	Export *Summary        `json:"export"`
}

// Run rebuilds the OBIS tables for the configured cruise when building is
// enabled, then writes the archive. The whole run is bounded by
// config.Timeout.
func Run(ctx context.Context, config *Config, env *serverenv.ServerEnv) (*Report, error) {
	logger := logging.FromContext(ctx).Named("export.Run")

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	if env.Database() == nil {
		return nil, fmt.Errorf("export requires the OBIS database")
	}
	if env.Blobstore() == nil {
		return nil, fmt.Errorf("export requires a blobstore")
	}
	obis := obisdb.New(env.Database())

	report := &Report{}
	if config.Build {
		if env.SurveyDatabase() == nil {
			return nil, fmt.Errorf("building events requires the survey database")
		}

		result, err := builder.New(surveydb.New(env.SurveyDatabase()), obis).Build(ctx, config.Mission)
		if err != nil {
			return nil, fmt.Errorf("failed to build events: %w", err)
		}
		report.Build = result
	} else {
		logger.Debugw("skipping event build")
	}

	summary, err := NewExporter(obis, env.Blobstore(), config).Run(ctx)
	if err != nil {
		return nil, err
	}
	report.Export = summary
	return report, nil
}
