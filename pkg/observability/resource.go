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

package observability

import (
	"encoding/base64"
	"strings"

	"cloud.google.com/go/compute/metadata"
	"contrib.go.opencensus.io/exporter/stackdriver/monitoredresource"
	"contrib.go.opencensus.io/exporter/stackdriver/monitoredresource/gcp"
	"github.com/google/uuid"
)

var _ monitoredresource.Interface = (*monitoredResource)(nil)

// monitoredResource is the Cloud Monitoring resource the export metrics are
// written against.
type monitoredResource struct {
	typ    string
	labels map[string]string
}

func (r *monitoredResource) MonitoredResource() (string, map[string]string) {
	return r.typ, r.labels
}

// resourceEnv is what is known about the runtime environment.
type resourceEnv struct {
	// detected is the GCE or GKE resource found through the metadata server,
	// or nil.
	detected monitoredresource.Interface

	// region returns the Cloud Run region, e.g. "projects/123/regions/us-east1".
	region func() (string, error)
}

// runtimeEnv inspects the metadata server, which only answers on Google Cloud.
func runtimeEnv() resourceEnv {
	env := resourceEnv{detected: gcpAutodetect()}
	if metadata.OnGCE() {
		env.region = func() (string, error) {
			return metadata.Get("instance/region")
		}
	}
	return env
}

// gcpAutodetect unwraps gcp.Autodetect so that "not on GCP" is a nil
// interface.
func gcpAutodetect() monitoredresource.Interface {
	if d := gcp.Autodetect(); d != nil {
		return d
	}
	return nil
}

// newMonitoredResource picks cloud_run_revision when the Cloud Run contract
// variables are set, keeps a detected gke_container as is, and otherwise
// describes the process as a generic_task.
func newMonitoredResource(c *StackdriverConfig, env resourceEnv) *monitoredResource {
	var detectedType string
	detected := map[string]string{}
	if env.detected != nil {
		detectedType, detected = env.detected.MonitoredResource()
	}
	project := firstNonEmpty(detected["project_id"], c.ProjectID)

	if c.Service != "" && c.Revision != "" {
		location := c.Location
		if env.region != nil {
			if r, err := env.region(); err == nil && r != "" {
				location = r[strings.LastIndex(r, "/")+1:]
			}
		}
		return &monitoredResource{
			typ: "cloud_run_revision",
			labels: map[string]string{
				"project_id":         project,
				"service_name":       c.Service,
				"revision_name":      c.Revision,
				"configuration_name": c.Namespace,
				"location":           location,
			},
		}
	}

	if detectedType == "gke_container" {
		labels := make(map[string]string, len(detected))
		for k, v := range detected {
			labels[k] = v
		}
		labels["project_id"] = project
		return &monitoredResource{typ: detectedType, labels: labels}
	}

	taskID := detected["instance_id"]
	if taskID == "" {
		taskID = base64.StdEncoding.EncodeToString(uuid.NodeID())
	}
	return &monitoredResource{
		typ: "generic_task",
		labels: map[string]string{
			"project_id": project,
			"location":   firstNonEmpty(detected["zone"], detected["location"], c.Location),
			"namespace":  c.Namespace,
			"job":        firstNonEmpty(c.Service, UserAgent),
			"task_id":    taskID,
		},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
