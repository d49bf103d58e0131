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

// Package render writes JSON responses for the export server.
package render

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/hashicorp/go-multierror"
)

const (
	okBody      = `{"ok":true}` + "\n"
	failureBody = `{"error":"failed to render response"}` + "\n"
)

// Renderer encodes values into pooled buffers so that an encoding failure
// never leaves a half-written body on the wire.
type Renderer struct {
	pool sync.Pool
}

// NewRenderer returns a ready Renderer.
func NewRenderer() *Renderer {
	r := &Renderer{}
	r.pool.New = func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	}
	return r
}

// ErrorResponse is the body written for a single error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorsResponse is the body written for a *multierror.Error.
type ErrorsResponse struct {
	Errors []string `json:"errors"`
}

// RenderJSON writes data with the given status code. Errors are rendered as
// ErrorResponse or ErrorsResponse. A nil value renders {"ok":true} for 2xx
// codes and the status text as an error otherwise.
func (r *Renderer) RenderJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	switch v := data.(type) {
	case nil:
		if code >= 200 && code < 300 {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(okBody))
			return
		}
		data = &ErrorResponse{Error: http.StatusText(code)}
	case *multierror.Error:
		msgs := make([]string, 0, len(v.Errors))
		for _, err := range v.Errors {
			msgs = append(msgs, err.Error())
		}
		data = &ErrorsResponse{Errors: msgs}
	case error:
		data = &ErrorResponse{Error: v.Error()}
	}

	b := r.pool.Get().(*bytes.Buffer)
	b.Reset()
	defer r.pool.Put(b)

	if err := json.NewEncoder(b).Encode(data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(failureBody))
		return
	}

	w.WriteHeader(code)
	_, _ = b.WriteTo(w)
}
