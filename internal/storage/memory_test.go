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

package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/andesobis/obis-export/internal/project"

	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	blobstore, err := NewMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mem := blobstore.(*Memory)

	contents := []byte("archive")
	if err := mem.CreateObject(ctx, "exports", "obis-dwca.zip", contents, ContentTypeZip); err != nil {
		t.Fatal(err)
	}
	contents[0] = 'X'

	got, err := mem.GetObject(ctx, "exports", "obis-dwca.zip")
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte("archive"); !bytes.Equal(got, want) {
		t.Errorf("expected %q to be %q", got, want)
	}
	got[0] = 'Y'
	if again, _ := mem.GetObject(ctx, "exports", "obis-dwca.zip"); again[0] != 'a' {
		t.Errorf("expected stored contents to be unaffected by readers, got %q", again)
	}

	if ct, err := mem.ContentType("exports", "obis-dwca.zip"); err != nil || ct != ContentTypeZip {
		t.Errorf("expected content type %q, got %q (%v)", ContentTypeZip, ct, err)
	}

	if _, err := mem.GetObject(ctx, "staging", "obis-dwca.zip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected %v to be %v", err, ErrNotFound)
	}

	if err := mem.DeleteObject(ctx, "exports", "obis-dwca.zip"); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.GetObject(ctx, "exports", "obis-dwca.zip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected %v to be %v", err, ErrNotFound)
	}
	if _, err := mem.ContentType("exports", "obis-dwca.zip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected %v to be %v", err, ErrNotFound)
	}
	if err := mem.DeleteObject(ctx, "exports", "obis-dwca.zip"); err != nil {
		t.Errorf("expected deleting a missing object to succeed, got %v", err)
	}
}

func TestBlobstoreFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		typ  BlobstoreType
		err  bool
	}{
		{name: "filesystem", typ: BlobstoreTypeFilesystem},
		{name: "memory", typ: BlobstoreTypeMemory},
		{name: "noop", typ: BlobstoreTypeNoop},
		{name: "azure_missing_account", typ: BlobstoreTypeAzureBlobStorage, err: true},
		{name: "unknown", typ: "PANDA", err: true},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := project.TestContext(t)
			b, err := BlobstoreFor(ctx, &Config{Type: tc.typ})
			if (err != nil) != tc.err {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil {
				return
			}
			if _, ok := b.(*instrumented); !ok {
				t.Errorf("expected %T to be instrumented", b)
			}
		})
	}
}

type failingBlobstore struct {
	NoopBlobstore
}

func (failingBlobstore) CreateObject(context.Context, string, string, []byte, string) error {
	return errors.New("bucket is read-only")
}

func TestInstrumented_CreateObject(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	if err := view.Register(uploadBytesView); err != nil {
		t.Fatal(err)
	}

	mem, err := NewMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b := instrument(mem, "TEST_MEMORY")
	if err := b.CreateObject(ctx, "exports", "obis-dwca.zip", make([]byte, 512), ContentTypeZip); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.GetObject(ctx, "exports", "obis-dwca.zip"); err != nil {
		t.Errorf("expected the wrapped store to hold the object: %v", err)
	}

	rows, err := view.RetrieveData(uploadBytesView.Name)
	if err != nil {
		t.Fatal(err)
	}
	want := tag.Tag{Key: backendTagKey, Value: "TEST_MEMORY"}
	var found bool
	for _, row := range rows {
		for _, tg := range row.Tags {
			if tg != want {
				continue
			}
			found = true
			if got := row.Data.(*view.LastValueData).Value; got != 512 {
				t.Errorf("expected %v bytes to be 512", got)
			}
		}
	}
	if !found {
		t.Errorf("expected a row tagged %v in %v", want, rows)
	}

	failing := instrument(&failingBlobstore{}, "TEST_FAILING")
	if err := failing.CreateObject(ctx, "exports", "obis-dwca.zip", nil, ContentTypeZip); err == nil {
		t.Errorf("expected the wrapped error to be returned")
	}
}
