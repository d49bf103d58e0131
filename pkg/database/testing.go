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

package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/ory/dockertest"
	"github.com/ory/dockertest/docker"
	"github.com/sethvargo/go-retry"
)

const (
	// templateName is the database every test database is cloned from.
	templateName = "obis-template"

	testUser     = "obis-test"
	testPassword = "obis-test-password"

	// defaultImage can be replaced with $CI_POSTGRES_IMAGE.
	defaultImage = "postgres:13-alpine"

	// containerTTL bounds how long a leaked container survives.
	containerTTL = 180
)

// ApproxTime compares timestamps that went through postgres.
var ApproxTime = cmp.Options{cmpopts.EquateApproxTime(time.Second)}

// TestInstance is a postgres container holding a migrated template database.
// Tests get their own clone of the template through NewDatabase.
type TestInstance struct {
	pool      *dockertest.Pool
	container *dockertest.Resource
	url       *url.URL

	// conn is an admin connection to the template, used to create and drop
	// clones. Postgres can't clone one template concurrently, so every use
	// holds connLock.
	conn     *pgx.Conn
	connLock sync.Mutex

	skipReason string
}

// MustTestInstance is NewTestInstance, exiting the process on error. It is
// meant for TestMain.
func MustTestInstance() *TestInstance {
	i, err := NewTestInstance()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	return i
}

// NewTestInstance starts postgres in Docker and applies every migration set
// to the template database. When database tests can't or shouldn't run, the
// returned instance makes NewDatabase skip the calling test.
func NewTestInstance() (*TestInstance, error) {
	if reason := skipReason(); reason != "" {
		return &TestInstance{skipReason: reason}, nil
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("failed to create docker pool: %w", err)
	}
	if err := pool.Client.Ping(); err != nil {
		return &TestInstance{
			skipReason: fmt.Sprintf("docker is unavailable, skipping database tests: %s", err),
		}, nil
	}

	container, u, err := startPostgres(pool)
	if err != nil {
		return nil, err
	}

	conn, err := waitForPostgres(context.Background(), u)
	if err != nil {
		_ = pool.Purge(container)
		return nil, err
	}

	for _, set := range MigrationSets {
		if err := set.MigrateUp(u.String()); err != nil {
			conn.Close(context.Background())
			_ = pool.Purge(container)
			return nil, fmt.Errorf("failed to prepare template: %w", err)
		}
	}

	return &TestInstance{
		pool:      pool,
		container: container,
		url:       u,
		conn:      conn,
	}, nil
}

// skipReason reports why database tests are disabled, if they are.
func skipReason() string {
	// testing.Short panics before flags are parsed.
	if !flag.Parsed() {
		flag.Parse()
	}
	if testing.Short() {
		return "-short is set, skipping database tests"
	}
	if skip, _ := strconv.ParseBool(os.Getenv("SKIP_DATABASE_TESTS")); skip {
		return "SKIP_DATABASE_TESTS is set, skipping database tests"
	}
	return ""
}

func startPostgres(pool *dockertest.Pool) (*dockertest.Resource, *url.URL, error) {
	image := os.Getenv("CI_POSTGRES_IMAGE")
	if image == "" {
		image = defaultImage
	}
	repository, tag, ok := strings.Cut(image, ":")
	if !ok {
		return nil, nil, fmt.Errorf("postgres image %q has no tag", image)
	}

	container, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: repository,
		Tag:        tag,
		Env: []string{
			"LANG=C",
			"POSTGRES_DB=" + templateName,
			"POSTGRES_USER=" + testUser,
			"POSTGRES_PASSWORD=" + testPassword,
		},
	}, func(c *docker.HostConfig) {
		c.AutoRemove = true
		c.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	if err := container.Expire(containerTTL); err != nil {
		_ = pool.Purge(container)
		return nil, nil, fmt.Errorf("failed to set container expiry: %w", err)
	}

	return container, &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(testUser, testPassword),
		Host:     container.GetHostPort("5432/tcp"),
		Path:     templateName,
		RawQuery: "sslmode=disable",
	}, nil
}

// waitForPostgres connects to the template, retrying while the container
// boots.
func waitForPostgres(ctx context.Context, u *url.URL) (*pgx.Conn, error) {
	var conn *pgx.Conn
	b := retry.WithMaxRetries(30, retry.NewConstant(time.Second))
	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		c, err := pgx.Connect(ctx, u.String())
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := c.Ping(ctx); err != nil {
			c.Close(ctx)
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	}); err != nil {
		return nil, fmt.Errorf("postgres did not become ready: %w", err)
	}
	return conn, nil
}

// MustClose is Close, exiting the process on error.
func (i *TestInstance) MustClose() error {
	if err := i.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	return nil
}

// Close drops the admin connection and removes the container.
func (i *TestInstance) Close() error {
	if i.skipReason != "" {
		return nil
	}

	connErr := i.conn.Close(context.Background())
	if err := i.pool.Purge(i.container); err != nil {
		return fmt.Errorf("failed to purge postgres container: %w", err)
	}
	if connErr != nil {
		return fmt.Errorf("failed to close template connection: %w", connErr)
	}
	return nil
}

// NewDatabase clones the template into a fresh database for tb. The database
// is dropped when tb finishes. The returned Config points at the clone.
func (i *TestInstance) NewDatabase(tb testing.TB) (*DB, *Config) {
	tb.Helper()

	if i.skipReason != "" {
		tb.Skip(i.skipReason)
	}

	name, err := i.clone()
	if err != nil {
		tb.Fatal(err)
	}

	host, port, err := net.SplitHostPort(i.url.Host)
	if err != nil {
		tb.Fatalf("failed to split host and port %q: %s", i.url.Host, err)
	}
	config := &Config{
		Name:     name,
		User:     testUser,
		Password: testPassword,
		Host:     host,
		Port:     port,
		SSLMode:  "disable",
	}

	ctx := context.Background()
	pool, err := pgxpool.Connect(ctx, config.ConnectionURL())
	if err != nil {
		tb.Fatalf("failed to connect to %q: %s", name, err)
	}
	db := &DB{Pool: pool}

	tb.Cleanup(func() {
		// Connections must be gone before the database can be dropped.
		db.Close(ctx)

		i.connLock.Lock()
		defer i.connLock.Unlock()

		q := fmt.Sprintf(`DROP DATABASE IF EXISTS "%s" WITH (FORCE)`, name)
		if _, err := i.conn.Exec(ctx, q); err != nil {
			tb.Errorf("failed to drop %q: %s", name, err)
		}
	})

	return db, config
}

// clone creates a randomly named copy of the template.
func (i *TestInstance) clone() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate database name: %w", err)
	}
	name := "obis_test_" + hex.EncodeToString(b)

	i.connLock.Lock()
	defer i.connLock.Unlock()

	// Identifiers can't be bound as parameters; both names are generated here.
	q := fmt.Sprintf(`CREATE DATABASE "%s" WITH TEMPLATE "%s"`, name, templateName)
	if _, err := i.conn.Exec(context.Background(), q); err != nil {
		return "", fmt.Errorf("failed to clone template: %w", err)
	}
	return name, nil
}
