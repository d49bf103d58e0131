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

// Package flag lets command line flags override environment configuration.
package flag

import (
	"flag"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// EnvFlags binds command line flags to environment variable names. Only flags
// that were set on the command line override the environment.
type EnvFlags struct {
	fs   *flag.FlagSet
	envs map[string]string
}

// NewEnvFlags wraps the flag set.
func NewEnvFlags(fs *flag.FlagSet) *EnvFlags {
	return &EnvFlags{
		fs:   fs,
		envs: make(map[string]string),
	}
}

// String defines a string flag overriding env.
func (e *EnvFlags) String(name, env, value, usage string) {
	e.fs.String(name, value, fmt.Sprintf("%s (overrides $%s)", usage, env))
	e.envs[name] = env
}

// Bool defines a boolean flag overriding env.
func (e *EnvFlags) Bool(name, env string, value bool, usage string) {
	e.fs.Bool(name, value, fmt.Sprintf("%s (overrides $%s)", usage, env))
	e.envs[name] = env
}

// Overrides returns the environment variables set through flags. It must be
// called after the flag set is parsed.
func (e *EnvFlags) Overrides() map[string]string {
	overrides := make(map[string]string)
	e.fs.Visit(func(f *flag.Flag) {
		if env, ok := e.envs[f.Name]; ok {
			overrides[env] = f.Value.String()
		}
	})
	return overrides
}

// Lookuper resolves flag overrides first and then l.
func (e *EnvFlags) Lookuper(l envconfig.Lookuper) envconfig.Lookuper {
	return envconfig.MultiLookuper(envconfig.MapLookuper(e.Overrides()), l)
}
