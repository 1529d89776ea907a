// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file holds BaseContext, the default Context implementation. One
// BaseContext lives for the duration of a production run: commands leave
// their artifacts in its data map, record failures in its error map keyed by
// command name, and register local staging files for removal when the run
// closes. Close removes only those files; the data map stays intact so the
// caller can read the run's results afterwards.
package cor

import (
	"context"
	"log"
	"os"
)

// BaseContext is the shared state of one workflow execution.
type BaseContext struct {
	data      map[string]interface{} // Artifacts and parameters, keyed by parameter name.
	errors    map[string]error       // Failures, keyed by the command that recorded them.
	tempFiles []string               // Local staging files to remove on Close.
	context   context.Context        // The Go context carrying cancellation and the active span.
}

// NewBaseContext creates an empty context ready to run a chain over.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
	}
}

// SetContext replaces the Go context. The chain uses this to run each
// command under its own span.
func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

// GetContext returns the current Go context.
func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes every registered staging file. Defer it where the context is
// created. Removal failures are logged, not surfaced: the run's outcome does
// not depend on local cleanup.
func (c *BaseContext) Close() {
	for _, file := range c.GetTempFiles() {
		err := os.Remove(file)
		if err != nil {
			log.Printf("failed to remove temporary file '%s': %v\n", file, err)
		}
	}
}

// Add stores a value under the given parameter name and returns the context
// for chaining.
func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

// AddTempFile registers a local staging file for removal on Close.
func (c *BaseContext) AddTempFile(file string) {
	c.tempFiles = append(c.tempFiles, file)
}

// GetTempFiles returns the registered staging file paths.
func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

// AddError records a failure under the reporting command's name.
func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

// GetErrors returns every recorded failure keyed by command name.
func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// Get returns the value stored under the parameter name, or nil.
func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

// Remove drops the value stored under the parameter name.
func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

// HasErrors reports whether any command has recorded a failure.
func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
