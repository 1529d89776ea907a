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

// This file defines the contracts of the chain engine: Context carries a
// run's state, Command is one production step, and Chain sequences commands.
// Everything the workflows compose is expressed against these interfaces.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the parameter names the chain pipes between steps.
const (
	// CtxIn holds a command's primary input. The chain fills it with the
	// previous command's output before each step runs.
	CtxIn = "__IN__"
	// CtxOut is where a command leaves its primary output for the chain to
	// pipe forward.
	CtxOut = "__OUT__"
)

// Context is the shared state of one workflow run: the artifacts produced so
// far, the failures recorded so far, and the staging files to clean up when
// the run ends.
type Context interface {
	// SetContext replaces the run's Go context, which carries cancellation
	// and the active trace span.
	SetContext(context context.Context)

	// GetContext returns the run's Go context.
	GetContext() context.Context

	// Add stores a value under a parameter name and returns the Context for
	// chaining. This is how commands hand artifacts to one another.
	Add(key string, value interface{}) Context

	// AddError records a failure, conventionally keyed by the name of the
	// command that hit it.
	AddError(key string, err error)

	// GetErrors returns every recorded failure.
	GetErrors() map[string]error

	// Get returns the value stored under a parameter name, or nil.
	Get(key string) interface{}

	// Remove drops a stored value.
	Remove(key string)

	// HasErrors reports whether any failure has been recorded.
	HasErrors() bool

	// AddTempFile registers a local staging file for cleanup.
	AddTempFile(file string)

	// GetTempFiles returns the registered staging file paths.
	GetTempFiles() []string

	// Close removes the registered staging files. Defer it where the run
	// starts.
	Close()
}

// Executable is anything with a single execution entry point over a run's
// Context.
type Executable interface {
	// Execute reads inputs from the Context and writes results back to it.
	Execute(context Context)
}

// Command is one step of a production workflow: atomic, safe to run
// concurrently with other runs, and observable through its own tracer and
// counters.
type Command interface {
	Executable

	// GetName returns the command's name, used in spans and error keys.
	GetName() string

	// GetInputParam names the Context parameter the command reads.
	GetInputParam() string

	// GetOutputParam names the Context parameter the command writes.
	GetOutputParam() string

	// IsExecutable reports whether the Context currently holds what the
	// command needs. The chain skips commands that report false.
	IsExecutable(context Context) bool

	// GetTracer returns the command's tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's meter.
	GetMeter() metric.Meter

	// GetSuccessCounter counts successful executions.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter counts failed executions.
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command that sequences other Commands, so chains nest as steps
// of larger chains.
type Chain interface {
	Command

	// ContinueOnFailure sets whether the chain keeps running commands after
	// one records an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution order.
	AddCommand(command Command) Chain
}
