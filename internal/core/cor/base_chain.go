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

// Package cor implements the chain-of-responsibility engine the production
// workflows run on. This file holds BaseChain, the default Chain.
//
// A BaseChain runs its commands in order over one shared cor.Context. Between
// commands it pipes data: whatever the finished command left under CtxOut is
// moved to CtxIn before the next command runs, so each production step reads
// its predecessor's artifact without knowing which command produced it. After
// the last command the chain's result therefore sits under CtxIn. A recorded
// error stops the chain before the next command unless the chain was built
// with ContinueOnFailure(true). Every command execution gets its own child
// span under the chain's span; the span parent is reset after each command so
// sibling commands do not nest under one another.
package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// BaseChain is the default Chain: an ordered command list plus the failure
// policy. It embeds BaseCommand, so a chain can run as a step of a larger
// chain.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool      // When true, recorded errors do not stop the remaining commands.
	commands          []Command // The commands, in execution order.
}

// NewBaseChain creates an empty chain. The name labels the chain's telemetry
// span.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure sets the failure policy and returns the chain for
// builder-style composition. The default, false, stops the chain at the
// first command that records an error.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand appends a command to the execution order and returns the chain
// for builder-style composition.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable reports whether the chain can run, which only requires a Go
// context on the shared cor.Context.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context.GetContext() != nil
}

// Execute runs every command in order over the shared context, piping CtxOut
// to CtxIn between steps.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()

	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()

	for _, command := range c.commands {
		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())
		commandSpan.SetName(command.GetName())

		// A failed predecessor ends the chain here unless the policy says
		// otherwise.
		if chCtx.HasErrors() && !c.continueOnFailure {
			commandSpan.SetStatus(codes.Error, "previous error on chain; skipping execution")
			commandSpan.End()
			break
		}

		if command.IsExecutable(chCtx) {
			// The command runs under its own span's Go context. It is put
			// back afterwards so the next span is a sibling, not a child.
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			chCtx.SetContext(outerCtx)
		} else {
			commandSpan.SetStatus(codes.Error, fmt.Sprintf("command not executable: %s", command.GetName()))
		}

		if chCtx.HasErrors() {
			commandSpan.SetStatus(codes.Error, "error during or after command execution")
		} else {
			commandSpan.SetStatus(codes.Ok, "command completed successfully")
		}
		commandSpan.End()

		// Pipe the step's output into the next step's input slot.
		outputValue := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	if !chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
	} else {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
	}
}
