/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"context"
	"strings"
)

// Execution is what an Action returns: the updated context and what
// was emitted.
type Execution[C any] struct {
	Ctx C
	*Events
}

func NewExecution[C any](c C) *Execution[C] {
	return &Execution[C]{
		Ctx:    c,
		Events: newEvents(),
	}
}

// Action computes a new context from the current context and the
// Event that triggered the transition.
//
// An Action must not modify the given context in place.  Slices and
// pointers in C are shared with the previous State, so copy before
// changing them.
type Action[C any] interface {
	Exec(context.Context, C, Event) (*Execution[C], error)
}

// Named is implemented by Actions that can report a name for charts
// and traces.
type Named interface {
	ActionName() string
}

// ActionName returns the name of the Action, or "anonymous".
func ActionName(a interface{}) string {
	if n, is := a.(Named); is {
		if s := n.ActionName(); s != "" {
			return s
		}
	}
	return "anonymous"
}

// FuncAction is a wrapper around a Go function.
type FuncAction[C any] struct {
	Name string
	F    func(context.Context, C, Event) (*Execution[C], error) `json:"-" yaml:"-"`
}

func (a *FuncAction[C]) ActionName() string {
	return a.Name
}

// Exec runs the given action.
func (a *FuncAction[C]) Exec(ctx context.Context, c C, ev Event) (*Execution[C], error) {
	if a == nil || a.F == nil {
		return NewExecution(c), nil
	}

	exe, err := a.F(ctx, c, ev)

	{ // This block just generates tracing data.
		if exe == nil {
			exe = NewExecution(c)
		}
		t := map[string]interface{}{
			"action":  a.Name,
			"emitted": len(exe.Events.Emitted),
		}
		if err != nil {
			t["error"] = err.Error()
		}
		exe.AddTrace(t)
	}

	return exe, err
}

// Assign makes an Action that only updates the context.
func Assign[C any](name string, f func(C, Event) (C, error)) *FuncAction[C] {
	return &FuncAction[C]{
		Name: name,
		F: func(ctx context.Context, c C, ev Event) (*Execution[C], error) {
			c, err := f(c, ev)
			return NewExecution(c), err
		},
	}
}

// Emit makes an Action that only emits Effects.
func Emit[C any](name string, f func(C, Event) []Effect) *FuncAction[C] {
	return &FuncAction[C]{
		Name: name,
		F: func(ctx context.Context, c C, ev Event) (*Execution[C], error) {
			exe := NewExecution(c)
			for _, e := range f(c, ev) {
				exe.AddEmitted(e)
			}
			return exe, nil
		},
	}
}

// Spawn adds the Request to the Execution's emitted Effects with a
// fresh correlation ref, which is returned.
//
// The machine does not track the ref.  Its completion is delivered
// regardless of the machine's node.
func Spawn[C any](exe *Execution[C], req *Request) string {
	if req.Ref == "" {
		req.Ref = NewRef()
	}
	exe.AddEmitted(req)
	return req.Ref
}

// Spawner makes an Action that spawns the Request built by f.
func Spawner[C any](name string, f func(C, Event) (*Request, error)) *FuncAction[C] {
	return &FuncAction[C]{
		Name: name,
		F: func(ctx context.Context, c C, ev Event) (*Execution[C], error) {
			exe := NewExecution(c)
			req, err := f(c, ev)
			if err != nil {
				return exe, err
			}
			Spawn(exe, req)
			return exe, nil
		},
	}
}

// Choice is one option in a Choose.
type Choice[C any] struct {
	GuardName string
	Guard     Guard[C]
	Actions   []Action[C]
}

// When makes a guarded Choice.
func When[C any](name string, g Guard[C], actions ...Action[C]) Choice[C] {
	return Choice[C]{
		GuardName: name,
		Guard:     g,
		Actions:   actions,
	}
}

// Otherwise makes the default Choice.
func Otherwise[C any](actions ...Action[C]) Choice[C] {
	return Choice[C]{
		Actions: actions,
	}
}

// ChooseAction runs the Actions of the first Choice whose Guard
// passes.  The last Choice must be the default.
type ChooseAction[C any] struct {
	Name    string
	Choices []Choice[C]
}

// Choose makes a ChooseAction.  Spec.Compile checks that the last
// choice is a default.
func Choose[C any](choices ...Choice[C]) *ChooseAction[C] {
	return &ChooseAction[C]{
		Choices: choices,
	}
}

// Named sets the name of the action.
func (a *ChooseAction[C]) Named(name string) *ChooseAction[C] {
	a.Name = name
	return a
}

func (a *ChooseAction[C]) ActionName() string {
	if a.Name != "" {
		return a.Name
	}
	names := make([]string, len(a.Choices))
	for i, ch := range a.Choices {
		if ch.Guard == nil {
			names[i] = "default"
		} else {
			names[i] = ch.GuardName
		}
	}
	return "choose(" + strings.Join(names, "|") + ")"
}

// Validate checks that there is a default Choice and that it is last.
func (a *ChooseAction[C]) Validate() error {
	n := len(a.Choices)
	if n == 0 || a.Choices[n-1].Guard != nil {
		return &MissingDefault{Action: a.ActionName()}
	}
	for _, ch := range a.Choices[:n-1] {
		if ch.Guard == nil {
			return &MissingDefault{Action: a.ActionName()}
		}
	}
	return nil
}

func (a *ChooseAction[C]) Exec(ctx context.Context, c C, ev Event) (*Execution[C], error) {
	exe := NewExecution(c)
	for i, ch := range a.Choices {
		if ch.Guard != nil && !ch.Guard(c, ev) {
			continue
		}
		exe.AddTrace(map[string]interface{}{
			"chose": i,
			"guard": ch.GuardName,
		})
		c, err := runActions(ctx, ch.Actions, c, ev, exe.Events)
		exe.Ctx = c
		return exe, err
	}
	return exe, &MissingDefault{Action: a.ActionName()}
}

// runActions runs the Actions in order, threading the context and
// gathering Events.
func runActions[C any](ctx context.Context, as []Action[C], c C, ev Event, events *Events) (C, error) {
	for _, a := range as {
		exe, err := a.Exec(ctx, c, ev)
		if exe != nil {
			events.AddEvents(exe.Events)
		}
		if err != nil {
			return c, err
		}
		if exe != nil {
			c = exe.Ctx
		}
	}
	return c, nil
}
