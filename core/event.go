/* Copyright 2019 Comcast Cable Communications Management, LLC
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
	"encoding/json"
	"strings"
)

const (
	// DoneKindPrefix starts the kind of every Done event.
	DoneKindPrefix = "done.invoke."

	// ErrorKindPrefix starts the kind of every Failed event.
	ErrorKindPrefix = "error.platform."

	// AnyEvent is a Branch.Event that matches every kind.
	AnyEvent = "*"
)

// Event is something a machine can react to.
//
// Concrete events are small structs, one per kind, so a handler can
// switch on the concrete type.
type Event interface {
	Kind() string
}

// Completion is an Event that reports the outcome of a Request.
type Completion interface {
	Event

	// Completes returns the op and correlation ref of the Request.
	Completes() (op string, ref string)
}

// Init is the Event that Start presents to the initial Entry actions.
type Init struct{}

func (Init) Kind() string { return "init" }

// Done reports that the Request with the given Ref succeeded.
//
// Data is the response payload.
type Done struct {
	Ref  string          `json:"ref"`
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (e Done) Kind() string { return DoneKindPrefix + e.Op }

func (e Done) Completes() (string, string) { return e.Op, e.Ref }

// Decode unmarshals the payload into x.  Failures are BadPayloads.
func (e Done) Decode(x interface{}) error {
	if len(e.Data) == 0 {
		return &BadPayload{Op: e.Op, Err: &EmptyPayload{Op: e.Op}}
	}
	if err := json.Unmarshal(e.Data, x); err != nil {
		return &BadPayload{Op: e.Op, Err: err}
	}
	return nil
}

// Failed reports that the Request with the given Ref failed.
type Failed struct {
	Ref string `json:"ref"`
	Op  string `json:"op"`
	Err error  `json:"-"`
}

func (e Failed) Kind() string { return ErrorKindPrefix + e.Op }

func (e Failed) Completes() (string, string) { return e.Op, e.Ref }

// MarshalJSON renders Err as a string.
func (e Failed) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"ref": e.Ref,
		"op":  e.Op,
	}
	if e.Err != nil {
		m["error"] = e.Err.Error()
	}
	return json.Marshal(m)
}

// MatchesKind reports whether the Branch event descriptor selects
// the given event kind.
//
// A descriptor matches its own kind, any kind that extends it with a
// '.' (so "error.platform" matches "error.platform.getFeed"), and
// AnyEvent matches everything.
func MatchesKind(descriptor, kind string) bool {
	if descriptor == AnyEvent || descriptor == kind {
		return true
	}
	return strings.HasPrefix(kind, descriptor+".")
}

// DoneKind returns the kind of a Done for the given op.
func DoneKind(op string) string {
	return DoneKindPrefix + op
}

// ErrorKind returns the kind of a Failed for the given op.
func ErrorKind(op string) string {
	return ErrorKindPrefix + op
}
