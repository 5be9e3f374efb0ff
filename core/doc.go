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

// Package core provides the statechart engine that drives every
// conduit process.
//
// The primary type is Spec(ification), and the primary methods are
// Start() and Walk().  A Spec specifies how to transition from one
// State to another State.  A State is a node name (a string) and a
// typed context value C.
//
// Node names are dotted paths.  "feedLoaded.noArticles" is a child
// of "feedLoaded", and a child inherits the event Branches of its
// ancestors.  A compound node names its Initial child.
//
// Branches come in two flavors.  "event" Branches consume the pending
// Event and are matched by Event kind.  "always" Branches are
// evaluated without an Event whenever the machine is at that node.
// Within a Branches, the first Branch whose Guard passes wins.
//
// Actions do not perform IO.  An Action returns an Execution that
// includes an updated context and zero or more Effects to emit.  The
// package user must do something with those Effects.  For example,
// the host in package sio turns a Request Effect into an HTTP call
// and feeds the outcome back as a Done or Failed Event.
//
// Each Request issued by a node's Invoke carries a correlation ref.
// When the machine leaves that node, the ref is forgotten, and a late
// completion with that ref is dropped as stale.
//
// To use this package, make a Spec. Then Compile() it.  Then Start()
// a State and Walk() it with Events.
package core
