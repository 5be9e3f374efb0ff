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
	"sort"
	"strings"
)

// BranchType says how a node's Branches are considered.
type BranchType string

const (
	// EventBranching Branches consume the pending Event.
	EventBranching BranchType = "event"

	// AlwaysBranching Branches are considered without an Event.
	AlwaysBranching BranchType = "always"
)

// DefaultBranchType is used when a Branches has no Type.
var DefaultBranchType = EventBranching

// Spec is a specification used to build a machine.
//
// A specification gives the structure of the machine.  This data does
// not include any state (such as the name of the current Node or a
// machine's context).
//
// A Spec must be Compile()ed before use.
type Spec[C any] struct {
	// Name is the generic name for this machine.  Something like
	// "feed".
	Name string `json:"name,omitempty" yaml:",omitempty"`

	// Version is the version of this generic machine.
	Version string `json:"version,omitempty" yaml:",omitempty"`

	// Doc is general documentation about how this specification works.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Initial is the name of the top-level node the machine
	// enters on Start.
	Initial string `json:"initial" yaml:"initial"`

	// Nodes is the structure of the machine keyed by dotted node
	// name.
	Nodes map[string]*Node[C] `json:"nodes,omitempty" yaml:",omitempty"`

	// ErrorNode is an optional name of a node for the machine in
	// the event of an action error.  Defaults to "error".
	ErrorNode string `json:"errorNode,omitempty" yaml:",omitempty"`

	// NoAutoErrorNode will instruct the spec compiler not to add
	// an error node if one does not already exist.
	NoAutoErrorNode bool `json:"noErrorNode,omitempty" yaml:",omitempty"`

	compiled bool

	// invokeOps is the set of ops issued by node Invokes.
	invokeOps map[string]bool
}

// Node represents the structure of something like a state in a
// state machine.
type Node[C any] struct {
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Initial is the (relative) name of the child to enter when
	// this node is entered.  Empty for atomic nodes.
	Initial string `json:"initial,omitempty" yaml:",omitempty"`

	Entry []Action[C] `json:"-" yaml:"-"`
	Exit  []Action[C] `json:"-" yaml:"-"`

	// Invoke, if not nil, issues a Request when the node is
	// entered.  The Request is forgotten when the node is exited.
	Invoke *Invoke[C] `json:"-" yaml:"-"`

	Branches *Branches[C] `json:"branching,omitempty" yaml:"branching,omitempty"`
}

// Terminal determines if a node has no branches.
func (n *Node[C]) Terminal() bool {
	return n.Branches == nil || 0 == len(n.Branches.Branches)
}

// Invoke describes the Request a node issues on entry.
type Invoke[C any] struct {
	// Op names the operation.  Completions arrive as
	// "done.invoke.<Op>" and "error.platform.<Op>".
	Op string

	// Src builds the Request from the context at entry.
	Src func(C) (*Request, error)
}

// Branches represents the possible transitions to next states.
type Branches[C any] struct {
	// Type is either "event" or "always".
	Type BranchType `json:"type,omitempty" yaml:",omitempty"`

	// Branches is the list (ordered) of possible transitions.
	// The first Branch that applies wins.
	Branches []*Branch[C] `json:"branches,omitempty" yaml:",omitempty"`
}

// Guard is a predicate over the current context and Event.  The
// Event is nil for "always" Branches.
type Guard[C any] func(C, Event) bool

// Branch is a possible transition to the next state.
type Branch[C any] struct {
	// Event is the Event kind descriptor this branch handles.
	// See MatchesKind.  Ignored for "always" Branches.
	Event string `json:"event,omitempty" yaml:",omitempty"`

	// Guard is optional.  When present, it must pass for the
	// Branch to apply.
	Guard Guard[C] `json:"-" yaml:"-"`

	// GuardName documents the Guard in charts.
	GuardName string `json:"guard,omitempty" yaml:",omitempty"`

	// Actions run between exiting and entering nodes.
	Actions []Action[C] `json:"-" yaml:"-"`

	// Target is the name of the next node.  An empty Target is an
	// internal transition: actions run, and no node is exited or
	// entered.
	Target string `json:"target,omitempty" yaml:",omitempty"`
}

// Parent returns the name of the parent of the given node name.  A
// top-level node has parent "".
func Parent(name string) string {
	if i := strings.LastIndexByte(name, '.'); 0 <= i {
		return name[:i]
	}
	return ""
}

// Ancestry returns the given name followed by its ancestors, deepest
// first.
func Ancestry(name string) []string {
	acc := make([]string, 0, 4)
	for ; name != ""; name = Parent(name) {
		acc = append(acc, name)
	}
	return acc
}

// IsWithin reports whether the node name equals or is a descendant of
// the given ancestor.
func IsWithin(name, ancestor string) bool {
	return name == ancestor || strings.HasPrefix(name, ancestor+".")
}

// Compile validates the Spec and prepares it for use.
//
// Compile adds missing ancestor nodes and (unless NoAutoErrorNode) an
// error node.  It checks that Initial names, Branch targets, and
// Choose defaults are all sound.
func (spec *Spec[C]) Compile(ctx context.Context) error {

	if spec.ErrorNode == "" {
		spec.ErrorNode = "error"
	}

	if spec.Nodes == nil {
		spec.Nodes = make(map[string]*Node[C])
	}

	if _, have := spec.Nodes[spec.ErrorNode]; !have && !spec.NoAutoErrorNode {
		spec.Nodes[spec.ErrorNode] = &Node[C]{
			Doc: "Reached when an action fails.",
		}
	}

	for _, name := range spec.NodeNames() {
		for p := Parent(name); p != ""; p = Parent(p) {
			if _, have := spec.Nodes[p]; !have {
				spec.Nodes[p] = &Node[C]{}
			}
		}
	}

	if spec.Initial == "" {
		return &BadInitial{Spec: spec.Name}
	}
	if _, have := spec.Nodes[spec.Initial]; !have {
		return &UnknownNode{Spec: spec.Name, NodeName: spec.Initial}
	}

	spec.invokeOps = make(map[string]bool)

	for name, n := range spec.Nodes {
		if n == nil {
			n = &Node[C]{}
			spec.Nodes[name] = n
		}

		if n.Initial != "" {
			if _, have := spec.Nodes[name+"."+n.Initial]; !have {
				return &BadInitial{Spec: spec.Name, NodeName: name}
			}
		}

		if n.Invoke != nil {
			if n.Invoke.Op == "" || n.Invoke.Src == nil {
				return &BadInvoke{Spec: spec.Name, NodeName: name}
			}
			spec.invokeOps[n.Invoke.Op] = true
		}

		for _, as := range [][]Action[C]{n.Entry, n.Exit} {
			if err := validateActions(spec.Name, name, as); err != nil {
				return err
			}
		}

		if n.Branches == nil {
			continue
		}

		switch n.Branches.Type {
		case "":
			n.Branches.Type = DefaultBranchType
		case EventBranching, AlwaysBranching:
		default:
			return &BadBranching{Spec: spec.Name, NodeName: name, Type: n.Branches.Type}
		}

		for _, b := range n.Branches.Branches {
			if b.Target != "" {
				if _, have := spec.Nodes[b.Target]; !have {
					return &UnknownNode{Spec: spec.Name, NodeName: b.Target}
				}
			}
			switch {
			case n.Branches.Type == EventBranching && b.Event == "",
				n.Branches.Type == AlwaysBranching && b.Target == "":
				// An eventless internal transition would
				// fire forever.
				return &BadBranching{Spec: spec.Name, NodeName: name, Type: n.Branches.Type}
			}
			if err := validateActions(spec.Name, name, b.Actions); err != nil {
				return err
			}
		}
	}

	spec.compiled = true

	return nil
}

func validateActions[C any](specName, nodeName string, as []Action[C]) error {
	for _, a := range as {
		if v, is := a.(interface{ Validate() error }); is {
			if err := v.Validate(); err != nil {
				return &BadAction{Spec: specName, NodeName: nodeName, Err: err}
			}
		}
	}
	return nil
}

// NodeNames returns the Spec's node names in sorted order.
func (spec *Spec[C]) NodeNames() []string {
	acc := make([]string, 0, len(spec.Nodes))
	for name := range spec.Nodes {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Children returns the sorted names of the direct children of the
// given node.
func (spec *Spec[C]) Children(name string) []string {
	var acc []string
	for _, n := range spec.NodeNames() {
		if n != name && Parent(n) == name {
			acc = append(acc, n)
		}
	}
	return acc
}

// IsInvokeOp reports whether a node Invoke issues the given op.
func (spec *Spec[C]) IsInvokeOp(op string) bool {
	return spec.invokeOps[op]
}
