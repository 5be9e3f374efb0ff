/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Charter enables things to describe themselves as a Chart.
//
// A Spec is a Charter.  A crew of Specs (parallel regions) can be one
// too.
type Charter interface {
	Chart() *Chart
}

// Chart is a context-free description of a Spec for tools that
// render or analyze machines.
type Chart struct {
	Name    string      `json:"name" yaml:"name"`
	Doc     string      `json:"doc,omitempty" yaml:",omitempty"`
	Initial string      `json:"initial" yaml:"initial"`
	Nodes   []ChartNode `json:"nodes" yaml:"nodes"`

	// Regions holds the Charts of parallel regions, if any.
	Regions []*Chart `json:"regions,omitempty" yaml:",omitempty"`
}

type ChartNode struct {
	Name     string        `json:"name" yaml:"name"`
	Doc      string        `json:"doc,omitempty" yaml:",omitempty"`
	Initial  string        `json:"initial,omitempty" yaml:",omitempty"`
	Entry    []string      `json:"entry,omitempty" yaml:",omitempty"`
	Exit     []string      `json:"exit,omitempty" yaml:",omitempty"`
	Invoke   string        `json:"invoke,omitempty" yaml:",omitempty"`
	Type     BranchType    `json:"type,omitempty" yaml:",omitempty"`
	Branches []ChartBranch `json:"branches,omitempty" yaml:",omitempty"`
}

type ChartBranch struct {
	Event   string   `json:"event,omitempty" yaml:",omitempty"`
	Guard   string   `json:"guard,omitempty" yaml:",omitempty"`
	Actions []string `json:"actions,omitempty" yaml:",omitempty"`
	Target  string   `json:"target,omitempty" yaml:",omitempty"`
}

// Find returns the named node, if present.
func (c *Chart) Find(name string) (ChartNode, bool) {
	for _, n := range c.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return ChartNode{}, false
}

func actionNames[C any](as []Action[C]) []string {
	if len(as) == 0 {
		return nil
	}
	acc := make([]string, len(as))
	for i, a := range as {
		acc[i] = ActionName(a)
	}
	return acc
}

// Chart describes the Spec.  Nodes are in sorted order.
func (spec *Spec[C]) Chart() *Chart {
	c := &Chart{
		Name:    spec.Name,
		Doc:     spec.Doc,
		Initial: spec.Initial,
		Nodes:   make([]ChartNode, 0, len(spec.Nodes)),
	}
	for _, name := range spec.NodeNames() {
		n := spec.Nodes[name]
		cn := ChartNode{
			Name:    name,
			Doc:     n.Doc,
			Initial: n.Initial,
			Entry:   actionNames(n.Entry),
			Exit:    actionNames(n.Exit),
		}
		if n.Invoke != nil {
			cn.Invoke = n.Invoke.Op
		}
		if n.Branches != nil {
			cn.Type = n.Branches.Type
			for _, b := range n.Branches.Branches {
				cn.Branches = append(cn.Branches, ChartBranch{
					Event:   b.Event,
					Guard:   b.GuardName,
					Actions: actionNames(b.Actions),
					Target:  b.Target,
				})
			}
		}
		c.Nodes = append(c.Nodes, cn)
	}
	return c
}
