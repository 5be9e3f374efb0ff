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

package tools

import (
	"sort"

	"github.com/Comcast/conduit/core"
)

// ChartAnalysis is a summary of a chart's structure along with some
// possible problems.
type ChartAnalysis struct {
	Name      string `json:"name"`
	NodeCount int    `json:"nodes"`
	Branches  int    `json:"branches"`
	Actions   int    `json:"actions"`
	Guards    int    `json:"guards"`

	// Internal counts Branches without a Target.
	Internal int `json:"internal"`

	TerminalNodes []string `json:"terminal,omitempty"`

	// Unreachable nodes can't be entered from the initial node.
	Unreachable []string `json:"unreachable,omitempty"`

	// Events are the event kinds that some Branch handles.
	Events []string `json:"events,omitempty"`

	// Invokes are the ops that nodes issue on entry.
	Invokes []string `json:"invokes,omitempty"`

	Regions []*ChartAnalysis `json:"regions,omitempty"`
}

// Analyze summarizes the chart.
func Analyze(c *core.Chart) (*ChartAnalysis, error) {
	a := &ChartAnalysis{
		Name:      c.Name,
		NodeCount: len(c.Nodes),
	}

	for _, r := range c.Regions {
		ra, err := Analyze(r)
		if err != nil {
			return nil, err
		}
		a.Regions = append(a.Regions, ra)
		a.NodeCount += ra.NodeCount
		a.Branches += ra.Branches
		a.Actions += ra.Actions
		a.Guards += ra.Guards
		a.Internal += ra.Internal
	}
	if len(c.Regions) != 0 {
		return a, nil
	}

	events := make(map[string]bool)
	invokes := make(map[string]bool)

	for _, n := range c.Nodes {
		a.Actions += len(n.Entry) + len(n.Exit)
		if n.Invoke != "" {
			invokes[n.Invoke] = true
		}
		if len(n.Branches) == 0 && len(childrenOf(c, n.Name)) == 0 {
			a.TerminalNodes = append(a.TerminalNodes, n.Name)
		}
		for _, b := range n.Branches {
			a.Branches++
			a.Actions += len(b.Actions)
			if b.Guard != "" {
				a.Guards++
			}
			if b.Target == "" {
				a.Internal++
			}
			if b.Event != "" {
				events[b.Event] = true
			}
		}
	}

	reached := reachable(c)
	for _, n := range c.Nodes {
		if !reached[n.Name] {
			a.Unreachable = append(a.Unreachable, n.Name)
		}
	}

	a.Events = sortedKeys(events)
	a.Invokes = sortedKeys(invokes)

	return a, nil
}

// reachable computes the nodes that can be entered.  Entering a node
// enters its ancestors and its Initial descendants, and a node has
// the Branches of its ancestors.
func reachable(c *core.Chart) map[string]bool {
	reached := make(map[string]bool)
	pending := []string{c.Initial}

	enter := func(name string) {
		for _, a := range core.Ancestry(name) {
			if !reached[a] {
				reached[a] = true
				pending = append(pending, a)
			}
		}
		for {
			n, have := c.Find(name)
			if !have || n.Initial == "" {
				return
			}
			name = name + "." + n.Initial
			if !reached[name] {
				reached[name] = true
				pending = append(pending, name)
			}
		}
	}

	enter(c.Initial)
	for 0 < len(pending) {
		name := pending[0]
		pending = pending[1:]
		n, _ := c.Find(name)
		for _, b := range n.Branches {
			if b.Target != "" {
				enter(b.Target)
			}
		}
	}

	return reached
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	acc := make([]string, 0, len(m))
	for key := range m {
		acc = append(acc, key)
	}
	sort.Strings(acc)
	return acc
}
