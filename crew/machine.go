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

package crew

import (
	"context"
	"sync"

	"github.com/Comcast/conduit/core"

	"github.com/golang/glog"
)

// <machine,event> → <walk> → <machine,effects>
//
// The effects are performed by the host, which might feed new events
// back in.

// Process is something the host can feed events to.
type Process interface {
	ID() string

	// Start enters the initial state.
	Start(ctx context.Context) (*Result, error)

	// Send delivers one Event.
	Send(ctx context.Context, ev core.Event) (*Result, error)

	Snapshot() *Snapshot

	core.Charter
}

// Result reports what a Start or Send did.
type Result struct {
	// Changed is true when some transition was taken.
	Changed bool `json:"changed"`

	Effects []core.Effect `json:"effects,omitempty"`
}

func (r *Result) add(more *Result) {
	if more == nil {
		return
	}
	r.Changed = r.Changed || more.Changed
	r.Effects = append(r.Effects, more.Effects...)
}

// Snapshot is what observers see of a Process.
type Snapshot struct {
	Process string      `json:"process"`
	Node    string      `json:"node,omitempty"`
	Context interface{} `json:"context,omitempty"`
	Error   string      `json:"error,omitempty"`

	// Regions holds the Snapshots of parallel regions, if any.
	Regions map[string]*Snapshot `json:"regions,omitempty"`
}

// Matches reports whether the Snapshot (or the named region) is at
// the given node or one of its descendants.
func (s *Snapshot) Matches(region, node string) bool {
	if region != "" {
		r, have := s.Regions[region]
		return have && r.Matches("", node)
	}
	return core.IsWithin(s.Node, node)
}

// Machine is a triple: id, core.Spec, and core.State.
type Machine[C any] struct {
	sync.RWMutex

	Id      string
	Spec    *core.Spec[C]
	State   *core.State[C]
	Control *core.Control

	initial C
}

// NewMachine makes a Machine that will Start with the given context.
func NewMachine[C any](id string, spec *core.Spec[C], c C) *Machine[C] {
	return &Machine[C]{
		Id:      id,
		Spec:    spec,
		initial: c,
	}
}

func (m *Machine[C]) ID() string {
	return m.Id
}

func (m *Machine[C]) Chart() *core.Chart {
	return m.Spec.Chart()
}

func (m *Machine[C]) Start(ctx context.Context) (*Result, error) {
	walked, err := m.Spec.Start(ctx, m.initial, m.Control)
	if err != nil {
		return nil, err
	}
	return m.update(walked), nil
}

func (m *Machine[C]) Send(ctx context.Context, ev core.Event) (*Result, error) {
	st := m.Current()
	if st == nil {
		return nil, &NotStarted{m.Id}
	}
	walked, err := m.Spec.Walk(ctx, st, []core.Event{ev}, m.Control)
	if err != nil {
		return nil, err
	}
	return m.update(walked), nil
}

func (m *Machine[C]) update(walked *core.Walked[C]) *Result {
	r := &Result{
		Effects: walked.Emitted(),
	}
	if walked.Error != nil {
		glog.Errorf("machine %s: %v", m.Id, walked.Error)
	}
	if to := walked.To(); to != nil {
		r.Changed = true
		if glog.V(2) {
			glog.Infof("machine %s: %s -> %s", m.Id, m.nodeName(), to.NodeName)
		}
		m.Lock()
		m.State = to
		m.Unlock()
	}
	return r
}

func (m *Machine[C]) nodeName() string {
	m.RLock()
	defer m.RUnlock()
	if m.State == nil {
		return ""
	}
	return m.State.NodeName
}

// Current returns a copy of the machine's State (or nil if the
// Machine hasn't started).
func (m *Machine[C]) Current() *core.State[C] {
	m.RLock()
	defer m.RUnlock()
	if m.State == nil {
		return nil
	}
	return m.State.Copy()
}

// Context returns the current context.
func (m *Machine[C]) Context() C {
	if st := m.Current(); st != nil {
		return st.Ctx
	}
	return m.initial
}

func (m *Machine[C]) Snapshot() *Snapshot {
	s := &Snapshot{
		Process: m.Id,
	}
	if st := m.Current(); st != nil {
		s.Node = st.NodeName
		s.Context = st.Ctx
		s.Error = st.Error
	}
	return s
}
