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

package testutil

import (
	"context"
	"testing"

	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/crew"

	"github.com/stretchr/testify/require"
)

// Probe drives a crew.Process by hand and records every Effect it
// emits.  Completions are delivered by op, so a test plays the part
// of the host.
type Probe struct {
	T       testing.TB
	Process crew.Process

	// Effects is everything emitted so far.
	Effects []core.Effect

	// Last is the Result of the most recent Start or Send.
	Last *crew.Result
}

// Start starts the Process.
func Start(t testing.TB, p crew.Process) *Probe {
	t.Helper()
	pr := &Probe{
		T:       t,
		Process: p,
	}
	r, err := p.Start(context.Background())
	require.NoError(t, err)
	pr.record(r)
	return pr
}

func (p *Probe) record(r *crew.Result) {
	p.Last = r
	if r != nil {
		p.Effects = append(p.Effects, r.Effects...)
	}
}

// Send delivers the Event.
func (p *Probe) Send(ev core.Event) *crew.Result {
	p.T.Helper()
	r, err := p.Process.Send(context.Background(), ev)
	require.NoError(p.T, err)
	p.record(r)
	return r
}

// Requests returns the Requests with the given op emitted so far.
func (p *Probe) Requests(op string) []*core.Request {
	var acc []*core.Request
	for _, e := range p.Effects {
		if r, is := e.(*core.Request); is && r.Op == op {
			acc = append(acc, r)
		}
	}
	return acc
}

// Request returns the most recent Request with the given op.
func (p *Probe) Request(op string) *core.Request {
	p.T.Helper()
	rs := p.Requests(op)
	require.NotEmpty(p.T, rs, "no %s request among %v", op, Effects(p.Effects))
	return rs[len(rs)-1]
}

// LastEffects returns what the most recent Start or Send emitted,
// excluding Requests.
func (p *Probe) LastEffects() []core.Effect {
	var acc []core.Effect
	if p.Last == nil {
		return acc
	}
	for _, e := range p.Last.Effects {
		if _, is := e.(*core.Request); !is {
			acc = append(acc, e)
		}
	}
	return acc
}

// Done completes the Request successfully with the given payload.
// See Payload.
func (p *Probe) Done(req *core.Request, payload interface{}) *crew.Result {
	p.T.Helper()
	js, err := Payload(payload)
	require.NoError(p.T, err)
	return p.Send(core.Done{
		Ref:  req.Ref,
		Op:   req.Op,
		Data: js,
	})
}

// Fail completes the Request with the given error.
func (p *Probe) Fail(req *core.Request, err error) *crew.Result {
	p.T.Helper()
	return p.Send(core.Failed{
		Ref: req.Ref,
		Op:  req.Op,
		Err: err,
	})
}

// Node returns the current node of the Process or of one of its
// regions.
func (p *Probe) Node(region string) string {
	s := p.Process.Snapshot()
	if region != "" {
		r, have := s.Regions[region]
		if !have {
			return ""
		}
		return r.Node
	}
	return s.Node
}

// Context returns the context of the Process or of one of its
// regions.
func (p *Probe) Context(region string) interface{} {
	s := p.Process.Snapshot()
	if region != "" {
		if r, have := s.Regions[region]; have {
			return r.Context
		}
		return nil
	}
	return s.Context
}
