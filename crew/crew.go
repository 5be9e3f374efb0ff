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
)

// Crew is a Process made of parallel regions.  Every Event is offered
// to every member in order.
type Crew struct {
	sync.RWMutex

	Id      string    `json:"id"`
	Members []Process `json:"-"`
}

func NewCrew(id string, members ...Process) *Crew {
	return &Crew{
		Id:      id,
		Members: members,
	}
}

func (c *Crew) ID() string {
	return c.Id
}

func (c *Crew) members() []Process {
	c.RLock()
	defer c.RUnlock()
	return append([]Process(nil), c.Members...)
}

// Member finds the member with the given id.
func (c *Crew) Member(id string) (Process, bool) {
	for _, p := range c.members() {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

func (c *Crew) Start(ctx context.Context) (*Result, error) {
	acc := &Result{}
	for _, p := range c.members() {
		r, err := p.Start(ctx)
		if err != nil {
			return acc, err
		}
		acc.add(r)
	}
	return acc, nil
}

func (c *Crew) Send(ctx context.Context, ev core.Event) (*Result, error) {
	acc := &Result{}
	for _, p := range c.members() {
		r, err := p.Send(ctx, ev)
		if err != nil {
			return acc, err
		}
		acc.add(r)
	}
	return acc, nil
}

func (c *Crew) Snapshot() *Snapshot {
	ms := c.members()
	s := &Snapshot{
		Process: c.Id,
		Regions: make(map[string]*Snapshot, len(ms)),
	}
	for _, p := range ms {
		s.Regions[p.ID()] = p.Snapshot()
	}
	return s
}

func (c *Crew) Chart() *core.Chart {
	acc := &core.Chart{
		Name: c.Id,
	}
	for _, p := range c.members() {
		acc.Regions = append(acc.Regions, p.Chart())
	}
	return acc
}
