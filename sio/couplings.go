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

package sio

import (
	"context"
)

// Couplings provide channels for message input and results output.
//
// For example, an implementation could couple a Host to an MQTT
// broker or to websocket clients.
type Couplings interface {
	// Start initializes the Couplings.
	Start(context.Context) error

	// IO returns the input and result channels along with a
	// channel that is closed when input is exhausted.
	IO(context.Context) (chan interface{}, chan *Result, chan bool, error)

	// Stop shuts down the Couplings.
	Stop(context.Context) error
}

// Chans is a Couplings that is just three channels.  Handy for tests
// and for embedding a Host in another program.
type Chans struct {
	In   chan interface{}
	Out  chan *Result
	Done chan bool
}

func NewChans() *Chans {
	return &Chans{
		In:   make(chan interface{}),
		Out:  make(chan *Result),
		Done: make(chan bool),
	}
}

func (c *Chans) Start(ctx context.Context) error {
	return nil
}

func (c *Chans) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	return c.In, c.Out, c.Done, nil
}

func (c *Chans) Stop(ctx context.Context) error {
	return nil
}

// Report is how Couplings render a Result for the outside world.
type Report struct {
	Emitted []map[string]interface{} `json:"emitted,omitempty"`
	Changed map[string]*Changed      `json:"changed,omitempty"`
	Errors  []string                 `json:"errors,omitempty"`
}

// NewReport flattens the Result's emitted batches into tagged Effects.
func NewReport(r *Result) *Report {
	rep := &Report{
		Changed: r.Changed,
		Errors:  r.Errors,
	}
	for _, batch := range r.Emitted {
		for _, e := range batch {
			rep.Emitted = append(rep.Emitted, Tagged(e))
		}
	}
	return rep
}

// Empty reports whether there is nothing to say.
func (r *Report) Empty() bool {
	return len(r.Emitted) == 0 && len(r.Changed) == 0 && len(r.Errors) == 0
}
