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
	"encoding/json"
	"os"
	"sync"

	"github.com/Comcast/conduit/crew"
)

// JSONStore is a primitive facility to write process Snapshots as
// JSON to a file.
//
// Not glamorous or efficient.
type JSONStore struct {
	// StateOutputFilename, if not empty, will be the filename
	// for writing Snapshots as JSON.
	StateOutputFilename string

	State map[string]*crew.Snapshot

	WG sync.WaitGroup

	mu sync.Mutex
}

func NewJSONStore(filename string) *JSONStore {
	return &JSONStore{
		StateOutputFilename: filename,
		State:               make(map[string]*crew.Snapshot),
	}
}

// Stop writes out the state.
//
// This function first waits for s.WG if told to.
func (s *JSONStore) Stop(ctx context.Context, wait bool) error {
	if wait {
		s.WG.Wait()
	}
	return s.WriteState(ctx)
}

// WriteState writes every known Snapshot as JSON.
func (s *JSONStore) WriteState(ctx context.Context) error {
	if s.StateOutputFilename == "" {
		return nil
	}
	s.mu.Lock()
	js, err := json.MarshalIndent(s.State, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(s.StateOutputFilename, js, 0644)
}

// Update applies the net changes in the Result.
func (s *JSONStore) Update(r *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == nil {
		s.State = make(map[string]*crew.Snapshot)
	}
	for id, c := range r.Changed {
		if c.Deleted {
			delete(s.State, id)
			continue
		}
		if c.Snapshot != nil {
			s.State[id] = c.Snapshot
		}
	}
	return nil
}

// Snapshot returns the last known Snapshot for the process.
func (s *JSONStore) Snapshot(id string) (*crew.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	x, have := s.State[id]
	return x, have
}
