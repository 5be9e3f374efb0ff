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
	"encoding/json"
	"fmt"

	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/machines"
)

// Envelope delivers an Event to a process.
type Envelope struct {
	To    string     `json:"to"`
	Event core.Event `json:"event"`
}

// Raw is an in-bound event that hasn't been decoded yet.  Decoding
// needs the kind of the target process.
type Raw struct {
	To string          `json:"to"`
	JS json.RawMessage `json:"event"`
}

// Open makes a page process.  An existing process with the same ID is
// replaced.
type Open struct {
	ID     string          `json:"id"`
	Kind   string          `json:"kind"`
	Params machines.Params `json:"params"`
}

// Close removes a page process.
type Close struct {
	ID string `json:"id"`
}

// Snapshots asks for the current Snapshot of every process, whether
// it changed or not.
type Snapshots struct{}

// BadMessage occurs when an in-bound message isn't an event, an
// open, or a close.
type BadMessage struct {
	JS string
}

func (e *BadMessage) Error() string {
	return fmt.Sprintf("bad message %s", e.JS)
}

// ParseMessage parses an in-bound JSON message.
//
//	{"open":{"id":"feed","kind":"feed","params":{"query":{"tag":"go"}}}}
//	{"close":"feed"}
//	{"snapshots":true}
//	{"to":"feed","type":"toggleFavorite","slug":"how-to"}
//
// An event without "to" goes to the Session.
func ParseMessage(js []byte) (interface{}, error) {
	var head struct {
		To    string `json:"to"`
		Open  *Open  `json:"open"`
		Close string `json:"close"`
		Type  string `json:"type"`

		Snapshots bool `json:"snapshots"`
	}
	if err := json.Unmarshal(js, &head); err != nil {
		return nil, err
	}

	switch {
	case head.Open != nil:
		if head.Open.ID == "" {
			head.Open.ID = head.Open.Kind
		}
		return head.Open, nil
	case head.Close != "":
		return &Close{ID: head.Close}, nil
	case head.Snapshots:
		return &Snapshots{}, nil
	case head.Type != "":
		to := head.To
		if to == "" {
			to = machines.SessionID
		}
		return &Raw{To: to, JS: js}, nil
	}

	return nil, &BadMessage{JS: JShort(json.RawMessage(js))}
}
