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

package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/golang/glog"

	"github.com/Comcast/conduit/core"
)

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		glog.Warningf("testutil.JS error %s for %#v", err, x)
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Payload renders a canned response.  A string or bytes is taken as
// JSON text and must be valid.  Anything else is marshaled.
func Payload(x interface{}) (json.RawMessage, error) {
	switch vv := x.(type) {
	case json.RawMessage:
		return Payload([]byte(vv))
	case string:
		return Payload([]byte(vv))
	case []byte:
		if !json.Valid(vv) {
			return nil, fmt.Errorf("invalid JSON payload %q", vv)
		}
		return json.RawMessage(vv), nil
	default:
		return json.Marshal(x)
	}
}

// Effects names the given Effects, which is handy in failure
// messages.
func Effects(es []core.Effect) []string {
	acc := make([]string, len(es))
	for i, e := range es {
		acc[i] = e.Effect()
		if r, is := e.(*core.Request); is {
			acc[i] += " " + r.Op
		}
	}
	return acc
}
