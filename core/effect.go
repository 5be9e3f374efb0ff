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

package core

// Effect is something an Action asks its host to do.
type Effect interface {
	Effect() string
}

// Request asks the host to perform an API call and to report the
// outcome as a Done or Failed carrying the same Ref and Op.
type Request struct {
	Ref    string      `json:"ref"`
	Op     string      `json:"op"`
	Method string      `json:"method"`
	Path   string      `json:"path"`
	Body   interface{} `json:"body,omitempty"`
}

func (r *Request) Effect() string { return "request" }

// Get makes a GET Request.
func Get(op, path string) *Request {
	return &Request{
		Op:     op,
		Method: "GET",
		Path:   path,
	}
}

// Post makes a POST Request.
func Post(op, path string, body interface{}) *Request {
	return &Request{
		Op:     op,
		Method: "POST",
		Path:   path,
		Body:   body,
	}
}

// Put makes a PUT Request.
func Put(op, path string, body interface{}) *Request {
	return &Request{
		Op:     op,
		Method: "PUT",
		Path:   path,
		Body:   body,
	}
}

// Delete makes a DELETE Request.
func Delete(op, path string) *Request {
	return &Request{
		Op:     op,
		Method: "DELETE",
		Path:   path,
	}
}
