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

package api

import (
	"errors"
	"sort"
	"strings"
)

// RequestField is the Errors field for failures that never reached
// the API or that the API didn't answer with JSON.
const RequestField = "request"

// Errors maps a field name to its messages.
type Errors map[string][]string

// Messages flattens the Errors to "field message" strings, ordered by
// field name.
func (es Errors) Messages() []string {
	fields := make([]string, 0, len(es))
	for f := range es {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	acc := make([]string, 0, len(es))
	for _, f := range fields {
		for _, m := range es[f] {
			acc = append(acc, f+" "+m)
		}
	}
	return acc
}

// APIError is the error for any failed API call.
type APIError struct {
	// Status is the HTTP status code, if any.
	Status int    `json:"status,omitempty"`
	Errors Errors `json:"errors"`
}

func (e *APIError) Error() string {
	return strings.Join(e.Errors.Messages(), "; ")
}

// Transport makes an APIError for a failure that produced no usable
// API response.
func Transport(err error) *APIError {
	return &APIError{
		Errors: Errors{
			RequestField: {err.Error()},
		},
	}
}

// ErrorsOf extracts the Errors from any error.
//
// An error that isn't an APIError is treated as a transport failure.
func ErrorsOf(err error) Errors {
	if err == nil {
		return nil
	}
	var e *APIError
	if errors.As(err, &e) {
		return e.Errors
	}
	return Transport(err).Errors
}
