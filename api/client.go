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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/Comcast/conduit/core"

	"github.com/golang/glog"
	"golang.org/x/net/publicsuffix"
)

// DefaultBaseURL is the public Conduit API.
const DefaultBaseURL = "https://conduit.productionready.io/api"

// ContentType is sent with every request.
const ContentType = "application/json; charset=utf-8"

// TokenSource gives the persisted auth token, or "" if there isn't
// one.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// Requester performs the Request effects that machines emit.
type Requester interface {
	Do(ctx context.Context, req *core.Request) (json.RawMessage, error)
}

// Client talks to the Conduit REST API.
type Client struct {
	BaseURL string
	Tokens  TokenSource
	HTTP    *http.Client
}

// NewClient makes a Client with a cookie jar and the given timeout.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Tokens:  tokens,
		HTTP: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}, nil
}

// Do performs the core.Request.
func (c *Client) Do(ctx context.Context, req *core.Request) (json.RawMessage, error) {
	return c.Request(ctx, req.Method, req.Path, req.Body)
}

// Request makes the call and returns the JSON response without its
// top-level "errors" member.
//
// A non-empty "errors" member fails the call with an *APIError.  So
// does every transport failure, including a response that isn't JSON.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var rdr io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return nil, Transport(err)
		}
		rdr = bytes.NewReader(js)
	}

	url := c.BaseURL + "/" + path
	r, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, Transport(err)
	}
	r.Header.Set("Content-Type", ContentType)

	if c.Tokens != nil {
		token, err := c.Tokens.GetToken(ctx)
		if err != nil {
			glog.Warningf("token lookup failed: %v", err)
		}
		if token != "" {
			r.Header.Set("Authorization", "Token "+token)
		}
	}

	glog.V(2).Infof("api %s %s", method, url)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(r)
	if err != nil {
		return nil, Transport(err)
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transport(err)
	}

	glog.V(3).Infof("api %s %s -> %d %s", method, url, resp.StatusCode, bs)

	payload, err := Strip(bs)
	if err != nil {
		if e, is := err.(*APIError); is {
			e.Status = resp.StatusCode
			return nil, e
		}
		return nil, &APIError{
			Status: resp.StatusCode,
			Errors: Errors{
				RequestField: {fmt.Sprintf("%s: %v", resp.Status, err)},
			},
		}
	}
	return payload, nil
}

// Strip parses a response body and removes its "errors" member.
//
// An empty body is an empty object.
func Strip(bs []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(bs)) == 0 {
		return json.RawMessage("{}"), nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(bs, &m); err != nil {
		return nil, err
	}

	if raw, have := m["errors"]; have {
		var es Errors
		if err := json.Unmarshal(raw, &es); err != nil {
			return nil, err
		}
		if 0 < len(es) {
			return nil, &APIError{Errors: es}
		}
		delete(m, "errors")
	}

	return json.Marshal(m)
}

// Decode unmarshals a payload into a T.
func Decode[T any](payload json.RawMessage) (T, error) {
	var x T
	err := json.Unmarshal(payload, &x)
	return x, err
}
