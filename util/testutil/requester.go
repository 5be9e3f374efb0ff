package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
)

// Requester is a canned api.Requester.
//
// Responses are keyed by "METHOD path".  A key with no response gets
// a 404 APIError.
type Requester struct {
	sync.Mutex

	Responses map[string]interface{}
	Errors    map[string]error

	// Calls records the keys of all requests in order.
	Calls []string

	// Gate, if not nil, is received from before each response.
	Gate chan struct{}
}

func NewRequester() *Requester {
	return &Requester{
		Responses: make(map[string]interface{}),
		Errors:    make(map[string]error),
	}
}

// On sets the response for the given method and path.
func (r *Requester) On(method, path string, response interface{}) *Requester {
	r.Lock()
	r.Responses[method+" "+path] = response
	r.Unlock()
	return r
}

// Failing makes the given method and path fail.
func (r *Requester) Failing(method, path string, err error) *Requester {
	r.Lock()
	r.Errors[method+" "+path] = err
	r.Unlock()
	return r
}

func (r *Requester) Do(ctx context.Context, req *core.Request) (json.RawMessage, error) {
	if r.Gate != nil {
		select {
		case <-r.Gate:
		case <-ctx.Done():
			return nil, api.Transport(ctx.Err())
		}
	}

	key := req.Method + " " + req.Path

	r.Lock()
	r.Calls = append(r.Calls, key)
	resp, have := r.Responses[key]
	err := r.Errors[key]
	r.Unlock()

	if err != nil {
		return nil, err
	}
	if !have {
		return nil, &api.APIError{
			Status: 404,
			Errors: api.Errors{
				api.RequestField: {"not found: " + key},
			},
		}
	}
	return Payload(resp)
}

// Called returns a copy of Calls.
func (r *Requester) Called() []string {
	r.Lock()
	defer r.Unlock()
	return append([]string(nil), r.Calls...)
}
