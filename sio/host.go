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
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/crew"
	"github.com/Comcast/conduit/machines"
	"github.com/Comcast/conduit/storage"

	"github.com/golang/glog"
)

// HostConf provides some basic Host parameters.
type HostConf struct {
	// RequestTimeout, if positive, bounds each API call.
	RequestTimeout time.Duration

	// HaltOnInputEOF stops the Loop when the Couplings report
	// that their input is done.
	HaltOnInputEOF bool

	// Now is the Session's clock.  Nil means time.Now.
	Now func() time.Time
}

// Changed represents changes to a process after message processing.
type Changed struct {
	Snapshot *crew.Snapshot `json:"snapshot,omitempty"`
	Deleted  bool           `json:"deleted,omitempty"`
}

// Result represents all visible output from processing a message.
type Result struct {
	// Changed has the net changes keyed by process id.
	Changed map[string]*Changed `json:"changed,omitempty"`

	// Emitted is the list of Effect batches emitted by processes
	// during processing.  A batch is in the order its process
	// emitted it.
	Emitted [][]core.Effect `json:"emitted,omitempty"`

	// Errors has the text of errors that processing logged and
	// then survived.
	Errors []string `json:"errors,omitempty"`

	// Diag includes internal processing data.
	Diag []*Stroll `json:"-"`
}

// Stroll is internal processing data for one message.
type Stroll struct {
	Msg    interface{}  `json:"msg"`
	Result *crew.Result `json:"result,omitempty"`
	Err    string       `json:"err,omitempty"`
}

type proc struct {
	Kind string
	crew.Process
}

// Host owns the Session, the page processes, and the gear that
// performs their Effects.
//
// All processing happens in ProcessMsg, one message at a time.  API
// calls run on their own goroutines and report back through the
// input channel as completion Envelopes.
type Host struct {
	Conf *HostConf

	Requester api.Requester
	Tokens    storage.TokenStore
	Navigator Navigator

	procs   map[string]*proc
	session atomic.Pointer[proc]

	// changed is the set of processes touched while processing a
	// message.
	changed map[string]bool

	// previous caches each process's last reported Snapshot as
	// JSON.  Used to compute net changes.
	previous map[string]string

	in   chan interface{}
	out  chan *Result
	done chan bool

	// wg tracks in-flight requests.
	wg sync.WaitGroup

	sync.Mutex
}

// UnknownProcess occurs when a message is addressed to a process
// that doesn't exist.
type UnknownProcess struct {
	ID string
}

func (e *UnknownProcess) Error() string {
	return fmt.Sprintf("unknown process %q", e.ID)
}

// NewHost makes a Host coupled to the given Couplings.
//
// The Couplings' IO() method is called to obtain the host's in/out
// channels.
func NewHost(ctx context.Context, conf *HostConf, couplings Couplings, requester api.Requester, tokens storage.TokenStore, nav Navigator) (*Host, error) {
	in, out, done, err := couplings.IO(ctx)
	if err != nil {
		return nil, err
	}
	if conf == nil {
		conf = &HostConf{}
	}
	if tokens == nil {
		tokens = storage.NewMemory("")
	}
	if nav == nil {
		nav = NewHistory()
	}
	return &Host{
		Conf:      conf,
		Requester: requester,
		Tokens:    tokens,
		Navigator: nav,
		procs:     make(map[string]*proc, 8),
		changed:   make(map[string]bool, 8),
		previous:  make(map[string]string, 8),
		in:        in,
		out:       out,
		done:      done,
	}, nil
}

// Start reads the persisted token and starts the Session.
func (h *Host) Start(ctx context.Context) (*Result, error) {
	token, err := h.Tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	return h.ProcessMsg(ctx, &Open{
		ID:   machines.SessionID,
		Kind: machines.SessionKind,
		Params: machines.Params{
			Token: token,
		},
	})
}

// Authenticated reports whether the Session has a current user.
func (h *Host) Authenticated() bool {
	s := h.session.Load()
	if s == nil {
		return false
	}
	return s.Snapshot().Matches("", "user.authenticated")
}

// CurrentUser returns the Session's user, if any.
func (h *Host) CurrentUser() *api.User {
	s := h.session.Load()
	if s == nil {
		return nil
	}
	if c, is := s.Snapshot().Context.(machines.SessionContext); is {
		return c.User
	}
	return nil
}

func (h *Host) options() machines.Options {
	return machines.Options{
		Authenticated: h.Authenticated,
		Now:           h.Conf.Now,
	}
}

// Snapshots returns the Snapshot of every process.
func (h *Host) Snapshots() map[string]*crew.Snapshot {
	h.Lock()
	defer h.Unlock()
	acc := make(map[string]*crew.Snapshot, len(h.procs))
	for id, p := range h.procs {
		acc[id] = p.Snapshot()
	}
	return acc
}

// Process finds the process with the given id.
func (h *Host) Process(id string) (crew.Process, bool) {
	h.Lock()
	defer h.Unlock()
	p, have := h.procs[id]
	if !have {
		return nil, false
	}
	return p.Process, true
}

// Post queues a message for the Loop.  Returns false if the context
// ended first.
func (h *Host) Post(ctx context.Context, msg interface{}) bool {
	select {
	case <-ctx.Done():
		return false
	case h.in <- msg:
		return true
	}
}

// Emit sends a Result to the Couplings, which is how the Result of
// Start reaches them.  Returns false if the context ended first.
func (h *Host) Emit(ctx context.Context, r *Result) bool {
	select {
	case <-ctx.Done():
		return false
	case h.out <- r:
		return true
	}
}

// Wait blocks until no request is in flight.
func (h *Host) Wait() {
	h.wg.Wait()
}

// ProcessMsg processes the given message and returns the results,
// which can then be processed by the host's Result coupling.
func (h *Host) ProcessMsg(ctx context.Context, msg interface{}) (*Result, error) {
	if glog.V(2) {
		glog.Infof("ProcessMsg %s", JShort(msg))
	}

	h.Lock()
	defer h.Unlock()

	// Notifications and spawns are routed back to the host.
	// Rather than call ProcessMsg recursively, we take a
	// breadth-first approach: a message emitted while processing
	// another waits until that one is done.
	pending := make([]interface{}, 0, 8)
	pending = append(pending, msg)

	r := &Result{
		Emitted: make([][]core.Effect, 0, 4),
		Diag:    make([]*Stroll, 0, 4),
	}

	for 0 < len(pending) {
		msg := pending[0]
		pending = pending[1:]

		stroll := &Stroll{
			Msg: msg,
		}
		r.Diag = append(r.Diag, stroll)

		from, res, err := h.dispatch(ctx, msg)
		stroll.Result = res
		if err != nil {
			stroll.Err = err.Error()
			h.errorf(r, "ProcessMsg %s: %v", JShort(msg), err)
		}
		if res == nil {
			continue
		}

		emitted := make([]core.Effect, 0, len(res.Effects))
		for _, e := range res.Effects {
			next, err := h.perform(ctx, from, e)
			if err != nil {
				h.errorf(r, "%s effect %s: %v", from, e.Effect(), err)
			}
			if next != nil {
				pending = append(pending, next)
			}
			emitted = append(emitted, e)
		}
		if 0 < len(emitted) {
			r.Emitted = append(r.Emitted, emitted)
		}
	}

	changed, err := h.getChanged()
	if err != nil {
		return nil, err
	}
	r.Changed = changed

	return r, nil
}

func (h *Host) errorf(r *Result, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	glog.Errorf("%s", msg)
	r.Errors = append(r.Errors, msg)
}

// dispatch handles one message.  Returns the id of the process that
// produced the Result.
func (h *Host) dispatch(ctx context.Context, msg interface{}) (string, *crew.Result, error) {
	switch vv := msg.(type) {
	case *Open:
		res, err := h.open(ctx, vv)
		return vv.ID, res, err
	case *Close:
		h.close(vv.ID)
		return vv.ID, nil, nil
	case *Snapshots:
		for id := range h.procs {
			delete(h.previous, id)
			h.changed[id] = true
		}
		return "", nil, nil
	case *Raw:
		p, have := h.procs[vv.To]
		if !have {
			return vv.To, nil, &UnknownProcess{ID: vv.To}
		}
		ev, err := machines.DecodeEvent(p.Kind, vv.JS)
		if err != nil {
			return vv.To, nil, err
		}
		return h.send(ctx, vv.To, p, ev)
	case *Envelope:
		p, have := h.procs[vv.To]
		if !have {
			// A request can outlive its process.
			if c, is := vv.Event.(core.Completion); is {
				if glog.V(1) {
					glog.Infof("dropping %s for closed %s", c.Kind(), vv.To)
				}
				return vv.To, nil, nil
			}
			return vv.To, nil, &UnknownProcess{ID: vv.To}
		}
		return h.send(ctx, vv.To, p, vv.Event)
	default:
		return "", nil, fmt.Errorf("unknown message type %T", msg)
	}
}

func (h *Host) send(ctx context.Context, id string, p *proc, ev core.Event) (string, *crew.Result, error) {
	res, err := p.Send(ctx, ev)
	if res != nil && res.Changed {
		h.changed[id] = true
	}
	return id, res, err
}

func (h *Host) open(ctx context.Context, o *Open) (*crew.Result, error) {
	params := o.Params
	if o.Kind == machines.SettingsKind && params.User == nil {
		params.User = h.CurrentUser()
	}

	p, err := machines.New(o.Kind, o.ID, params, h.options())
	if err != nil {
		return nil, err
	}

	if _, have := h.procs[o.ID]; have {
		glog.V(1).Infof("replacing process %s", o.ID)
	}

	pr := &proc{
		Kind:    o.Kind,
		Process: p,
	}
	h.procs[o.ID] = pr
	if o.Kind == machines.SessionKind {
		h.session.Store(pr)
	}
	delete(h.previous, o.ID)
	h.changed[o.ID] = true

	return p.Start(ctx)
}

func (h *Host) close(id string) {
	if _, have := h.procs[id]; !have {
		return
	}
	delete(h.procs, id)
	h.changed[id] = true
}

// perform does what an Effect asks.  A returned message should be
// processed next.
func (h *Host) perform(ctx context.Context, from string, e core.Effect) (interface{}, error) {
	switch vv := e.(type) {
	case *core.Request:
		h.request(ctx, from, vv)
	case machines.Navigate:
		return nil, h.Navigator.GoTo(ctx, vv.Path)
	case machines.SaveToken:
		return nil, h.Tokens.SetToken(ctx, vv.Token)
	case machines.ClearToken:
		return nil, h.Tokens.ClearToken(ctx)
	case machines.Notify:
		return &Envelope{
			To:    vv.To,
			Event: vv.Event,
		}, nil
	case machines.SpawnChild:
		return &Open{
			ID:   vv.Kind,
			Kind: vv.Kind,
		}, nil
	default:
		glog.Warningf("%s emitted unknown effect %s", from, e.Effect())
	}
	return nil, nil
}

// request performs the Request on a new goroutine and posts the
// outcome to the process that asked for it.
func (h *Host) request(ctx context.Context, to string, req *core.Request) {
	if h.Requester == nil {
		glog.Errorf("no Requester for %s %s", req.Method, req.Path)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		rctx := ctx
		if 0 < h.Conf.RequestTimeout {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, h.Conf.RequestTimeout)
			defer cancel()
		}

		var ev core.Event
		js, err := h.Requester.Do(rctx, req)
		if err != nil {
			glog.V(1).Infof("%s %s %s failed: %v", to, req.Method, req.Path, err)
			ev = core.Failed{
				Ref: req.Ref,
				Op:  req.Op,
				Err: err,
			}
		} else {
			ev = core.Done{
				Ref:  req.Ref,
				Op:   req.Op,
				Data: js,
			}
		}

		h.Post(ctx, &Envelope{
			To:    to,
			Event: ev,
		})
	}()
}

// getChanged computes the net process changes since this method was
// previously called.
func (h *Host) getChanged() (map[string]*Changed, error) {
	ids := make([]string, 0, len(h.changed))
	for id := range h.changed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	acc := make(map[string]*Changed, len(ids))
	for _, id := range ids {
		delete(h.changed, id)

		p, have := h.procs[id]
		if !have {
			if _, had := h.previous[id]; had {
				delete(h.previous, id)
			}
			acc[id] = &Changed{
				Deleted: true,
			}
			continue
		}

		s := p.Snapshot()
		js, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		current := string(js)
		if previous, have := h.previous[id]; have && previous == current {
			continue
		}
		h.previous[id] = current
		acc[id] = &Changed{
			Snapshot: s,
		}
	}

	return acc, nil
}

// Loop starts the input processing loop in the current goroutine.
//
// This loop calls ProcessMsg on each message that arrives via the
// input coupling, and the loop halts when ctx.Done().
func (h *Host) Loop(ctx context.Context) error {
	glog.V(1).Infof("Host.Loop starting")
LOOP:
	for {
		select {
		case <-h.done:
			if h.Conf.HaltOnInputEOF {
				glog.V(1).Infof("Host.Loop shutting down (input done)")
				break LOOP
			}
			// Don't spin on a closed channel.
			h.done = nil
		case <-ctx.Done():
			glog.V(1).Infof("Host.Loop shutting down (ctx.Done)")
			break LOOP
		case msg := <-h.in:
			if msg == nil {
				break LOOP
			}
			r, err := h.ProcessMsg(ctx, msg)
			if err != nil {
				glog.Errorf("Host.Loop ProcessMsg %s", err)
				continue
			}
			select {
			case <-ctx.Done():
			case h.out <- r:
			}
		}
	}

	glog.V(1).Infof("Host.Loop done")
	return nil
}
