package core

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// TracesInitialCap is the initial capacity for Traces buffers.
	TracesInitialCap = 16

	// EmittedEffectsInitialCap is the initial capacity for
	// slices of emitted Effects.
	EmittedEffectsInitialCap = 16

	// DefaultControl will be used by Spec.Walk if the given
	// control is nil.
	DefaultControl = &Control{
		Limit: 100,
	}
)

// StopReason represents the possible reasons for a Walk to terminate.
type StopReason int

const (
	Settled           StopReason = iota // Went as far as the Spec allowed.
	Limited                             // Too many steps.
	InternalError                       // What else to do?
	BreakpointReached                   // During a Walk.
)

func (r StopReason) String() string {
	switch r {
	case Settled:
		return "Settled"
	case Limited:
		return "Limited"
	case InternalError:
		return "InternalError"
	case BreakpointReached:
		return "BreakpointReached"
	default:
		return "unknown"
	}
}

func (r StopReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// State represents the current state of a machine given a
// specification.
type State[C any] struct {
	NodeName string `json:"node"`
	Ctx      C      `json:"context"`

	// Invocations maps the op of each live node Invoke to the
	// ref of its outstanding Request.
	Invocations map[string]string `json:"invocations,omitempty"`

	// Error and LastNode are set when an action error sent the
	// machine to the error node.
	Error    string `json:"error,omitempty"`
	LastNode string `json:"lastNode,omitempty"`
}

func (s *State[C]) String() string {
	if s == nil {
		return "nil"
	}
	js, err := json.Marshal(s.Ctx)
	if err != nil {
		return s.NodeName + "/{*}"
	}
	return s.NodeName + "/" + string(js)
}

// Copy makes a copy of the State.
//
// The context is copied by value.
func (s *State[C]) Copy() *State[C] {
	var invs map[string]string
	if s.Invocations != nil {
		invs = make(map[string]string, len(s.Invocations))
		for op, ref := range s.Invocations {
			invs[op] = ref
		}
	}
	return &State[C]{
		NodeName:    s.NodeName,
		Ctx:         s.Ctx,
		Invocations: invs,
		Error:       s.Error,
		LastNode:    s.LastNode,
	}
}

// Matches reports whether the State is at the given node or one of
// its descendants.
func (s *State[C]) Matches(name string) bool {
	return IsWithin(s.NodeName, name)
}

// Breakpoint is a node name predicate.
//
// When a Breakpoint returns true for a node, then processing should
// stop at that point.
type Breakpoint func(context.Context, string) bool

// Control influences how Walk() operates.
type Control struct {
	// Limit is the maximum number of Steps that a Walk() can take.
	Limit       int
	Breakpoints map[string]Breakpoint
}

func (c *Control) Copy() *Control {
	bs := make(map[string]Breakpoint, len(c.Breakpoints))
	for id, b := range c.Breakpoints {
		bs[id] = b
	}
	return &Control{
		Limit:       c.Limit,
		Breakpoints: bs,
	}
}

// Traces holds trace messages.
type Traces struct {
	Messages []interface{} `json:"messages,omitempty" yaml:",omitempty"`
}

// NewTraces creates an initialized Traces.
func NewTraces() *Traces {
	return &Traces{
		Messages: make([]interface{}, 0, TracesInitialCap),
	}
}

func (ts *Traces) Add(xs ...interface{}) {
	ts.Messages = append(ts.Messages, xs...)
}

// Events contains emitted Effects and Traces.
type Events struct {
	Emitted []Effect `json:"emitted,omitempty" yaml:",omitempty"`
	Traces  *Traces  `json:"traces,omitempty" yaml:",omitempty"`
}

func newEvents() *Events {
	return &Events{
		Emitted: make([]Effect, 0, EmittedEffectsInitialCap),
		Traces:  NewTraces(),
	}
}

// AddEmitted adds the given Effect to the list of emitted Effects.
func (es *Events) AddEmitted(x Effect) {
	es.Emitted = append(es.Emitted, x)
}

// AddTrace adds the given thing to the list of traces.
func (es *Events) AddTrace(x interface{}) {
	es.Traces.Add(x)
}

// AddEvents adds the given Event's emitted Effects and traces to the
// receiving Events.
func (es *Events) AddEvents(more *Events) {
	if more == nil {
		return
	}
	es.Emitted = append(es.Emitted, more.Emitted...)
	es.Traces.Add(more.Traces.Messages...)
}

// Stride represents a step that Walk has taken or attempted.
type Stride[C any] struct {
	// Events gather what was emitted during the step.
	*Events `json:"events,omitempty" yaml:",omitempty"`

	// From is the starting State.
	From *State[C] `json:"from,omitempty" yaml:",omitempty"`

	// To is the new State (if any) resulting from the step.
	To *State[C] `json:"to,omitempty" yaml:",omitempty"`

	// Consumed is the Event (if any) that was consumed by the step.
	Consumed Event `json:"consumed,omitempty" yaml:",omitempty"`
}

func NewStride[C any]() *Stride[C] {
	return &Stride[C]{
		Events: newEvents(),
	}
}

// Step is the fundamental operation that attempts to move from the
// given state.
//
// "always" Branches at the current node are considered first, without
// consuming the pending Event.  Otherwise the pending Event (if any)
// is consumed.  It's offered to the "event" Branches of the current
// node and then of each ancestor.  The first Branch that applies
// wins.  An Event that no Branch handles is consumed and dropped.
//
// When an action can't decode a Done, the step is retaken from the
// same State with a Failed for the same Request, so a malformed
// response follows the "error.platform.<op>" Branches.
func (s *Spec[C]) Step(ctx context.Context, st *State[C], pending Event) (*Stride[C], error) {
	stride, err := s.step(ctx, st, pending)

	var bad *BadPayload
	d, is := pending.(Done)
	if !is || !errors.As(err, &bad) {
		return stride, err
	}

	failed := Failed{Ref: d.Ref, Op: d.Op, Err: bad}
	retaken, err := s.step(ctx, st, failed)
	if retaken != nil {
		if retaken.Consumed != nil {
			retaken.Consumed = pending
		}
		retaken.AddTrace(map[string]interface{}{
			"badPayload": d.Kind(),
			"error":      bad.Error(),
		})
	}
	return retaken, err
}

func (s *Spec[C]) step(ctx context.Context, st *State[C], pending Event) (*Stride[C], error) {

	if !s.compiled {
		return nil, &SpecNotCompiled{s.Name}
	}

	n, have := s.Nodes[st.NodeName]
	if !have {
		return nil, &UnknownNode{s.Name, st.NodeName}
	}

	stride := NewStride[C]()
	stride.From = st.Copy()

	if n.Branches != nil && n.Branches.Type == AlwaysBranching {
		to, err := s.consider(ctx, st, st.NodeName, n.Branches, nil, stride.Events)
		if err != nil {
			return stride, err
		}
		if to != nil {
			stride.To = to
			return stride, nil
		}
	}

	if pending == nil {
		return stride, nil
	}

	stride.Consumed = pending

	if s.stale(st, pending) {
		stride.AddTrace(map[string]interface{}{
			"stale": pending.Kind(),
		})
		return stride, nil
	}

	for _, name := range Ancestry(st.NodeName) {
		node := s.Nodes[name]
		if node == nil || node.Branches == nil || node.Branches.Type != EventBranching {
			continue
		}
		to, err := s.consider(ctx, st, name, node.Branches, pending, stride.Events)
		if err != nil {
			return stride, err
		}
		if to != nil {
			stride.To = to
			return stride, nil
		}
	}

	stride.AddTrace(map[string]interface{}{
		"unhandled": pending.Kind(),
		"node":      st.NodeName,
	})

	return stride, nil
}

// stale reports whether the Event is the completion of a node Invoke
// whose Request is no longer live.
func (s *Spec[C]) stale(st *State[C], ev Event) bool {
	c, is := ev.(Completion)
	if !is {
		return false
	}
	op, ref := c.Completes()
	if !s.invokeOps[op] {
		return false
	}
	return st.Invocations[op] != ref
}

// consider tries each Branch in order.  The returned State is nil if
// no Branch applied.
func (s *Spec[C]) consider(ctx context.Context, st *State[C], at string, bs *Branches[C], ev Event, events *Events) (*State[C], error) {
	for _, b := range bs.Branches {
		if ev != nil && !MatchesKind(b.Event, ev.Kind()) {
			continue
		}
		if b.Guard != nil && !b.Guard(st.Ctx, ev) {
			continue
		}
		events.AddTrace(map[string]interface{}{
			"branch": at,
			"event":  b.Event,
			"guard":  b.GuardName,
			"target": b.Target,
		})
		return s.transition(ctx, st, b, ev, events)
	}
	return nil, nil
}

// transition follows the Branch: exit actions up to the common
// ancestor, the Branch's actions, and then entry actions down to the
// new leaf.
func (s *Spec[C]) transition(ctx context.Context, st *State[C], b *Branch[C], ev Event, events *Events) (*State[C], error) {
	var (
		next = st.Copy()
		c    = st.Ctx
		err  error
	)

	if b.Target == "" {
		if c, err = runActions(ctx, b.Actions, c, ev, events); err != nil {
			return nil, err
		}
		next.Ctx = c
		return next, nil
	}

	exits, entries := s.path(st.NodeName, b.Target)

	for _, name := range exits {
		node := s.Nodes[name]
		if c, err = runActions(ctx, node.Exit, c, ev, events); err != nil {
			return nil, err
		}
		if node.Invoke != nil {
			delete(next.Invocations, node.Invoke.Op)
		}
	}

	if c, err = runActions(ctx, b.Actions, c, ev, events); err != nil {
		return nil, err
	}
	next.Ctx = c

	if err = s.enter(ctx, next, entries, ev, events); err != nil {
		return nil, err
	}

	return next, nil
}

// path returns the nodes to exit (deepest first) and the nodes to
// enter (shallowest first) to get from one node to another.
func (s *Spec[C]) path(from, to string) ([]string, []string) {
	var (
		fromChain = Ancestry(from)
		toChain   = Ancestry(to)
		domain    = ""
	)

	if 1 < len(toChain) {
		strict := make(map[string]bool, len(toChain)-1)
		for _, a := range toChain[1:] {
			strict[a] = true
		}
		for _, a := range fromChain {
			if a != from && strict[a] {
				domain = a
				break
			}
		}
	}

	exits := make([]string, 0, len(fromChain))
	for _, a := range fromChain {
		if a == domain {
			break
		}
		exits = append(exits, a)
	}

	entries := make([]string, 0, len(toChain))
	for i := len(toChain) - 1; 0 <= i; i-- {
		if IsWithin(domain, toChain[i]) && domain != "" {
			continue
		}
		entries = append(entries, toChain[i])
	}

	return exits, entries
}

// enter enters the given nodes and then the Initial children of the
// last one.  The State's NodeName becomes the resulting leaf.
func (s *Spec[C]) enter(ctx context.Context, st *State[C], entries []string, ev Event, events *Events) error {
	leaf := ""
	for _, name := range entries {
		if err := s.enterNode(ctx, st, name, ev, events); err != nil {
			return err
		}
		leaf = name
	}
	for {
		n := s.Nodes[leaf]
		if n == nil || n.Initial == "" {
			break
		}
		leaf = leaf + "." + n.Initial
		if err := s.enterNode(ctx, st, leaf, ev, events); err != nil {
			return err
		}
	}
	st.NodeName = leaf
	return nil
}

func (s *Spec[C]) enterNode(ctx context.Context, st *State[C], name string, ev Event, events *Events) error {
	node, have := s.Nodes[name]
	if !have {
		return &UnknownNode{s.Name, name}
	}

	c, err := runActions(ctx, node.Entry, st.Ctx, ev, events)
	if err != nil {
		return err
	}
	st.Ctx = c

	if node.Invoke == nil {
		return nil
	}

	req, err := node.Invoke.Src(c)
	if err != nil {
		return err
	}
	req.Op = node.Invoke.Op
	req.Ref = NewRef()
	if st.Invocations == nil {
		st.Invocations = make(map[string]string)
	}
	st.Invocations[req.Op] = req.Ref
	events.AddEmitted(req)
	events.AddTrace(map[string]interface{}{
		"invoke": req.Op,
		"ref":    req.Ref,
		"node":   name,
	})

	return nil
}

// toError gives the State at the error node, or nil if there is no
// error node or we're already there.
func (s *Spec[C]) toError(st *State[C], err error) *State[C] {
	if st.NodeName == s.ErrorNode {
		return nil
	}
	if _, have := s.Nodes[s.ErrorNode]; !have {
		return nil
	}
	return &State[C]{
		NodeName: s.ErrorNode,
		Ctx:      st.Ctx,
		Error:    err.Error(),
		LastNode: st.NodeName,
	}
}

// Walked represents a sequence of strides taken by a Walk().
type Walked[C any] struct {
	// Strides contains each Stride taken and the last one
	// attempted.
	Strides []*Stride[C] `json:"strides" yaml:",omitempty"`

	// Remaining stores the Events that Walk failed to consume.
	Remaining []Event `json:"remaining,omitempty" yaml:",omitempty"`

	// StoppedBecause reports the reason why the Walk stopped.
	StoppedBecause StopReason `json:"stoppedBecause,omitempty" yaml:",omitempty"`

	// Error stores an action error that could not be sent to
	// the error node (if any).
	Error error `json:"-" yaml:"-"`

	// BreakpointId is the id of the breakpoint, if any, that
	// caused this Walk to stop.
	BreakpointId string `json:"breakpoint,omitempty" yaml:",omitempty"`
}

func (w *Walked[C]) From() *State[C] {
	if 0 == len(w.Strides) {
		return nil
	}
	return w.Strides[0].From.Copy()
}

func (w *Walked[C]) To() *State[C] {
	for i := len(w.Strides) - 1; 0 <= i; i-- {
		if s := w.Strides[i]; s.To != nil {
			return s.To.Copy()
		}
	}
	return nil
}

// DoEmitted is a convenience method to iterate over Effects emitted
// by the Walked.
func (w *Walked[C]) DoEmitted(f func(x Effect) error) error {
	for _, stride := range w.Strides {
		for _, x := range stride.Emitted {
			if err := f(x); err != nil {
				return err
			}
		}
	}
	return nil
}

// Emitted gathers all emitted Effects in order.
func (w *Walked[C]) Emitted() []Effect {
	var acc []Effect
	for _, stride := range w.Strides {
		acc = append(acc, stride.Emitted...)
	}
	return acc
}

func newWalked[C any](siz int) *Walked[C] {
	max := 1024
	if max < siz {
		siz = max
	}
	return &Walked[C]{
		Strides: make([]*Stride[C], 0, siz),
	}
}

func (w *Walked[C]) add(s *Stride[C]) {
	w.Strides = append(w.Strides, s)
}

// Start enters the Spec's Initial node (and its Initial descendants)
// with the given context and then Walks until settled.
func (s *Spec[C]) Start(ctx context.Context, c C, ctl *Control) (*Walked[C], error) {
	if !s.compiled {
		return nil, &SpecNotCompiled{s.Name}
	}

	var (
		st     = &State[C]{Ctx: c}
		stride = NewStride[C]()
		next   = st.Copy()
	)
	stride.From = st.Copy()

	_, entries := s.path("", s.Initial)
	if err := s.enter(ctx, next, entries, Init{}, stride.Events); err != nil {
		if next = s.toError(st, err); next == nil {
			w := newWalked[C](1)
			w.add(stride)
			w.StoppedBecause = InternalError
			w.Error = err
			return w, nil
		}
	}
	stride.To = next

	walked, err := s.Walk(ctx, next, nil, ctl)
	if walked != nil {
		walked.Strides = append([]*Stride[C]{stride}, walked.Strides...)
	}
	return walked, err
}

// Walk takes as many steps as it can.
//
// Any returned error is an internal error.  An action error sends the
// machine to the error node with State.Error set.
//
// Any unprocessed Events are returned in Walked.Remaining.
func (s *Spec[C]) Walk(ctx context.Context, st *State[C], pendings []Event, c *Control) (*Walked[C], error) {

	if c == nil {
		c = DefaultControl
	}

	walked := newWalked[C](c.Limit)

	for i := 0; i < c.Limit; i++ {
		for id, breakpoint := range c.Breakpoints {
			if breakpoint(ctx, st.NodeName) {
				walked.StoppedBecause = BreakpointReached
				walked.BreakpointId = id
				walked.Remaining = pendings
				return walked, nil
			}
		}

		var pending Event
		if 0 < len(pendings) {
			pending = pendings[0]
		}
		stride, err := s.Step(ctx, st, pending)

		if stride == nil {
			walked.StoppedBecause = InternalError
			walked.Error = err
			walked.Remaining = pendings
			return walked, err
		}

		if err != nil {
			stride.AddTrace(map[string]interface{}{
				"error": err.Error(),
			})
			if stride.To = s.toError(st, err); stride.To == nil {
				walked.Error = err
			}
		}

		walked.add(stride)

		if stride.Consumed != nil {
			// We consumed an Event, so get the next
			// Event ready.
			pendings = pendings[1:]
		}

		if stride.To == nil {
			// We went nowhere.
			if 0 == len(pendings) {
				walked.StoppedBecause = Settled
				walked.Remaining = nil
				return walked, nil
			}
		} else {
			st = stride.To.Copy()
		}
	}

	// We hit the c.Limit. That's a problem.
	walked.StoppedBecause = Limited
	walked.Remaining = pendings

	return walked, nil
}
