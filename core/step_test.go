/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type trail struct {
	Log []string
	OK  bool
}

func note(what string) Action[trail] {
	return Assign(what, func(c trail, _ Event) (trail, error) {
		c.Log = append(append([]string(nil), c.Log...), what)
		return c, nil
	})
}

func nestedSpec(t *testing.T) *Spec[trail] {
	spec := &Spec[trail]{
		Name:    "nested",
		Initial: "a",
		Nodes: map[string]*Node[trail]{
			"a": {
				Initial: "x",
				Entry:   []Action[trail]{note("enter a")},
				Exit:    []Action[trail]{note("exit a")},
				Branches: &Branches[trail]{
					Branches: []*Branch[trail]{
						{
							Event:   "go",
							Actions: []Action[trail]{note("going")},
							Target:  "b",
						},
						{
							Event:   "mark",
							Actions: []Action[trail]{note("marked")},
						},
					},
				},
			},
			"a.x": {
				Entry: []Action[trail]{note("enter a.x")},
				Exit:  []Action[trail]{note("exit a.x")},
				Branches: &Branches[trail]{
					Branches: []*Branch[trail]{
						{
							Event:  "next",
							Target: "a.y",
						},
					},
				},
			},
			"a.y": {
				Entry: []Action[trail]{note("enter a.y")},
			},
			"b": {
				Entry: []Action[trail]{note("enter b")},
			},
		},
	}
	if err := spec.Compile(context.Background()); err != nil {
		t.Fatal(err)
	}
	return spec
}

func TestStartEntersInitialChildren(t *testing.T) {
	ctx := context.Background()
	spec := nestedSpec(t)

	walked, err := spec.Start(ctx, trail{}, nil)
	require.NoError(t, err)

	st := walked.To()
	require.Equal(t, "a.x", st.NodeName)
	require.Equal(t, []string{"enter a", "enter a.x"}, st.Ctx.Log)
	require.Equal(t, Settled, walked.StoppedBecause)
}

func TestStepExitsToCommonAncestor(t *testing.T) {
	ctx := context.Background()
	spec := nestedSpec(t)

	walked, err := spec.Start(ctx, trail{}, nil)
	require.NoError(t, err)

	st := walked.To()
	st.Ctx.Log = nil

	if walked, err = spec.Walk(ctx, st, []Event{Input("next")}, nil); err != nil {
		t.Fatal(err)
	}
	st = walked.To()
	require.Equal(t, "a.y", st.NodeName)
	require.Equal(t, []string{"exit a.x", "enter a.y"}, st.Ctx.Log)

	st.Ctx.Log = nil
	if walked, err = spec.Walk(ctx, st, []Event{Input("go")}, nil); err != nil {
		t.Fatal(err)
	}
	st = walked.To()
	require.Equal(t, "b", st.NodeName)
	require.Equal(t, []string{"exit a", "going", "enter b"}, st.Ctx.Log)
}

func TestInternalTransition(t *testing.T) {
	ctx := context.Background()
	spec := nestedSpec(t)

	walked, err := spec.Start(ctx, trail{}, nil)
	require.NoError(t, err)

	st := walked.To()
	st.Ctx.Log = nil

	walked, err = spec.Walk(ctx, st, []Event{Input("mark")}, nil)
	require.NoError(t, err)
	st = walked.To()
	require.Equal(t, "a.x", st.NodeName)
	require.Equal(t, []string{"marked"}, st.Ctx.Log)
}

func TestUnhandledEventIsDropped(t *testing.T) {
	ctx := context.Background()
	spec := nestedSpec(t)

	walked, err := spec.Start(ctx, trail{}, nil)
	require.NoError(t, err)
	st := walked.To()

	walked, err = spec.Walk(ctx, st, []Event{Input("bogus"), Input("next")}, nil)
	require.NoError(t, err)
	require.Empty(t, walked.Remaining)
	require.Equal(t, "a.y", walked.To().NodeName)
}

func TestAlwaysBranching(t *testing.T) {
	ctx := context.Background()

	ok := func(c trail, _ Event) bool { return c.OK }

	spec := &Spec[trail]{
		Name:    "always",
		Initial: "choosing",
		Nodes: map[string]*Node[trail]{
			"choosing": {
				Branches: &Branches[trail]{
					Type: AlwaysBranching,
					Branches: []*Branch[trail]{
						{
							Guard:     ok,
							GuardName: "ok",
							Target:    "yes",
						},
						{
							Target: "no",
						},
					},
				},
			},
			"yes": {},
			"no":  {},
		},
	}
	require.NoError(t, spec.Compile(ctx))

	walked, err := spec.Start(ctx, trail{OK: true}, nil)
	require.NoError(t, err)
	require.Equal(t, "yes", walked.To().NodeName)

	walked, err = spec.Start(ctx, trail{}, nil)
	require.NoError(t, err)
	require.Equal(t, "no", walked.To().NodeName)
}

type loaded struct {
	Value   string
	Failure string
}

func invokingSpec(t *testing.T) *Spec[loaded] {
	spec := &Spec[loaded]{
		Name:    "invoking",
		Initial: "loading",
		Nodes: map[string]*Node[loaded]{
			"loading": {
				Invoke: &Invoke[loaded]{
					Op: "load",
					Src: func(loaded) (*Request, error) {
						return Get("", "things"), nil
					},
				},
				Branches: &Branches[loaded]{
					Branches: []*Branch[loaded]{
						{
							Event: DoneKind("load"),
							Actions: []Action[loaded]{
								Assign("assignValue", func(c loaded, ev Event) (loaded, error) {
									err := ev.(Done).Decode(&c.Value)
									return c, err
								}),
							},
							Target: "loaded",
						},
						{
							Event: ErrorKind("load"),
							Actions: []Action[loaded]{
								Assign("assignFailure", func(c loaded, ev Event) (loaded, error) {
									c.Failure = ev.(Failed).Err.Error()
									return c, nil
								}),
							},
							Target: "failed",
						},
						{
							Event: "explode",
							Actions: []Action[loaded]{
								Assign("explode", func(c loaded, _ Event) (loaded, error) {
									return c, errors.New("boom")
								}),
							},
						},
						{
							Event:  "cancel",
							Target: "idle",
						},
					},
				},
			},
			"idle": {
				Branches: &Branches[loaded]{
					Branches: []*Branch[loaded]{
						{
							Event:  "reload",
							Target: "loading",
						},
					},
				},
			},
			"loaded": {},
			"failed": {},
		},
	}
	require.NoError(t, spec.Compile(context.Background()))
	return spec
}

func TestInvokeEmitsRequest(t *testing.T) {
	ctx := context.Background()
	spec := invokingSpec(t)

	walked, err := spec.Start(ctx, loaded{}, nil)
	require.NoError(t, err)

	emitted := walked.Emitted()
	require.Len(t, emitted, 1)
	req, is := emitted[0].(*Request)
	require.True(t, is)
	require.Equal(t, "load", req.Op)
	require.Equal(t, "GET", req.Method)
	require.Equal(t, "things", req.Path)
	require.NotEmpty(t, req.Ref)

	st := walked.To()
	require.Equal(t, req.Ref, st.Invocations["load"])

	done := Done{Op: "load", Ref: req.Ref, Data: []byte(`"tacos"`)}
	walked, err = spec.Walk(ctx, st, []Event{done}, nil)
	require.NoError(t, err)
	st = walked.To()
	require.Equal(t, "loaded", st.NodeName)
	require.Equal(t, "tacos", st.Ctx.Value)
	require.Empty(t, st.Invocations)
}

func TestStaleCompletionIsDropped(t *testing.T) {
	ctx := context.Background()
	spec := invokingSpec(t)

	walked, err := spec.Start(ctx, loaded{}, nil)
	require.NoError(t, err)
	first := walked.Emitted()[0].(*Request)

	// Leave and come back, which issues a new request.
	walked, err = spec.Walk(ctx, walked.To(), []Event{Input("cancel"), Input("reload")}, nil)
	require.NoError(t, err)
	emitted := walked.Emitted()
	require.Len(t, emitted, 1)
	second := emitted[0].(*Request)
	require.NotEqual(t, first.Ref, second.Ref)

	st := walked.To()
	require.Equal(t, "loading", st.NodeName)

	old := Done{Op: "load", Ref: first.Ref, Data: []byte(`"old"`)}
	walked, err = spec.Walk(ctx, st, []Event{old}, nil)
	require.NoError(t, err)
	require.Nil(t, walked.To())

	current := Done{Op: "load", Ref: second.Ref, Data: []byte(`"new"`)}
	walked, err = spec.Walk(ctx, st, []Event{current}, nil)
	require.NoError(t, err)
	require.Equal(t, "loaded", walked.To().NodeName)
	require.Equal(t, "new", walked.To().Ctx.Value)
}

func TestActionErrors(t *testing.T) {
	ctx := context.Background()
	spec := invokingSpec(t)

	walked, err := spec.Start(ctx, loaded{}, nil)
	require.NoError(t, err)
	st := walked.To()

	walked, err = spec.Walk(ctx, st, []Event{Input("explode")}, nil)
	require.NoError(t, err)

	st = walked.To()
	require.Equal(t, "error", st.NodeName)
	require.Equal(t, "loading", st.LastNode)
	require.Equal(t, "boom", st.Error)
}

func TestBadPayloadIsFailure(t *testing.T) {
	ctx := context.Background()
	spec := invokingSpec(t)

	walked, err := spec.Start(ctx, loaded{}, nil)
	require.NoError(t, err)
	st := walked.To()

	for _, data := range []string{`42`, ``} {
		bad := Done{Op: "load", Ref: st.Invocations["load"], Data: []byte(data)}
		walked, err = spec.Walk(ctx, st, []Event{bad}, nil)
		require.NoError(t, err)
		require.Empty(t, walked.Remaining)

		to := walked.To()
		require.Equal(t, "failed", to.NodeName)
		require.Empty(t, to.Error)
		require.Contains(t, to.Ctx.Failure, `bad payload for "load"`)
		require.Empty(t, to.Invocations)
	}
}

func TestStepUncompiled(t *testing.T) {
	spec := &Spec[int]{
		Name:    "raw",
		Initial: "start",
	}
	_, err := spec.Step(context.Background(), &State[int]{NodeName: "start"}, nil)
	var nc *SpecNotCompiled
	require.True(t, errors.As(err, &nc))
}

func TestWalkLimited(t *testing.T) {
	ctx := context.Background()
	spec, err := TurnstileSpec(ctx)
	require.NoError(t, err)

	coins := make([]Event, 5)
	for i := range coins {
		coins[i] = Input("coin")
	}

	walked, err := spec.Walk(ctx, &State[int]{NodeName: "locked"}, coins, &Control{Limit: 3})
	require.NoError(t, err)
	require.Equal(t, Limited, walked.StoppedBecause)
	require.Len(t, walked.Remaining, 2)
	require.Equal(t, 3, walked.To().Ctx)
}

func TestWalkBreakpoint(t *testing.T) {
	ctx := context.Background()
	spec, err := TurnstileSpec(ctx)
	require.NoError(t, err)

	c := &Control{
		Limit: 10,
		Breakpoints: map[string]Breakpoint{
			"open": func(ctx context.Context, node string) bool {
				return node == "unlocked"
			},
		},
	}

	walked, err := spec.Walk(ctx, &State[int]{NodeName: "locked"}, []Event{Input("coin"), Input("push")}, c)
	require.NoError(t, err)
	require.Equal(t, BreakpointReached, walked.StoppedBecause)
	require.Equal(t, "open", walked.BreakpointId)
	require.Len(t, walked.Remaining, 1)
}
