/* Copyright 2021 Comcast Cable Communications Management, LLC
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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	never := func(int, Event) bool { return false }

	tests := []struct {
		description string
		spec        *Spec[int]
		check       func(error) bool
	}{
		{
			description: "Success",
			spec: &Spec[int]{
				Name:    "ok",
				Initial: "a",
				Nodes: map[string]*Node[int]{
					"a": {Branches: &Branches[int]{Branches: []*Branch[int]{{Event: "go", Target: "b"}}}},
					"b": {},
				},
			},
			check: func(err error) bool { return err == nil },
		},
		{
			description: "No initial",
			spec: &Spec[int]{
				Name: "none",
			},
			check: func(err error) bool {
				var e *BadInitial
				return errors.As(err, &e)
			},
		},
		{
			description: "Unknown target",
			spec: &Spec[int]{
				Name:    "lost",
				Initial: "a",
				Nodes: map[string]*Node[int]{
					"a": {Branches: &Branches[int]{Branches: []*Branch[int]{{Event: "go", Target: "nowhere"}}}},
				},
			},
			check: func(err error) bool {
				var e *UnknownNode
				return errors.As(err, &e) && e.NodeName == "nowhere"
			},
		},
		{
			description: "Bad initial child",
			spec: &Spec[int]{
				Name:    "child",
				Initial: "a",
				Nodes: map[string]*Node[int]{
					"a": {Initial: "missing"},
				},
			},
			check: func(err error) bool {
				var e *BadInitial
				return errors.As(err, &e) && e.NodeName == "a"
			},
		},
		{
			description: "Eventless internal transition",
			spec: &Spec[int]{
				Name:    "spin",
				Initial: "a",
				Nodes: map[string]*Node[int]{
					"a": {Branches: &Branches[int]{Type: AlwaysBranching, Branches: []*Branch[int]{{}}}},
				},
			},
			check: func(err error) bool {
				var e *BadBranching
				return errors.As(err, &e)
			},
		},
		{
			description: "Choose without default",
			spec: &Spec[int]{
				Name:    "choosy",
				Initial: "a",
				Nodes: map[string]*Node[int]{
					"a": {
						Branches: &Branches[int]{Branches: []*Branch[int]{{
							Event:   "go",
							Actions: []Action[int]{Choose(When[int]("never", never))},
						}}},
					},
				},
			},
			check: func(err error) bool {
				var e *MissingDefault
				return errors.As(err, &e)
			},
		},
		{
			description: "Invoke without op",
			spec: &Spec[int]{
				Name:    "invoker",
				Initial: "a",
				Nodes: map[string]*Node[int]{
					"a": {Invoke: &Invoke[int]{}},
				},
			},
			check: func(err error) bool {
				var e *BadInvoke
				return errors.As(err, &e)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			err := test.spec.Compile(context.Background())
			assert.True(t, test.check(err), "got %v", err)
		})
	}
}

func TestCompileAddsNodes(t *testing.T) {
	spec := &Spec[int]{
		Name:    "implicit",
		Initial: "a",
		Nodes: map[string]*Node[int]{
			"a":       {Initial: "b"},
			"a.b.c.d": {},
		},
	}
	require.NoError(t, spec.Compile(context.Background()))

	for _, name := range []string{"a.b", "a.b.c", "error"} {
		_, have := spec.Nodes[name]
		assert.True(t, have, name)
	}
	assert.Equal(t, []string{"a.b"}, spec.Children("a"))
}

func TestMatchesKind(t *testing.T) {
	tests := []struct {
		descriptor, kind string
		expected         bool
	}{
		{"refresh", "refresh", true},
		{"refresh", "refreshed", false},
		{"error.platform", "error.platform.getFeed", true},
		{"done.invoke.getFeed", "done.invoke.getFeed", true},
		{"done.invoke.getFeed", "done.invoke.getFeeds", false},
		{AnyEvent, "whatever", true},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, MatchesKind(test.descriptor, test.kind), "%s ~ %s", test.descriptor, test.kind)
	}
}

func TestAncestry(t *testing.T) {
	assert.Equal(t, []string{"a.b.c", "a.b", "a"}, Ancestry("a.b.c"))
	assert.Equal(t, "", Parent("a"))
	assert.True(t, IsWithin("a.b", "a"))
	assert.False(t, IsWithin("ab", "a"))
}

func TestChart(t *testing.T) {
	spec, err := TurnstileSpec(context.Background())
	require.NoError(t, err)

	c := spec.Chart()
	assert.Equal(t, "turnstile", c.Name)
	assert.Equal(t, "locked", c.Initial)

	n, have := c.Find("locked")
	require.True(t, have)
	require.Len(t, n.Branches, 2)
	assert.Equal(t, "coin", n.Branches[0].Event)
	assert.Equal(t, []string{"count"}, n.Branches[0].Actions)
	assert.Equal(t, "unlocked", n.Branches[0].Target)
}
