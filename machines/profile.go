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

package machines

import (
	"context"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
)

const (
	ProfileRequestOp = "profileRequest"
	FollowRequestOp  = "followRequest"
)

type ProfileContext struct {
	Username string       `json:"username"`
	Profile  *api.Profile `json:"profile,omitempty"`
	Errors   api.Errors   `json:"errors,omitempty"`
	Pending  Pending      `json:"-"`
}

// ProfileSpec makes the Profile Spec.
func ProfileSpec(opts Options) (*core.Spec[ProfileContext], error) {
	type C = ProfileContext

	assignProfile := core.Assign("assignProfile", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.ProfileResponse](ev)
		if err != nil {
			return c, err
		}
		c.Profile = &resp.Profile
		c.Errors = nil
		return c, nil
	})

	assignErrors := core.Assign("assignErrors", func(c C, ev core.Event) (C, error) {
		c.Errors = failure(ev)
		return c, nil
	})

	setFollowing := func(name string, on bool) core.Action[C] {
		return &core.FuncAction[C]{
			Name: name,
			F: func(_ context.Context, c C, _ core.Event) (*core.Execution[C], error) {
				exe := core.NewExecution(c)
				if c.Profile == nil {
					return exe, nil
				}
				p := *c.Profile
				t := Toggle{
					Key: p.Username,
					Was: p.Following,
				}
				p.Following = on
				c.Profile = &p
				ref := core.Spawn(exe, followRequest(FollowRequestOp, p.Username, on))
				c.Pending = with(c.Pending, ref, t)
				exe.Ctx = c
				return exe, nil
			},
		}
	}

	following := func(c C, _ core.Event) bool {
		return c.Profile != nil && c.Profile.Following
	}

	toggleFollowing := core.Choose(
		core.When[C]("notAuthenticated", notAuthenticated[C](opts), goToSignup[C]()),
		core.When[C]("following", following, setFollowing("unfollow", false)),
		core.Otherwise[C](setFollowing("follow", true)),
	).Named("toggleFollowing")

	reconcile := core.Assign("reconcileFollowing", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.ProfileResponse](ev)
		if err != nil {
			return c, err
		}
		if c.Profile != nil && c.Profile.Username == resp.Profile.Username {
			p := resp.Profile
			c.Profile = &p
		}
		c.Pending = without(c.Pending, refOf(ev))
		return c, nil
	})

	revert := core.Assign("revertFollowing", func(c C, ev core.Event) (C, error) {
		ref := refOf(ev)
		t, have := c.Pending[ref]
		if !have {
			return c, nil
		}
		if c.Profile != nil && c.Profile.Username == t.Key {
			p := *c.Profile
			p.Following = t.Was
			c.Profile = &p
		}
		c.Pending = without(c.Pending, ref)
		return c, nil
	})

	spec := &core.Spec[C]{
		Name:    ProfileKind,
		Doc:     "A user's public profile and the reader's follow of it.",
		Initial: "loading",
		Nodes: map[string]*core.Node[C]{
			"loading": {
				Invoke: &core.Invoke[C]{
					Op: ProfileRequestOp,
					Src: func(c C) (*core.Request, error) {
						return core.Get("", api.ProfilePath(c.Username)), nil
					},
				},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   core.DoneKind(ProfileRequestOp),
							Actions: []core.Action[C]{assignProfile},
							Target:  "profileLoaded",
						},
						{
							Event:   core.ErrorKind(ProfileRequestOp),
							Actions: []core.Action[C]{assignErrors},
							Target:  "errored",
						},
					},
				},
			},
			"profileLoaded": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   ToggleFollowingKind,
							Actions: []core.Action[C]{toggleFollowing},
						},
						{
							Event:   core.DoneKind(FollowRequestOp),
							Actions: []core.Action[C]{reconcile},
						},
						{
							Event:   core.ErrorKind(FollowRequestOp),
							Actions: []core.Action[C]{revert},
						},
					},
				},
			},
			"errored": {},
		},
	}

	if err := spec.Compile(context.Background()); err != nil {
		return nil, err
	}
	return spec, nil
}
