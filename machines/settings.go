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
	UpdateUserOp = "updateUser"
)

type SettingsContext struct {
	Values api.UserSettings `json:"values"`
	User   *api.User        `json:"user,omitempty"`
	Errors api.Errors       `json:"errors,omitempty"`
}

// NewSettingsContext pre-fills the form from the current user, if
// any.
func NewSettingsContext(u *api.User) SettingsContext {
	var c SettingsContext
	if u != nil {
		c.Values = api.UserSettings{
			Email:    u.Email,
			Username: u.Username,
			Bio:      u.Bio,
			Image:    u.Image,
		}
	}
	return c
}

// SettingsSpec makes the Settings Spec.
func SettingsSpec(opts Options) (*core.Spec[SettingsContext], error) {
	type C = SettingsContext

	assignValues := core.Assign("assignValues", func(c C, ev core.Event) (C, error) {
		s, is := ev.(SubmitSettings)
		if !is {
			return c, &UnexpectedEvent{Kind: ev.Kind()}
		}
		c.Values = s.Values
		return c, nil
	})

	assignUser := core.Assign("assignUser", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.UserResponse](ev)
		if err != nil {
			return c, err
		}
		c.User = &resp.User
		c.Values.Password = ""
		return c, nil
	})

	assignErrors := core.Assign("assignErrors", func(c C, ev core.Event) (C, error) {
		c.Errors = failure(ev)
		return c, nil
	})

	clearErrors := core.Assign("clearErrors", func(c C, _ core.Event) (C, error) {
		c.Errors = nil
		return c, nil
	})

	notifyParent := core.Emit("notifyParent", func(c C, _ core.Event) []core.Effect {
		if c.User == nil {
			return nil
		}
		return []core.Effect{
			Notify{To: SessionID, Event: UpdateUser{User: *c.User}},
		}
	})

	goToProfile := core.Emit("goToProfile", func(c C, _ core.Event) []core.Effect {
		username := c.Values.Username
		if c.User != nil {
			username = c.User.Username
		}
		return []core.Effect{Navigate{Path: "/profile/" + username}}
	})

	submit := &core.Branch[C]{
		Event:   SubmitKind,
		Actions: []core.Action[C]{assignValues},
		Target:  "submitting",
	}

	spec := &core.Spec[C]{
		Name:    SettingsKind,
		Doc:     "Edits the current user's settings.",
		Initial: "idle",
		Nodes: map[string]*core.Node[C]{
			"idle": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{submit},
				},
			},
			"submitting": {
				Invoke: &core.Invoke[C]{
					Op: UpdateUserOp,
					Src: func(c C) (*core.Request, error) {
						return core.Put("", api.UserPath, api.SettingsRequest{
							User: c.Values,
						}), nil
					},
				},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   core.DoneKind(UpdateUserOp),
							Actions: []core.Action[C]{assignUser},
							Target:  "success",
						},
						{
							Event:   core.ErrorKind(UpdateUserOp),
							Actions: []core.Action[C]{assignErrors},
							Target:  "failed",
						},
					},
				},
			},
			"success": {
				Entry: []core.Action[C]{notifyParent, goToProfile},
			},
			"failed": {
				Exit: []core.Action[C]{clearErrors},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{submit},
				},
			},
		},
	}

	if err := spec.Compile(context.Background()); err != nil {
		return nil, err
	}
	return spec, nil
}
