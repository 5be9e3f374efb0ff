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
	SignupOp = "signupUser"
	LoginOp  = "loginUser"
)

// AuthContext holds the login/signup form and its outcome.
type AuthContext struct {
	Name     string     `json:"name,omitempty"`
	Email    string     `json:"email,omitempty"`
	Password string     `json:"-"`
	Errors   api.Errors `json:"errors,omitempty"`
	Token    string     `json:"-"`
}

// AuthSpec makes the Auth Spec.
//
// A submit with a Name signs up.  Otherwise it logs in.  Success
// notifies the Session, persists the token, and goes home.
func AuthSpec(opts Options) (*core.Spec[AuthContext], error) {
	type C = AuthContext

	assignFormValues := core.Assign("assignFormValues", func(c C, ev core.Event) (C, error) {
		s, is := ev.(Submit)
		if !is {
			return c, &UnexpectedEvent{Kind: ev.Kind()}
		}
		c.Name = s.Name
		c.Email = s.Email
		c.Password = s.Password
		return c, nil
	})

	assignData := core.Assign("assignData", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.UserResponse](ev)
		if err != nil {
			return c, err
		}
		c.Token = resp.User.Token
		c.Password = ""
		c.Errors = nil
		return c, nil
	})

	notifyParent := core.Emit("notifyParent", func(c C, ev core.Event) []core.Effect {
		resp, err := payload[api.UserResponse](ev)
		if err != nil {
			return nil
		}
		return []core.Effect{
			Notify{To: SessionID, Event: LogIn{User: resp.User}},
		}
	})

	assignErrors := core.Assign("assignErrors", func(c C, ev core.Event) (C, error) {
		c.Errors = failure(ev)
		return c, nil
	})

	clearErrors := core.Assign("clearErrors", func(c C, _ core.Event) (C, error) {
		c.Errors = nil
		return c, nil
	})

	saveToken := core.Emit("saveToken", func(c C, _ core.Event) []core.Effect {
		return []core.Effect{SaveToken{Token: c.Token}}
	})

	nameExists := func(c C, _ core.Event) bool {
		return c.Name != ""
	}

	submit := func() *core.Branch[C] {
		return &core.Branch[C]{
			Event:   SubmitKind,
			Actions: []core.Action[C]{assignFormValues},
			Target:  "submitting",
		}
	}

	completed := func(op string) *core.Branches[C] {
		return &core.Branches[C]{
			Branches: []*core.Branch[C]{
				{
					Event:   core.DoneKind(op),
					Actions: []core.Action[C]{notifyParent, assignData},
					Target:  "authenticated",
				},
				{
					Event:   core.ErrorKind(op),
					Actions: []core.Action[C]{assignErrors},
					Target:  "failed",
				},
			},
		}
	}

	spec := &core.Spec[C]{
		Name:    AuthKind,
		Doc:     "Logs in or signs up.",
		Initial: "idle",
		Nodes: map[string]*core.Node[C]{
			"idle": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{submit()},
				},
			},
			"submitting": {
				Initial: "choosing",
			},
			"submitting.choosing": {
				Branches: &core.Branches[C]{
					Type: core.AlwaysBranching,
					Branches: []*core.Branch[C]{
						{
							Guard:     nameExists,
							GuardName: "nameExists",
							Target:    "submitting.signup",
						},
						{
							Target: "submitting.login",
						},
					},
				},
			},
			"submitting.signup": {
				Invoke: &core.Invoke[C]{
					Op: SignupOp,
					Src: func(c C) (*core.Request, error) {
						return core.Post("", api.UsersPath, api.SignupRequest{
							User: api.NewUser{
								Username: c.Name,
								Email:    c.Email,
								Password: c.Password,
							},
						}), nil
					},
				},
				Branches: completed(SignupOp),
			},
			"submitting.login": {
				Invoke: &core.Invoke[C]{
					Op: LoginOp,
					Src: func(c C) (*core.Request, error) {
						return core.Post("", api.LoginPath, api.LoginRequest{
							User: api.Login{
								Email:    c.Email,
								Password: c.Password,
							},
						}), nil
					},
				},
				Branches: completed(LoginOp),
			},
			"authenticated": {
				Entry: []core.Action[C]{saveToken, goHome[C]()},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{submit()},
				},
			},
			"failed": {
				Exit: []core.Action[C]{clearErrors},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{submit()},
				},
			},
		},
	}

	if err := spec.Compile(context.Background()); err != nil {
		return nil, err
	}
	return spec, nil
}
