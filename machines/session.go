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

// SessionID is the id of the one Session process.
const SessionID = SessionKind

// Op names for Session requests.
const (
	UserRequestOp = "userRequest"
)

// SessionContext is the Session's context.
//
// Token is the persisted token as read when the Session started.  A
// failed restore forgets it (but doesn't clear storage) so that the
// restore isn't retried.
type SessionContext struct {
	User  *api.User `json:"user,omitempty"`
	Token string    `json:"-"`
}

// Authenticated reports whether there is a current user.
func (c SessionContext) Authenticated() bool {
	return c.User != nil
}

// SessionSpec makes the Session ("app") Spec.
//
//	user                 spawns auth; handles logIn, updateUser
//	user.unauthenticated user? -> authenticated; token? -> authenticating
//	user.authenticating  GET user
//	user.authenticated   logOut -> unauthenticated
//	user.failed          the error node; logIn and logOut still apply
func SessionSpec(opts Options) (*core.Spec[SessionContext], error) {
	type C = SessionContext

	assignUserFromEvent := core.Assign("assignUserFromEvent", func(c C, ev core.Event) (C, error) {
		switch e := ev.(type) {
		case LogIn:
			u := e.User
			c.User = &u
		case UpdateUser:
			u := e.User
			c.User = &u
		}
		return c, nil
	})

	assignUserData := core.Assign("assignUserData", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.UserResponse](ev)
		if err != nil {
			return c, err
		}
		c.User = &resp.User
		return c, nil
	})

	forgetToken := core.Assign("forgetToken", func(c C, _ core.Event) (C, error) {
		c.Token = ""
		return c, nil
	})

	resetUserData := core.Assign("resetUserData", func(c C, _ core.Event) (C, error) {
		c.User = nil
		return c, nil
	})

	resetToken := &core.FuncAction[C]{
		Name: "resetToken",
		F: func(_ context.Context, c C, _ core.Event) (*core.Execution[C], error) {
			c.Token = ""
			exe := core.NewExecution(c)
			exe.AddEmitted(ClearToken{})
			return exe, nil
		},
	}

	createAuthMachine := core.Emit("createAuthMachine", func(C, core.Event) []core.Effect {
		return []core.Effect{SpawnChild{Kind: AuthKind}}
	})

	userExists := func(c C, _ core.Event) bool {
		return c.User != nil
	}

	tokenAvailable := func(c C, _ core.Event) bool {
		return UsableToken(c.Token, opts.now())
	}

	spec := &core.Spec[C]{
		Name:      SessionKind,
		Doc:       "The root process.  Restores, holds, and ends the user's session.",
		Initial:   "user",
		ErrorNode: "user.failed",
		Nodes: map[string]*core.Node[C]{
			"user": {
				Initial: "unauthenticated",
				Entry:   []core.Action[C]{createAuthMachine},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   LogInKind,
							Actions: []core.Action[C]{assignUserFromEvent},
							Target:  "user.authenticated",
						},
						{
							Event:   UpdateUserKind,
							Actions: []core.Action[C]{assignUserFromEvent},
						},
					},
				},
			},
			"user.unauthenticated": {
				Branches: &core.Branches[C]{
					Type: core.AlwaysBranching,
					Branches: []*core.Branch[C]{
						{
							Guard:     userExists,
							GuardName: "userExists",
							Target:    "user.authenticated",
						},
						{
							Guard:     tokenAvailable,
							GuardName: "tokenAvailable",
							Target:    "user.authenticating",
						},
					},
				},
			},
			"user.authenticating": {
				Invoke: &core.Invoke[C]{
					Op: UserRequestOp,
					Src: func(C) (*core.Request, error) {
						return core.Get("", api.UserPath), nil
					},
				},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   core.DoneKind(UserRequestOp),
							Actions: []core.Action[C]{assignUserData},
							Target:  "user.authenticated",
						},
						{
							Event:   core.ErrorKind(UserRequestOp),
							Actions: []core.Action[C]{forgetToken},
							Target:  "user.unauthenticated",
						},
					},
				},
			},
			"user.authenticated": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event: LogOutKind,
							Actions: []core.Action[C]{
								resetUserData,
								resetToken,
								goHome[C](),
							},
							Target: "user.unauthenticated",
						},
					},
				},
			},
			"user.failed": {
				Doc: "Reached when an action fails.",
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event: LogOutKind,
							Actions: []core.Action[C]{
								resetUserData,
								resetToken,
								goHome[C](),
							},
							Target: "user.unauthenticated",
						},
					},
				},
			},
		},
	}

	if err := spec.Compile(context.Background()); err != nil {
		return nil, err
	}
	return spec, nil
}
