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
	"fmt"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/crew"
)

// Process kinds.
const (
	SessionKind  = "app"
	AuthKind     = "auth"
	FeedKind     = "feed"
	ArticleKind  = "article"
	ProfileKind  = "profile"
	EditorKind   = "editor"
	SettingsKind = "settings"
	TagsKind     = "tags"
)

// Kinds lists every process kind, root first.
var Kinds = []string{
	SessionKind,
	AuthKind,
	FeedKind,
	ArticleKind,
	ProfileKind,
	EditorKind,
	SettingsKind,
	TagsKind,
}

// Params are the initial parameters of a process.  Each kind uses
// what it needs.
type Params struct {
	Slug     string         `json:"slug,omitempty"`
	Username string         `json:"username,omitempty"`
	Query    *api.FeedQuery `json:"query,omitempty"`

	// Token is the persisted token for the Session.
	Token string `json:"-"`

	// User pre-fills Settings.
	User *api.User `json:"-"`
}

// UnknownKind occurs when New is asked for a kind it doesn't know.
type UnknownKind struct {
	Kind string
}

func (e *UnknownKind) Error() string {
	return fmt.Sprintf("unknown process kind %q", e.Kind)
}

func machine[C any](id string, spec *core.Spec[C], err error, c C) (crew.Process, error) {
	if err != nil {
		return nil, err
	}
	return crew.NewMachine(id, spec, c), nil
}

// New makes a process of the given kind.  The process isn't started.
func New(kind, id string, p Params, opts Options) (crew.Process, error) {
	switch kind {
	case SessionKind:
		spec, err := SessionSpec(opts)
		return machine(id, spec, err, SessionContext{Token: p.Token})
	case AuthKind:
		spec, err := AuthSpec(opts)
		return machine(id, spec, err, AuthContext{})
	case FeedKind:
		spec, err := FeedSpec(opts)
		return machine(id, spec, err, NewFeedContext(p.Query))
	case ArticleKind:
		c, err := NewArticle(id, p.Slug, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProfileKind:
		spec, err := ProfileSpec(opts)
		return machine(id, spec, err, ProfileContext{Username: p.Username})
	case EditorKind:
		spec, err := EditorSpec(opts)
		return machine(id, spec, err, EditorContext{Slug: p.Slug})
	case SettingsKind:
		spec, err := SettingsSpec(opts)
		return machine(id, spec, err, NewSettingsContext(p.User))
	case TagsKind:
		spec, err := TagsSpec(opts)
		return machine(id, spec, err, TagsContext{})
	}
	return nil, &UnknownKind{Kind: kind}
}

// Charts describes every kind in Kinds order.
func Charts(opts Options) ([]*core.Chart, error) {
	acc := make([]*core.Chart, 0, len(Kinds))
	for _, kind := range Kinds {
		p, err := New(kind, kind, Params{}, opts)
		if err != nil {
			return nil, err
		}
		acc = append(acc, p.Chart())
	}
	return acc, nil
}
