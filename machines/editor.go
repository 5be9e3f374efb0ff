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
	ArticleRequestOp = "articleRequest"
)

// EditorContext is the article form.  An empty Slug means a new
// article.
type EditorContext struct {
	Slug    string             `json:"slug,omitempty"`
	Article *api.Article       `json:"article,omitempty"`
	Errors  api.Errors         `json:"errors,omitempty"`
	Values  *api.ArticleValues `json:"formValues,omitempty"`
}

func (c EditorContext) values() api.ArticleValues {
	if c.Values == nil {
		return api.ArticleValues{}
	}
	return *c.Values
}

// EditorSpec makes the Editor Spec.
func EditorSpec(opts Options) (*core.Spec[EditorContext], error) {
	type C = EditorContext

	assignValues := core.Assign("assignValues", func(c C, ev core.Event) (C, error) {
		s, is := ev.(SubmitArticle)
		if !is {
			return c, &UnexpectedEvent{Kind: ev.Kind()}
		}
		vs := s.Values
		c.Values = &vs
		return c, nil
	})

	assignArticle := core.Assign("assignArticle", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.ArticleResponse](ev)
		if err != nil {
			return c, err
		}
		c.Article = &resp.Article
		c.Errors = nil
		return c, nil
	})

	prefill := core.Assign("prefill", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.ArticleResponse](ev)
		if err != nil {
			return c, err
		}
		c.Article = &resp.Article
		vs := resp.Article.Values()
		c.Values = &vs
		return c, nil
	})

	assignErrors := core.Assign("assignErrors", func(c C, ev core.Event) (C, error) {
		c.Errors = failure(ev)
		return c, nil
	})

	goToArticle := core.Emit("goToArticle", func(c C, _ core.Event) []core.Effect {
		slug := c.Slug
		if c.Article != nil {
			slug = c.Article.Slug
		}
		return []core.Effect{Navigate{Path: "/article/" + slug}}
	})

	slugExists := func(c C, _ core.Event) bool {
		return c.Slug != ""
	}

	submitTo := func(target string) *core.Branch[C] {
		return &core.Branch[C]{
			Event:   SubmitKind,
			Actions: []core.Action[C]{assignValues},
			Target:  target,
		}
	}

	spec := &core.Spec[C]{
		Name:    EditorKind,
		Doc:     "Creates a new article or updates an existing one.",
		Initial: "idle",
		Nodes: map[string]*core.Node[C]{
			"idle": {
				Initial: "choosing",
			},
			"idle.choosing": {
				Branches: &core.Branches[C]{
					Type: core.AlwaysBranching,
					Branches: []*core.Branch[C]{
						{
							Guard:     slugExists,
							GuardName: "slugExists",
							Target:    "idle.updating",
						},
						{
							Target: "idle.creating",
						},
					},
				},
			},
			"idle.creating": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						submitTo("submitting.creating"),
					},
				},
			},
			"idle.updating": {
				Invoke: &core.Invoke[C]{
					Op: GetArticleOp,
					Src: func(c C) (*core.Request, error) {
						return core.Get("", api.ArticlePath(c.Slug)), nil
					},
				},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   core.DoneKind(GetArticleOp),
							Actions: []core.Action[C]{prefill},
						},
						{
							Event:   core.ErrorKind(GetArticleOp),
							Actions: []core.Action[C]{assignErrors},
						},
						submitTo("submitting.updating"),
					},
				},
			},
			"submitting": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   core.DoneKind(ArticleRequestOp),
							Actions: []core.Action[C]{assignArticle},
							Target:  "success",
						},
						{
							Event:   core.ErrorKind(ArticleRequestOp),
							Actions: []core.Action[C]{assignErrors},
							Target:  "errored",
						},
					},
				},
			},
			"submitting.creating": {
				Invoke: &core.Invoke[C]{
					Op: ArticleRequestOp,
					Src: func(c C) (*core.Request, error) {
						return core.Post("", api.ArticlesPath, api.ArticleRequest{
							Article: c.values(),
						}), nil
					},
				},
			},
			"submitting.updating": {
				Invoke: &core.Invoke[C]{
					Op: ArticleRequestOp,
					Src: func(c C) (*core.Request, error) {
						return core.Put("", api.ArticlePath(c.Slug), api.ArticleRequest{
							Article: c.values(),
						}), nil
					},
				},
			},
			"success": {
				Entry: []core.Action[C]{goToArticle},
			},
			"errored": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:     SubmitKind,
							Guard:     slugExists,
							GuardName: "slugExists",
							Actions:   []core.Action[C]{assignValues},
							Target:    "submitting.updating",
						},
						submitTo("submitting.creating"),
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
