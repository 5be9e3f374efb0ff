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
	GetFeedOp    = "getFeed"
	FavoritingOp = "favoriting"
)

// FeedContext is a page of articles and the query that selected it.
type FeedContext struct {
	Articles      []api.Article `json:"articles"`
	ArticlesCount int           `json:"articlesCount"`
	Errors        api.Errors    `json:"errors,omitempty"`
	Query         api.FeedQuery `json:"query"`
	Pending       Pending       `json:"-"`
}

// NewFeedContext starts with the given query or, if nil, the default
// one.
func NewFeedContext(q *api.FeedQuery) FeedContext {
	c := FeedContext{
		Query: api.DefaultFeedQuery(),
	}
	if q != nil {
		c.Query = *q
		if c.Query.Limit <= 0 {
			c.Query.Limit = api.DefaultLimit
		}
	}
	return c
}

// FeedSpec makes the Feed Spec.
func FeedSpec(opts Options) (*core.Spec[FeedContext], error) {
	type C = FeedContext

	assignData := core.Assign("assignData", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.ArticleListResponse](ev)
		if err != nil {
			return c, err
		}
		c.Articles = resp.Articles
		c.ArticlesCount = resp.ArticlesCount
		c.Errors = nil
		c.Pending = nil
		return c, nil
	})

	assignErrors := core.Assign("assignErrors", func(c C, ev core.Event) (C, error) {
		c.Errors = failure(ev)
		return c, nil
	})

	updateParams := core.Assign("updateParams", func(c C, ev core.Event) (C, error) {
		u, is := ev.(UpdateFeed)
		if !is {
			return c, &UnexpectedEvent{Kind: ev.Kind()}
		}
		c.Query = u.Query
		if c.Query.Limit <= 0 {
			c.Query.Limit = api.DefaultLimit
		}
		return c, nil
	})

	setFavorite := func(name string, on bool) core.Action[C] {
		return &core.FuncAction[C]{
			Name: name,
			F: func(_ context.Context, c C, ev core.Event) (*core.Execution[C], error) {
				t, _ := ev.(ToggleFavorite)
				exe := core.NewExecution(c)
				i := indexOf(c.Articles, t.Slug)
				if i < 0 {
					return exe, nil
				}
				was := c.Articles[i]
				c.Articles = updateArticle(c.Articles, t.Slug, func(a *api.Article) {
					favorited(a, on)
				})
				ref := core.Spawn(exe, favoriteRequest(t.Slug, on))
				c.Pending = with(c.Pending, ref, Toggle{
					Key:   t.Slug,
					Was:   was.Favorited,
					Count: was.FavoritesCount,
				})
				exe.Ctx = c
				return exe, nil
			},
		}
	}

	isFavorited := func(c C, ev core.Event) bool {
		t, _ := ev.(ToggleFavorite)
		i := indexOf(c.Articles, t.Slug)
		return 0 <= i && c.Articles[i].Favorited
	}

	toggleFavorite := core.Choose(
		core.When[C]("notAuthenticated", notAuthenticated[C](opts), goToSignup[C]()),
		core.When[C]("favorited", isFavorited, setFavorite("unfavorite", false)),
		core.Otherwise[C](setFavorite("favorite", true)),
	).Named("toggleFavorite")

	reconcile := core.Assign("reconcileFavorite", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.ArticleResponse](ev)
		if err != nil {
			return c, err
		}
		c.Articles = updateArticle(c.Articles, resp.Article.Slug, func(a *api.Article) {
			a.Favorited = resp.Article.Favorited
			a.FavoritesCount = resp.Article.FavoritesCount
		})
		c.Pending = without(c.Pending, refOf(ev))
		return c, nil
	})

	revert := core.Assign("revertFavorite", func(c C, ev core.Event) (C, error) {
		ref := refOf(ev)
		t, have := c.Pending[ref]
		if !have {
			return c, nil
		}
		c.Articles = updateArticle(c.Articles, t.Key, func(a *api.Article) {
			a.Favorited = t.Was
			a.FavoritesCount = t.Count
		})
		c.Pending = without(c.Pending, ref)
		return c, nil
	})

	noArticles := func(c C, _ core.Event) bool {
		return len(c.Articles) == 0
	}

	reload := func(event string, actions ...core.Action[C]) *core.Branch[C] {
		return &core.Branch[C]{
			Event:   event,
			Actions: actions,
			Target:  "loading",
		}
	}

	spec := &core.Spec[C]{
		Name:    FeedKind,
		Doc:     "A page of articles selected by a query.",
		Initial: "loading",
		Nodes: map[string]*core.Node[C]{
			"loading": {
				Invoke: &core.Invoke[C]{
					Op: GetFeedOp,
					Src: func(c C) (*core.Request, error) {
						return core.Get("", c.Query.Path()), nil
					},
				},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   core.DoneKind(GetFeedOp),
							Actions: []core.Action[C]{assignData},
							Target:  "feedLoaded",
						},
						{
							Event:   core.ErrorKind(GetFeedOp),
							Actions: []core.Action[C]{assignErrors},
							Target:  "failedLoadingFeed",
						},
						reload(UpdateFeedKind, updateParams),
					},
				},
			},
			"feedLoaded": {
				Initial: "pending",
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						reload(RefreshKind),
						reload(UpdateFeedKind, updateParams),
						{
							Event:   ToggleFavoriteKind,
							Actions: []core.Action[C]{toggleFavorite},
						},
						{
							Event:   core.DoneKind(FavoritingOp),
							Actions: []core.Action[C]{reconcile},
						},
						{
							Event:   core.ErrorKind(FavoritingOp),
							Actions: []core.Action[C]{revert},
						},
					},
				},
			},
			"feedLoaded.pending": {
				Branches: &core.Branches[C]{
					Type: core.AlwaysBranching,
					Branches: []*core.Branch[C]{
						{
							Guard:     noArticles,
							GuardName: "noArticles",
							Target:    "feedLoaded.noArticles",
						},
						{
							Target: "feedLoaded.articlesAvailable",
						},
					},
				},
			},
			"feedLoaded.noArticles":        {},
			"feedLoaded.articlesAvailable": {},
			"failedLoadingFeed": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						reload(RetryKind),
						reload(UpdateFeedKind, updateParams),
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
