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
	"github.com/Comcast/conduit/crew"
)

const (
	GetArticleOp      = "getArticle"
	FollowingOp       = "following"
	DeletingArticleOp = "deletingArticle"
	GetCommentsOp     = "getComments"
	CreatingCommentOp = "creatingComment"
	DeletingCommentOp = "deletingComment"

	// ArticleRegion and CommentsRegion are the ids of the Article
	// process's regions.
	ArticleRegion  = "article"
	CommentsRegion = "comments"
)

// ArticleContext is the article region's context.
type ArticleContext struct {
	Slug    string       `json:"slug"`
	Article *api.Article `json:"article,omitempty"`
	Errors  api.Errors   `json:"errors,omitempty"`
	Pending Pending      `json:"-"`
}

// CommentsContext is the comments region's context.
type CommentsContext struct {
	Slug     string        `json:"slug"`
	Comments []api.Comment `json:"comments"`
	Errors   api.Errors    `json:"errors,omitempty"`
}

// NewArticle makes the Article process: a crew of an article region
// and a comments region over one slug.
func NewArticle(id, slug string, opts Options) (*crew.Crew, error) {
	as, err := ArticleSpec(opts)
	if err != nil {
		return nil, err
	}
	cs, err := CommentsSpec(opts)
	if err != nil {
		return nil, err
	}
	return crew.NewCrew(id,
		crew.NewMachine(ArticleRegion, as, ArticleContext{Slug: slug}),
		crew.NewMachine(CommentsRegion, cs, CommentsContext{Slug: slug}),
	), nil
}

// editArticle returns a copy of the context with f applied to a copy
// of the article.
func editArticle(c ArticleContext, f func(*api.Article)) ArticleContext {
	if c.Article == nil {
		return c
	}
	a := *c.Article
	f(&a)
	c.Article = &a
	return c
}

// ArticleSpec makes the Spec of the Article process's article region.
func ArticleSpec(opts Options) (*core.Spec[ArticleContext], error) {
	type C = ArticleContext

	assignArticle := core.Assign("assignArticle", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.ArticleResponse](ev)
		if err != nil {
			return c, err
		}
		c.Article = &resp.Article
		c.Errors = nil
		return c, nil
	})

	assignErrors := core.Assign("assignErrors", func(c C, ev core.Event) (C, error) {
		c.Errors = failure(ev)
		return c, nil
	})

	loaded := func(c C, _ core.Event) bool {
		return c.Article != nil
	}

	setFavorite := func(name string, on bool) core.Action[C] {
		return &core.FuncAction[C]{
			Name: name,
			F: func(_ context.Context, c C, _ core.Event) (*core.Execution[C], error) {
				exe := core.NewExecution(c)
				if c.Article == nil {
					return exe, nil
				}
				t := Toggle{
					Key:   c.Article.Slug,
					Was:   c.Article.Favorited,
					Count: c.Article.FavoritesCount,
				}
				c = editArticle(c, func(a *api.Article) {
					favorited(a, on)
				})
				ref := core.Spawn(exe, favoriteRequest(t.Key, on))
				c.Pending = with(c.Pending, ref, t)
				exe.Ctx = c
				return exe, nil
			},
		}
	}

	setFollow := func(name string, on bool) core.Action[C] {
		return &core.FuncAction[C]{
			Name: name,
			F: func(_ context.Context, c C, _ core.Event) (*core.Execution[C], error) {
				exe := core.NewExecution(c)
				if c.Article == nil {
					return exe, nil
				}
				t := Toggle{
					Key: c.Article.Author.Username,
					Was: c.Article.Author.Following,
				}
				c = editArticle(c, func(a *api.Article) {
					a.Author.Following = on
				})
				ref := core.Spawn(exe, followRequest(FollowingOp, t.Key, on))
				c.Pending = with(c.Pending, ref, t)
				exe.Ctx = c
				return exe, nil
			},
		}
	}

	isFavorited := func(c C, _ core.Event) bool {
		return loaded(c, nil) && c.Article.Favorited
	}

	isFollowing := func(c C, _ core.Event) bool {
		return loaded(c, nil) && c.Article.Author.Following
	}

	toggleFavorite := core.Choose(
		core.When[C]("notAuthenticated", notAuthenticated[C](opts), goToSignup[C]()),
		core.When[C]("favorited", isFavorited, setFavorite("unfavorite", false)),
		core.Otherwise[C](setFavorite("favorite", true)),
	).Named("toggleFavorite")

	toggleFollow := core.Choose(
		core.When[C]("notAuthenticated", notAuthenticated[C](opts), goToSignup[C]()),
		core.When[C]("following", isFollowing, setFollow("unfollow", false)),
		core.Otherwise[C](setFollow("follow", true)),
	).Named("toggleFollow")

	reconcileFavorite := core.Assign("reconcileFavorite", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.ArticleResponse](ev)
		if err != nil {
			return c, err
		}
		c = editArticle(c, func(a *api.Article) {
			if a.Slug == resp.Article.Slug {
				a.Favorited = resp.Article.Favorited
				a.FavoritesCount = resp.Article.FavoritesCount
			}
		})
		c.Pending = without(c.Pending, refOf(ev))
		return c, nil
	})

	revertFavorite := core.Assign("revertFavorite", func(c C, ev core.Event) (C, error) {
		ref := refOf(ev)
		if t, have := c.Pending[ref]; have {
			c = editArticle(c, func(a *api.Article) {
				a.Favorited = t.Was
				a.FavoritesCount = t.Count
			})
			c.Pending = without(c.Pending, ref)
		}
		return c, nil
	})

	reconcileFollow := core.Assign("reconcileFollow", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.ProfileResponse](ev)
		if err != nil {
			return c, err
		}
		c = editArticle(c, func(a *api.Article) {
			if a.Author.Username == resp.Profile.Username {
				a.Author.Following = resp.Profile.Following
			}
		})
		c.Pending = without(c.Pending, refOf(ev))
		return c, nil
	})

	revertFollow := core.Assign("revertFollow", func(c C, ev core.Event) (C, error) {
		ref := refOf(ev)
		if t, have := c.Pending[ref]; have {
			c = editArticle(c, func(a *api.Article) {
				if a.Author.Username == t.Key {
					a.Author.Following = t.Was
				}
			})
			c.Pending = without(c.Pending, ref)
		}
		return c, nil
	})

	deleteArticle := core.Spawner("deleteArticle", func(c C, _ core.Event) (*core.Request, error) {
		return core.Delete(DeletingArticleOp, api.ArticlePath(c.Slug)), nil
	})

	spec := &core.Spec[C]{
		Name:    ArticleRegion,
		Doc:     "One article and the reader's favorite and follow of it.",
		Initial: "fetching",
		Nodes: map[string]*core.Node[C]{
			"fetching": {
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
							Actions: []core.Action[C]{assignArticle},
							Target:  "hasContent",
						},
						{
							Event:   core.ErrorKind(GetArticleOp),
							Actions: []core.Action[C]{assignErrors},
							Target:  "failed",
						},
					},
				},
			},
			"hasContent": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   ToggleFavoriteKind,
							Actions: []core.Action[C]{toggleFavorite},
						},
						{
							Event:   core.DoneKind(FavoritingOp),
							Actions: []core.Action[C]{reconcileFavorite},
						},
						{
							Event:   core.ErrorKind(FavoritingOp),
							Actions: []core.Action[C]{revertFavorite},
						},
						{
							Event:   ToggleFollowKind,
							Actions: []core.Action[C]{toggleFollow},
						},
						{
							Event:   core.DoneKind(FollowingOp),
							Actions: []core.Action[C]{reconcileFollow},
						},
						{
							Event:   core.ErrorKind(FollowingOp),
							Actions: []core.Action[C]{revertFollow},
						},
						{
							Event:   DeleteArticleKind,
							Actions: []core.Action[C]{deleteArticle},
						},
						{
							Event:   core.DoneKind(DeletingArticleOp),
							Actions: []core.Action[C]{goHome[C]()},
						},
						{
							Event:   core.ErrorKind(DeletingArticleOp),
							Actions: []core.Action[C]{assignErrors},
						},
					},
				},
			},
			"failed": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:  RetryKind,
							Target: "fetching",
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

// CommentsSpec makes the Spec of the Article process's comments
// region.
func CommentsSpec(opts Options) (*core.Spec[CommentsContext], error) {
	type C = CommentsContext

	assignComments := core.Assign("assignComments", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.CommentListResponse](ev)
		if err != nil {
			return c, err
		}
		c.Comments = resp.Comments
		c.Errors = nil
		return c, nil
	})

	assignErrors := core.Assign("assignErrors", func(c C, ev core.Event) (C, error) {
		c.Errors = failure(ev)
		return c, nil
	})

	prependComment := core.Assign("prependComment", func(c C, ev core.Event) (C, error) {
		resp, err := payload[api.CommentResponse](ev)
		if err != nil {
			return c, err
		}
		acc := make([]api.Comment, 0, len(c.Comments)+1)
		acc = append(acc, resp.Comment)
		c.Comments = append(acc, c.Comments...)
		return c, nil
	})

	createComment := core.Spawner("createComment", func(c C, ev core.Event) (*core.Request, error) {
		cc, is := ev.(CreateComment)
		if !is {
			return nil, &UnexpectedEvent{Kind: ev.Kind()}
		}
		return core.Post(CreatingCommentOp, api.CommentsPath(c.Slug), api.CommentRequest{
			Comment: api.NewComment{Body: cc.Body},
		}), nil
	})

	removeComment := core.Assign("removeComment", func(c C, ev core.Event) (C, error) {
		d, is := ev.(DeleteComment)
		if !is {
			return c, &UnexpectedEvent{Kind: ev.Kind()}
		}
		acc := make([]api.Comment, 0, len(c.Comments))
		for _, x := range c.Comments {
			if x.ID != d.ID {
				acc = append(acc, x)
			}
		}
		c.Comments = acc
		return c, nil
	})

	deleteComment := core.Spawner("deleteComment", func(c C, ev core.Event) (*core.Request, error) {
		d, is := ev.(DeleteComment)
		if !is {
			return nil, &UnexpectedEvent{Kind: ev.Kind()}
		}
		return core.Delete(DeletingCommentOp, api.CommentPath(c.Slug, d.ID)), nil
	})

	hasComments := func(_ C, ev core.Event) bool {
		return 0 < len(commentsOf(ev))
	}

	// lastComment reports whether the deletion leaves no comments.
	lastComment := func(c C, ev core.Event) bool {
		d, _ := ev.(DeleteComment)
		for _, x := range c.Comments {
			if x.ID != d.ID {
				return false
			}
		}
		return true
	}

	spec := &core.Spec[C]{
		Name:    CommentsRegion,
		Doc:     "The comments on one article.",
		Initial: "comments",
		Nodes: map[string]*core.Node[C]{
			"comments": {
				Initial: "fetching",
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   core.DoneKind(CreatingCommentOp),
							Actions: []core.Action[C]{prependComment},
							Target:  "comments.hasContent",
						},
					},
				},
			},
			"comments.fetching": {
				Invoke: &core.Invoke[C]{
					Op: GetCommentsOp,
					Src: func(c C) (*core.Request, error) {
						return core.Get("", api.CommentsPath(c.Slug)), nil
					},
				},
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:     core.DoneKind(GetCommentsOp),
							Guard:     hasComments,
							GuardName: "hasComments",
							Actions:   []core.Action[C]{assignComments},
							Target:    "comments.hasContent",
						},
						{
							Event:   core.DoneKind(GetCommentsOp),
							Actions: []core.Action[C]{assignComments},
							Target:  "comments.noContent",
						},
						{
							Event:   core.ErrorKind(GetCommentsOp),
							Actions: []core.Action[C]{assignErrors},
							Target:  "comments.failed",
						},
					},
				},
			},
			"comments.hasContent": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   CreateCommentKind,
							Actions: []core.Action[C]{createComment},
						},
						{
							Event:     DeleteCommentKind,
							Guard:     lastComment,
							GuardName: "lastComment",
							Actions:   []core.Action[C]{removeComment, deleteComment},
							Target:    "comments.noContent",
						},
						{
							Event:   DeleteCommentKind,
							Actions: []core.Action[C]{removeComment, deleteComment},
						},
					},
				},
			},
			"comments.noContent": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:   CreateCommentKind,
							Actions: []core.Action[C]{createComment},
							Target:  "comments.hasContent",
						},
					},
				},
			},
			"comments.failed": {
				Branches: &core.Branches[C]{
					Branches: []*core.Branch[C]{
						{
							Event:  RetryKind,
							Target: "comments.fetching",
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

// commentsOf peeks at the comments in a getComments Done.
func commentsOf(ev core.Event) []api.Comment {
	resp, err := payload[api.CommentListResponse](ev)
	if err != nil {
		return nil
	}
	return resp.Comments
}
