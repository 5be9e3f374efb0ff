package machines

import (
	"testing"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/util/testutil"

	"github.com/stretchr/testify/require"
)

func editorOf(p *testutil.Probe) EditorContext {
	return p.Context("").(EditorContext)
}

var draft = api.ArticleValues{
	Title:       "How to train your dragon",
	Description: "Ever wonder how?",
	Body:        "You have to believe",
	TagList:     []string{"dragons"},
}

func TestEditorCreate(t *testing.T) {
	p := start(t, EditorKind, Params{}, signedIn)
	require.Equal(t, "idle.creating", p.Node(""))
	require.Empty(t, p.Requests(GetArticleOp))

	p.Send(SubmitArticle{Values: draft})
	require.Equal(t, "submitting.creating", p.Node(""))

	req := p.Request(ArticleRequestOp)
	require.Equal(t, "POST", req.Method)
	require.Equal(t, api.ArticlesPath, req.Path)
	require.Equal(t, api.ArticleRequest{Article: draft}, req.Body)

	p.Done(req, api.ArticleResponse{Article: api.Article{Slug: "how-to-train-your-dragon"}})
	require.Equal(t, "success", p.Node(""))
	require.Equal(t, []core.Effect{Navigate{Path: "/article/how-to-train-your-dragon"}}, p.LastEffects())
	require.Equal(t, "how-to-train-your-dragon", editorOf(p).Article.Slug)
}

func TestEditorUpdate(t *testing.T) {
	p := start(t, EditorKind, Params{Slug: "old"}, signedIn)
	require.Equal(t, "idle.updating", p.Node(""))

	get := p.Request(GetArticleOp)
	require.Equal(t, "articles/old", get.Path)

	old := api.Article{Slug: "old", Title: "Old", Body: "b", TagList: []string{"x"}}
	p.Done(get, api.ArticleResponse{Article: old})
	require.Equal(t, "idle.updating", p.Node(""))
	require.Equal(t, old.Values(), *editorOf(p).Values)

	p.Send(SubmitArticle{Values: draft})
	require.Equal(t, "submitting.updating", p.Node(""))
	put := p.Request(ArticleRequestOp)
	require.Equal(t, "PUT", put.Method)
	require.Equal(t, "articles/old", put.Path)

	p.Fail(put, invalid)
	require.Equal(t, "errored", p.Node(""))
	require.Equal(t, invalid.Errors, editorOf(p).Errors)

	// A retry from errored goes back to updating.
	p.Send(SubmitArticle{Values: draft})
	require.Equal(t, "submitting.updating", p.Node(""))
	require.Equal(t, "PUT", p.Request(ArticleRequestOp).Method)

	p.Done(p.Request(ArticleRequestOp), api.ArticleResponse{Article: api.Article{Slug: "old"}})
	require.Equal(t, "success", p.Node(""))
	require.Equal(t, []core.Effect{Navigate{Path: "/article/old"}}, p.LastEffects())
}

func TestEditorCreateRetry(t *testing.T) {
	p := start(t, EditorKind, Params{}, signedIn)
	p.Send(SubmitArticle{Values: api.ArticleValues{}})
	p.Fail(p.Request(ArticleRequestOp), invalid)
	require.Equal(t, "errored", p.Node(""))

	p.Send(SubmitArticle{Values: draft})
	require.Equal(t, "submitting.creating", p.Node(""))
	req := p.Request(ArticleRequestOp)
	require.Equal(t, "POST", req.Method)
	require.Equal(t, api.ArticleRequest{Article: draft}, req.Body)
}

func TestEditorStaleSubmission(t *testing.T) {
	p := start(t, EditorKind, Params{}, signedIn)
	p.Send(SubmitArticle{Values: draft})
	first := p.Request(ArticleRequestOp)
	p.Fail(first, invalid)

	p.Send(SubmitArticle{Values: draft})

	r := p.Done(first, api.ArticleResponse{Article: api.Article{Slug: "late"}})
	require.False(t, r.Changed)
	require.Equal(t, "submitting.creating", p.Node(""))
}
