package machines

import (
	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
)

// Toggle remembers what an optimistic favorite or follow replaced so
// that a failed request can put it back.
type Toggle struct {
	// Key is the slug or username that was toggled.
	Key string `json:"key"`

	Was   bool `json:"was"`
	Count int  `json:"count,omitempty"`
}

// Pending maps a spawned request's ref to its Toggle.
type Pending map[string]Toggle

func indexOf(articles []api.Article, slug string) int {
	for i, a := range articles {
		if a.Slug == slug {
			return i
		}
	}
	return -1
}

// updateArticle returns a copy of the articles with f applied to the
// one with the given slug.
func updateArticle(articles []api.Article, slug string, f func(*api.Article)) []api.Article {
	acc := make([]api.Article, len(articles))
	copy(acc, articles)
	if i := indexOf(acc, slug); 0 <= i {
		f(&acc[i])
	}
	return acc
}

// favorited flips the article to the given favorited value and
// adjusts its count.
func favorited(a *api.Article, on bool) {
	if a.Favorited == on {
		return
	}
	a.Favorited = on
	if on {
		a.FavoritesCount++
	} else if 0 < a.FavoritesCount {
		a.FavoritesCount--
	}
}

// favoriteRequest makes the request that sets the article's favorite
// to the given value.
func favoriteRequest(slug string, on bool) *core.Request {
	if on {
		return core.Post(FavoritingOp, api.FavoritePath(slug), nil)
	}
	return core.Delete(FavoritingOp, api.FavoritePath(slug))
}

func followRequest(op, username string, on bool) *core.Request {
	if on {
		return core.Post(op, api.FollowPath(username), nil)
	}
	return core.Delete(op, api.FollowPath(username))
}
