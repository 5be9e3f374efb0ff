package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedQueryPath(t *testing.T) {
	tests := []struct {
		q        FeedQuery
		expected string
	}{
		{DefaultFeedQuery(), "articles?limit=20&offset=0"},
		{FeedQuery{Limit: 10, Offset: 20, Feed: "me"}, "articles/feed?limit=10&offset=20"},
		{FeedQuery{Limit: 20, Tag: "go"}, "articles?limit=20&offset=0&tag=go"},
		{FeedQuery{Limit: 20, Author: "jake", Favorited: "ann"}, "articles?limit=20&offset=0&author=jake&favorited=ann"},
		{FeedQuery{Limit: 20, Feed: "global", Tag: "a b"}, "articles?limit=20&offset=0&tag=a+b"},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, test.q.Path())
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "articles/how-to/favorite", FavoritePath("how-to"))
	assert.Equal(t, "articles/how-to/comments/7", CommentPath("how-to", 7))
	assert.Equal(t, "profiles/jake/follow", FollowPath("jake"))
}
