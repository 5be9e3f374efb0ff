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

package api

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultLimit is the page size of a FeedQuery.
const DefaultLimit = 20

// FeedQuery selects a page of articles.
type FeedQuery struct {
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	Feed      string `json:"feed,omitempty"`
	Author    string `json:"author,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Favorited string `json:"favorited,omitempty"`
}

// DefaultFeedQuery is the first page of the global feed.
func DefaultFeedQuery() FeedQuery {
	return FeedQuery{
		Limit: DefaultLimit,
	}
}

// Path renders the query as an API path.
//
// Feed "me" selects the followed-authors feed.  Limit and offset are
// always present.  The filters are present only when not empty.
func (q FeedQuery) Path() string {
	var b strings.Builder
	if q.Feed == "me" {
		b.WriteString("articles/feed?")
	} else {
		b.WriteString("articles?")
	}
	b.WriteString("limit=" + strconv.Itoa(q.Limit))
	b.WriteString("&offset=" + strconv.Itoa(q.Offset))
	for _, kv := range [][2]string{
		{"author", q.Author},
		{"tag", q.Tag},
		{"favorited", q.Favorited},
	} {
		if kv[1] != "" {
			b.WriteString("&" + kv[0] + "=" + url.QueryEscape(kv[1]))
		}
	}
	return b.String()
}

const (
	UserPath  = "user"
	UsersPath = "users"
	LoginPath = "users/login"
	TagsPath  = "tags"

	ArticlesPath = "articles"
)

func ArticlePath(slug string) string {
	return "articles/" + url.PathEscape(slug)
}

func FavoritePath(slug string) string {
	return ArticlePath(slug) + "/favorite"
}

func CommentsPath(slug string) string {
	return ArticlePath(slug) + "/comments"
}

func CommentPath(slug string, id int) string {
	return CommentsPath(slug) + "/" + strconv.Itoa(id)
}

func ProfilePath(username string) string {
	return "profiles/" + url.PathEscape(username)
}

func FollowPath(username string) string {
	return ProfilePath(username) + "/follow"
}
