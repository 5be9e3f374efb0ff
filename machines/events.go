package machines

import (
	"encoding/json"
	"fmt"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
)

// Event kinds that processes handle.
const (
	LogInKind           = "logIn"
	LogOutKind          = "logOut"
	UpdateUserKind      = "updateUser"
	SubmitKind          = "submit"
	RetryKind           = "retry"
	RefreshKind         = "refresh"
	UpdateFeedKind      = "updateFeed"
	ToggleFavoriteKind  = "toggleFavorite"
	ToggleFollowKind    = "toggleFollow"
	ToggleFollowingKind = "toggleFollowing"
	DeleteArticleKind   = "deleteArticle"
	CreateCommentKind   = "createComment"
	DeleteCommentKind   = "deleteComment"
)

type LogIn struct {
	User api.User `json:"user"`
}

func (LogIn) Kind() string { return LogInKind }

type LogOut struct{}

func (LogOut) Kind() string { return LogOutKind }

type UpdateUser struct {
	User api.User `json:"user"`
}

func (UpdateUser) Kind() string { return UpdateUserKind }

// Submit carries the auth form.  Name is present only for sign up.
type Submit struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (Submit) Kind() string { return SubmitKind }

// SubmitArticle carries the editor form.
type SubmitArticle struct {
	Values api.ArticleValues `json:"values"`
}

func (SubmitArticle) Kind() string { return SubmitKind }

// SubmitSettings carries the settings form.
type SubmitSettings struct {
	Values api.UserSettings `json:"values"`
}

func (SubmitSettings) Kind() string { return SubmitKind }

type Retry struct{}

func (Retry) Kind() string { return RetryKind }

type Refresh struct{}

func (Refresh) Kind() string { return RefreshKind }

type UpdateFeed struct {
	Query api.FeedQuery `json:"query"`
}

func (UpdateFeed) Kind() string { return UpdateFeedKind }

// ToggleFavorite names the article by Slug in a feed.  The Article
// process ignores Slug.
type ToggleFavorite struct {
	Slug string `json:"slug,omitempty"`
}

func (ToggleFavorite) Kind() string { return ToggleFavoriteKind }

// ToggleFollow follows or unfollows an article's author.
type ToggleFollow struct {
	Username string `json:"username,omitempty"`
}

func (ToggleFollow) Kind() string { return ToggleFollowKind }

// ToggleFollowing follows or unfollows a profile.
type ToggleFollowing struct{}

func (ToggleFollowing) Kind() string { return ToggleFollowingKind }

type DeleteArticle struct{}

func (DeleteArticle) Kind() string { return DeleteArticleKind }

type CreateComment struct {
	Body string `json:"body"`
}

func (CreateComment) Kind() string { return CreateCommentKind }

type DeleteComment struct {
	ID int `json:"id"`
}

func (DeleteComment) Kind() string { return DeleteCommentKind }

// UnknownEvent occurs when an event type can't be decoded for a
// process kind.
type UnknownEvent struct {
	Process string
	Type    string
}

func (e *UnknownEvent) Error() string {
	return fmt.Sprintf("unknown event %q for %q", e.Type, e.Process)
}

type decoder func(json.RawMessage) (core.Event, error)

func decodeAs[T core.Event]() decoder {
	return func(js json.RawMessage) (core.Event, error) {
		var x T
		if err := json.Unmarshal(js, &x); err != nil {
			return nil, err
		}
		return x, nil
	}
}

// decoders maps event type to decoder.  The "submit" payload depends
// on the process kind, so it's keyed by kind first.
var (
	decoders = map[string]decoder{
		LogInKind:           decodeAs[LogIn](),
		LogOutKind:          decodeAs[LogOut](),
		UpdateUserKind:      decodeAs[UpdateUser](),
		RetryKind:           decodeAs[Retry](),
		RefreshKind:         decodeAs[Refresh](),
		UpdateFeedKind:      decodeAs[UpdateFeed](),
		ToggleFavoriteKind:  decodeAs[ToggleFavorite](),
		ToggleFollowKind:    decodeAs[ToggleFollow](),
		ToggleFollowingKind: decodeAs[ToggleFollowing](),
		DeleteArticleKind:   decodeAs[DeleteArticle](),
		CreateCommentKind:   decodeAs[CreateComment](),
		DeleteCommentKind:   decodeAs[DeleteComment](),
	}

	submitDecoders = map[string]decoder{
		AuthKind:     decodeAs[Submit](),
		EditorKind:   decodeAs[SubmitArticle](),
		SettingsKind: decodeAs[SubmitSettings](),
	}
)

// DecodeEvent decodes a JSON event like {"type":"toggleFavorite",
// "slug":"how-to"} for a process of the given kind.
func DecodeEvent(kind string, js []byte) (core.Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(js, &head); err != nil {
		return nil, err
	}

	d, have := decoders[head.Type]
	if head.Type == SubmitKind {
		d, have = submitDecoders[kind]
	}
	if !have {
		return nil, &UnknownEvent{Process: kind, Type: head.Type}
	}
	return d(js)
}
