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

// User is the authenticated account.
type User struct {
	Email    string  `json:"email"`
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Bio      string  `json:"bio"`
	Image    *string `json:"image"`
}

// Profile is the public view of a user.
type Profile struct {
	Username  string  `json:"username"`
	Bio       string  `json:"bio"`
	Image     *string `json:"image"`
	Following bool    `json:"following"`
}

type Article struct {
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Body           string   `json:"body"`
	TagList        []string `json:"tagList"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
	Favorited      bool     `json:"favorited"`
	FavoritesCount int      `json:"favoritesCount"`
	Author         Profile  `json:"author"`
}

type Comment struct {
	ID        int     `json:"id"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
	Body      string  `json:"body"`
	Author    Profile `json:"author"`
}

type UserResponse struct {
	User User `json:"user"`
}

type ProfileResponse struct {
	Profile Profile `json:"profile"`
}

type ArticleResponse struct {
	Article Article `json:"article"`
}

type ArticleListResponse struct {
	Articles      []Article `json:"articles"`
	ArticlesCount int       `json:"articlesCount"`
}

type CommentResponse struct {
	Comment Comment `json:"comment"`
}

type CommentListResponse struct {
	Comments []Comment `json:"comments"`
}

type TagListResponse struct {
	Tags []string `json:"tags"`
}

// Credentials are the auth form values.  Name is present only for
// sign up.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewUser is the body of a sign up.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login is the body of a log in.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserSettings are the settings form values.
type UserSettings struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Bio      string  `json:"bio"`
	Image    *string `json:"image"`
	Password string  `json:"password,omitempty"`
}

// ArticleValues are the editor form values.
type ArticleValues struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList"`
}

// Values extracts the editable fields.
func (a Article) Values() ArticleValues {
	return ArticleValues{
		Title:       a.Title,
		Description: a.Description,
		Body:        a.Body,
		TagList:     a.TagList,
	}
}

type NewComment struct {
	Body string `json:"body"`
}

// Request envelopes.

type SignupRequest struct {
	User NewUser `json:"user"`
}

type LoginRequest struct {
	User Login `json:"user"`
}

type SettingsRequest struct {
	User UserSettings `json:"user"`
}

type ArticleRequest struct {
	Article ArticleValues `json:"article"`
}

type CommentRequest struct {
	Comment NewComment `json:"comment"`
}
