package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Comcast/conduit/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) GetToken(context.Context) (string, error) {
	return string(s), nil
}

func TestRequestStripsErrors(t *testing.T) {
	var (
		gotAuth, gotType, gotBody, gotPath string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		bs, _ := io.ReadAll(r.Body)
		gotBody = string(bs)
		w.Write([]byte(`{"user":{"username":"jake"},"errors":{}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, staticToken("jwt"), time.Second)
	require.NoError(t, err)

	payload, err := c.Request(context.Background(), "PUT", UserPath, SettingsRequest{User: UserSettings{Username: "jake"}})
	require.NoError(t, err)

	assert.Equal(t, "Token jwt", gotAuth)
	assert.Equal(t, ContentType, gotType)
	assert.Equal(t, "/user", gotPath)
	assert.Contains(t, gotBody, `"username":"jake"`)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &m))
	_, have := m["errors"]
	assert.False(t, have)

	resp, err := Decode[UserResponse](payload)
	require.NoError(t, err)
	assert.Equal(t, "jake", resp.User.Username)
}

func TestRequestNoToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"tags":["go"]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, staticToken(""), time.Second)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), core.Get("getTags", TagsPath))
	require.NoError(t, err)
	assert.Equal(t, "", gotAuth)
}

func TestRequestValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(422)
		w.Write([]byte(`{"errors":{"email":["is invalid"],"password":["can't be blank"]}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil, time.Second)
	require.NoError(t, err)

	_, err = c.Request(context.Background(), "POST", LoginPath, LoginRequest{})
	var e *APIError
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 422, e.Status)
	assert.Equal(t, []string{"email is invalid", "password can't be blank"}, e.Errors.Messages())
}

func TestRequestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil, time.Second)
	require.NoError(t, err)

	_, err = c.Request(context.Background(), "GET", TagsPath, nil)
	es := ErrorsOf(err)
	require.Len(t, es[RequestField], 1)

	// Nobody listening.
	srv.Close()
	_, err = c.Request(context.Background(), "GET", TagsPath, nil)
	es = ErrorsOf(err)
	require.Len(t, es[RequestField], 1)
}

func TestStripEmptyBody(t *testing.T) {
	payload, err := Strip(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(payload))
}

func TestErrorsOf(t *testing.T) {
	assert.Nil(t, ErrorsOf(nil))
	assert.Equal(t, Errors{"request": {"boom"}}, ErrorsOf(errors.New("boom")))
	wrapped := &APIError{Errors: Errors{"body": {"can't be empty"}}}
	assert.Equal(t, Errors{"body": {"can't be empty"}}, ErrorsOf(wrapped))
}
