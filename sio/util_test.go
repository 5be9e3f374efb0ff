package sio

import (
	"testing"

	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/machines"

	"github.com/stretchr/testify/require"
)

func TestTagged(t *testing.T) {
	require.Equal(t, map[string]interface{}{
		"effect": "navigate",
		"path":   "/",
	}, Tagged(machines.Navigate{Path: "/"}))

	require.Equal(t, map[string]interface{}{
		"effect": "saveToken",
		"token":  "<redacted>",
	}, Tagged(machines.SaveToken{Token: "secret"}))

	require.Equal(t, map[string]interface{}{
		"effect": "clearToken",
	}, Tagged(machines.ClearToken{}))

	m := Tagged(core.Get("getFeed", "articles"))
	require.Equal(t, "request", m["effect"])
	require.Equal(t, "GET", m["method"])
}

type shout string

func (shout) Effect() string { return "shout" }

type leaky struct {
	Token string        `json:"token"`
	C     chan struct{} `json:"c"`
}

func (leaky) Effect() string { return "leaky" }

func TestTaggedNotAnObject(t *testing.T) {
	require.Equal(t, map[string]interface{}{
		"effect": "shout",
	}, Tagged(shout("hey")))

	// Nothing from an Effect that can't be marshaled survives.
	require.Equal(t, map[string]interface{}{
		"effect": "leaky",
	}, Tagged(leaky{Token: "secret", C: make(chan struct{})}))
}

func TestJShort(t *testing.T) {
	s := JShort(string(make([]byte, 100)))
	require.Len(t, s, 73)
}
