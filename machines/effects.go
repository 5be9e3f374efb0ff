package machines

import (
	"github.com/Comcast/conduit/core"
)

// Navigate asks the host to go to a path.
type Navigate struct {
	Path string `json:"path"`
}

func (Navigate) Effect() string { return "navigate" }

// SaveToken asks the host to persist the auth token.
type SaveToken struct {
	Token string `json:"token"`
}

func (SaveToken) Effect() string { return "saveToken" }

// ClearToken asks the host to remove the persisted auth token.
type ClearToken struct{}

func (ClearToken) Effect() string { return "clearToken" }

// Notify asks the host to deliver an Event to another process.
type Notify struct {
	To    string     `json:"to"`
	Event core.Event `json:"event"`
}

func (Notify) Effect() string { return "notify" }

// SpawnChild asks the host to start a child process of the given
// kind.
type SpawnChild struct {
	Kind string `json:"kind"`
}

func (SpawnChild) Effect() string { return "spawn" }

func navigate[C any](name, path string) core.Action[C] {
	return core.Emit(name, func(C, core.Event) []core.Effect {
		return []core.Effect{Navigate{Path: path}}
	})
}

func goToSignup[C any]() core.Action[C] {
	return navigate[C]("goToSignup", "/register")
}

func goHome[C any]() core.Action[C] {
	return navigate[C]("goHome", "/")
}
