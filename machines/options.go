package machines

import (
	"time"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"

	"github.com/golang-jwt/jwt/v5"
)

// Options are the capabilities the host lends to processes.
type Options struct {
	// Authenticated reports whether the Session has a current
	// user.  Nil means never.
	Authenticated func() bool

	// Now is the clock.  Nil means time.Now.
	Now func() time.Time
}

func (o Options) authenticated() bool {
	return o.Authenticated != nil && o.Authenticated()
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func notAuthenticated[C any](o Options) core.Guard[C] {
	return func(C, core.Event) bool {
		return !o.authenticated()
	}
}

// UsableToken reports whether a persisted token is worth trying.
//
// A JWT whose "exp" has passed is not.  A token that isn't a JWT (or
// has no "exp") is.
func UsableToken(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.Before(exp.Time)
}

// payload decodes the data of a Done.
func payload[T any](ev core.Event) (T, error) {
	var x T
	d, is := ev.(core.Done)
	if !is {
		return x, &UnexpectedEvent{Kind: ev.Kind()}
	}
	err := d.Decode(&x)
	return x, err
}

// failure extracts the Errors of a Failed.
func failure(ev core.Event) api.Errors {
	if f, is := ev.(core.Failed); is {
		return api.ErrorsOf(f.Err)
	}
	return nil
}

// refOf gives the correlation ref of a completion.
func refOf(ev core.Event) string {
	if c, is := ev.(core.Completion); is {
		_, ref := c.Completes()
		return ref
	}
	return ""
}

// UnexpectedEvent occurs when an action gets an Event it can't use.
type UnexpectedEvent struct {
	Kind string
}

func (e *UnexpectedEvent) Error() string {
	return "unexpected event " + e.Kind
}

// with returns a copy of m with k set to v.
func with[K comparable, V any](m map[K]V, k K, v V) map[K]V {
	acc := make(map[K]V, len(m)+1)
	for k0, v0 := range m {
		acc[k0] = v0
	}
	acc[k] = v
	return acc
}

// without returns a copy of m without k.
func without[K comparable, V any](m map[K]V, k K) map[K]V {
	acc := make(map[K]V, len(m))
	for k0, v0 := range m {
		if k0 != k {
			acc[k0] = v0
		}
	}
	return acc
}
