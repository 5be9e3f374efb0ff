package machines

import (
	"errors"
	"testing"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/util/testutil"

	"github.com/stretchr/testify/require"
)

func profileOf(p *testutil.Probe) ProfileContext {
	return p.Context("").(ProfileContext)
}

func loadedProfile(t *testing.T, opts Options, following bool) *testutil.Probe {
	t.Helper()
	p := start(t, ProfileKind, Params{Username: "jake"}, opts)
	require.Equal(t, "loading", p.Node(""))
	req := p.Request(ProfileRequestOp)
	require.Equal(t, "profiles/jake", req.Path)

	p.Done(req, api.ProfileResponse{
		Profile: api.Profile{Username: "jake", Following: following},
	})
	require.Equal(t, "profileLoaded", p.Node(""))
	return p
}

func TestProfileFollow(t *testing.T) {
	p := loadedProfile(t, signedIn, false)

	p.Send(ToggleFollowing{})
	require.True(t, profileOf(p).Profile.Following)
	req := p.Request(FollowRequestOp)
	require.Equal(t, "POST", req.Method)
	require.Equal(t, "profiles/jake/follow", req.Path)

	p.Done(req, api.ProfileResponse{
		Profile: api.Profile{Username: "jake", Bio: "new", Following: true},
	})
	require.True(t, profileOf(p).Profile.Following)
	require.Equal(t, "new", profileOf(p).Profile.Bio)

	p.Send(ToggleFollowing{})
	require.False(t, profileOf(p).Profile.Following)
	require.Equal(t, "DELETE", p.Request(FollowRequestOp).Method)
}

func TestProfileFollowRevertsOnFailure(t *testing.T) {
	p := loadedProfile(t, signedIn, true)

	p.Send(ToggleFollowing{})
	require.False(t, profileOf(p).Profile.Following)

	p.Fail(p.Request(FollowRequestOp), errors.New("offline"))
	require.True(t, profileOf(p).Profile.Following)
	require.Empty(t, profileOf(p).Pending)
}

func TestProfileFollowUnauthenticated(t *testing.T) {
	p := loadedProfile(t, signedOut, false)

	p.Send(ToggleFollowing{})
	require.Equal(t, []core.Effect{Navigate{Path: "/register"}}, p.LastEffects())
	require.False(t, profileOf(p).Profile.Following)
	require.Empty(t, p.Requests(FollowRequestOp))
}

func TestProfileErrored(t *testing.T) {
	p := start(t, ProfileKind, Params{Username: "nobody"}, signedIn)
	p.Fail(p.Request(ProfileRequestOp), &api.APIError{
		Status: 404,
		Errors: api.Errors{"profile": {"not found"}},
	})
	require.Equal(t, "errored", p.Node(""))
	require.Equal(t, []string{"profile not found"}, profileOf(p).Errors.Messages())
}
