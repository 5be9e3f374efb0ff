package sio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Comcast/conduit/api"
	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/crew"
	"github.com/Comcast/conduit/machines"
	"github.com/Comcast/conduit/storage"
	"github.com/Comcast/conduit/util/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var jake = api.User{
	Username: "jake",
	Email:    "jake@jake.jake",
	Token:    "opaque",
}

type fixture struct {
	*Host
	chans  *Chans
	api    *testutil.Requester
	tokens *storage.Memory
	nav    *History
}

func newFixture(t *testing.T, token string) *fixture {
	f := &fixture{
		chans:  NewChans(),
		api:    testutil.NewRequester(),
		tokens: storage.NewMemory(token),
		nav:    NewHistory(),
	}
	f.api.On("GET", api.UserPath, api.UserResponse{User: jake})
	h, err := NewHost(context.Background(), nil, f.chans, f.api, f.tokens, f.nav)
	require.NoError(t, err)
	f.Host = h
	return f
}

// next processes the next message a request posted.
func (f *fixture) next(t *testing.T) *Result {
	select {
	case msg := <-f.chans.In:
		r, err := f.ProcessMsg(context.Background(), msg)
		require.NoError(t, err)
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no completion")
	}
	return nil
}

func TestHostStartWithoutToken(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, "")
	r, err := f.Start(context.Background())
	require.NoError(t, err)

	require.Contains(t, r.Changed, machines.SessionID)
	require.Contains(t, r.Changed, machines.AuthKind)
	require.True(t, r.Changed[machines.SessionID].Snapshot.Matches("", "user.unauthenticated"))
	require.True(t, r.Changed[machines.AuthKind].Snapshot.Matches("", "idle"))
	require.False(t, f.Authenticated())
	require.Empty(t, f.api.Called())
	require.Empty(t, r.Errors)
}

func TestHostRestoresSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, "opaque")
	_, err := f.Start(context.Background())
	require.NoError(t, err)
	require.False(t, f.Authenticated())

	r := f.next(t)
	f.Wait()

	require.True(t, f.Authenticated())
	require.Equal(t, "jake", f.CurrentUser().Username)
	require.Equal(t, []string{"GET user"}, f.api.Called())
	require.Contains(t, r.Changed, machines.SessionID)
	require.NotContains(t, r.Changed, machines.AuthKind)
}

func TestHostRestoreFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, "opaque")
	f.api.Failing("GET", api.UserPath, errors.New("unauthorized"))
	_, err := f.Start(context.Background())
	require.NoError(t, err)

	f.next(t)
	f.Wait()

	require.False(t, f.Authenticated())
	// Only the in-memory token is forgotten.
	tok, err := f.tokens.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "opaque", tok)
}

func TestHostLogOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	f := newFixture(t, "opaque")
	_, err := f.Start(ctx)
	require.NoError(t, err)
	f.next(t)
	f.Wait()

	r, err := f.ProcessMsg(ctx, &Raw{
		To: machines.SessionID,
		JS: []byte(`{"type":"logOut"}`),
	})
	require.NoError(t, err)

	require.False(t, f.Authenticated())
	require.Equal(t, "/", f.nav.Current())
	tok, err := f.tokens.GetToken(ctx)
	require.NoError(t, err)
	require.Empty(t, tok)
	require.Len(t, r.Emitted, 1)
	require.Equal(t, []string{"clearToken", "navigate"}, names(r.Emitted[0]))
}

func TestHostSignUpNotifiesSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	f := newFixture(t, "")
	f.api.On("POST", api.UsersPath, api.UserResponse{User: jake})
	_, err := f.Start(ctx)
	require.NoError(t, err)

	_, err = f.ProcessMsg(ctx, &Raw{
		To: machines.AuthKind,
		JS: []byte(`{"type":"submit","name":"jake","email":"jake@jake.jake","password":"pw"}`),
	})
	require.NoError(t, err)

	r := f.next(t)
	f.Wait()

	// The auth process's Notify is routed to the Session in the
	// same pass.
	require.True(t, f.Authenticated())
	require.Contains(t, r.Changed, machines.SessionID)
	require.Contains(t, r.Changed, machines.AuthKind)
	require.Equal(t, "/", f.nav.Current())
	tok, err := f.tokens.GetToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "opaque", tok)
}

func TestHostUnknownProcess(t *testing.T) {
	f := newFixture(t, "")
	r, err := f.ProcessMsg(context.Background(), &Raw{
		To: "nope",
		JS: []byte(`{"type":"retry"}`),
	})
	require.NoError(t, err)
	require.Len(t, r.Errors, 1)
	require.Len(t, r.Diag, 1)
	require.Contains(t, r.Diag[0].Err, `unknown process "nope"`)
}

func TestHostUnknownEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	_, err := f.Start(ctx)
	require.NoError(t, err)

	r, err := f.ProcessMsg(ctx, &Raw{
		To: machines.SessionID,
		JS: []byte(`{"type":"bogus"}`),
	})
	require.NoError(t, err)
	require.Len(t, r.Errors, 1)
	require.Empty(t, r.Changed)
}

func TestHostCloseReportsDeletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	f.api.On("GET", "tags", api.TagListResponse{Tags: []string{"go"}})

	_, err := f.ProcessMsg(ctx, &Open{ID: "tags", Kind: machines.TagsKind})
	require.NoError(t, err)
	f.next(t)
	f.Wait()

	_, have := f.Process("tags")
	require.True(t, have)

	r, err := f.ProcessMsg(ctx, &Close{ID: "tags"})
	require.NoError(t, err)
	require.True(t, r.Changed["tags"].Deleted)

	_, have = f.Process("tags")
	require.False(t, have)
}

func TestHostSettingsGetsSessionUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "opaque")
	_, err := f.Start(ctx)
	require.NoError(t, err)
	f.next(t)
	f.Wait()

	r, err := f.ProcessMsg(ctx, &Open{ID: "settings", Kind: machines.SettingsKind})
	require.NoError(t, err)

	c := r.Changed["settings"].Snapshot.Context.(machines.SettingsContext)
	require.Equal(t, "jake", c.Values.Username)
	require.Equal(t, "jake@jake.jake", c.Values.Email)
}

func TestHostUnchangedNotReported(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	_, err := f.Start(ctx)
	require.NoError(t, err)

	// Logging out while unauthenticated goes nowhere.
	r, err := f.ProcessMsg(ctx, &Raw{
		To: machines.SessionID,
		JS: []byte(`{"type":"logOut"}`),
	})
	require.NoError(t, err)
	require.Empty(t, r.Changed)
	require.Empty(t, r.Emitted)
}

func TestHostSnapshotsResendsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	_, err := f.Start(ctx)
	require.NoError(t, err)

	// The Session spawned auth, and neither has changed since.
	r, err := f.ProcessMsg(ctx, &Snapshots{})
	require.NoError(t, err)
	require.Empty(t, r.Errors)
	require.Len(t, r.Changed, 2)
	require.True(t, r.Changed[machines.SessionID].Snapshot.Matches("", "user.unauthenticated"))
	require.NotNil(t, r.Changed[machines.AuthKind].Snapshot)

	// The resend doesn't disturb the diffing that follows.
	r, err = f.ProcessMsg(ctx, &Raw{
		To: machines.SessionID,
		JS: []byte(`{"type":"logOut"}`),
	})
	require.NoError(t, err)
	require.Empty(t, r.Changed)
}

func TestHostEmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	r, err := f.Start(ctx)
	require.NoError(t, err)

	go f.Emit(ctx, r)
	select {
	case got := <-f.chans.Out:
		require.Contains(t, got.Changed, machines.SessionID)
	case <-time.After(5 * time.Second):
		t.Fatal("nothing emitted")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.False(t, f.Emit(cancelled, r))
}

func TestHostDropsCompletionForClosedProcess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	r, err := f.ProcessMsg(ctx, &Envelope{
		To:    "tags",
		Event: core.Done{Ref: "r1", Op: machines.TagsRequestOp, Data: []byte(`{"tags":[]}`)},
	})
	require.NoError(t, err)
	require.Empty(t, r.Errors)
	require.Empty(t, r.Changed)

	r, err = f.ProcessMsg(ctx, &Envelope{
		To:    "tags",
		Event: core.Failed{Ref: "r2", Op: machines.TagsRequestOp, Err: errors.New("gone")},
	})
	require.NoError(t, err)
	require.Empty(t, r.Errors)

	// Anything else for a missing process is still an error.
	r, err = f.ProcessMsg(ctx, &Envelope{
		To:    "tags",
		Event: machines.Retry{},
	})
	require.NoError(t, err)
	require.Len(t, r.Errors, 1)
}

func TestHostLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t, "")
	q := api.DefaultFeedQuery()
	f.api.On("GET", q.Path(), api.ArticleListResponse{
		Articles:      []api.Article{{Slug: "how-to"}},
		ArticlesCount: 1,
	})

	_, err := f.Start(ctx)
	require.NoError(t, err)

	stopped := make(chan error)
	go func() {
		stopped <- f.Loop(ctx)
	}()

	f.chans.In <- &Open{ID: machines.FeedKind, Kind: machines.FeedKind}

	var last *crew.Snapshot
	deadline := time.After(5 * time.Second)
	for last == nil || !last.Matches("", "feedLoaded.articlesAvailable") {
		select {
		case r := <-f.chans.Out:
			if c, have := r.Changed[machines.FeedKind]; have {
				last = c.Snapshot
			}
		case <-deadline:
			t.Fatal("feed didn't load")
		}
	}

	c := last.Context.(machines.FeedContext)
	require.Equal(t, 1, c.ArticlesCount)

	cancel()
	require.NoError(t, <-stopped)
	f.Wait()
}

func TestHostLoopHaltsOnInputEOF(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, "")
	f.Conf.HaltOnInputEOF = true
	close(f.chans.Done)
	require.NoError(t, f.Loop(context.Background()))
}

func names(es []core.Effect) []string {
	acc := make([]string, len(es))
	for i, e := range es {
		acc[i] = e.Effect()
	}
	return acc
}
