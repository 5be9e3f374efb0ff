package sio

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/conduit/machines"
	"github.com/Comcast/conduit/storage"
	"github.com/Comcast/conduit/util/testutil"

	"github.com/stretchr/testify/require"
)

func TestStdio(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := strings.NewReader(strings.Join([]string{
		`# comment`,
		`{"open":{"kind":"tags"}}`,
		`not json`,
		`quit`,
	}, "\n") + "\n")
	var out bytes.Buffer

	filename := filepath.Join(t.TempDir(), "state.json")

	s := NewStdio(false)
	s.In = in
	s.Out = &out
	s.Tags = true
	s.StateOutputFilename = filename

	api := testutil.NewRequester().On("GET", "tags", map[string]interface{}{
		"tags": []string{"go"},
	})

	h, err := NewHost(ctx, &HostConf{HaltOnInputEOF: true}, s, api, storage.NewMemory(""), nil)
	require.NoError(t, err)

	_, err = h.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, h.Loop(ctx))

	// The tags response might still be queued; the open itself
	// must have been reported.
	cancel()
	h.Wait()
	require.NoError(t, s.Stop(context.Background()))

	got := out.String()
	require.Contains(t, got, `emit {"effect":"request"`)
	require.Contains(t, got, "error ")

	js, err := os.ReadFile(filename)
	require.NoError(t, err)
	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(js, &state))
	require.Contains(t, state, machines.TagsKind)
}
