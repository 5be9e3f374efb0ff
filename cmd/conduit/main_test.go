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

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docopt/docopt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Comcast/conduit/config"
	"github.com/Comcast/conduit/sio"
)

func parse(t *testing.T, args string) docopt.Opts {
	opts, err := docopt.ParseArgs(usage, strings.Fields(args), Version)
	require.NoError(t, err)
	return opts
}

func TestUsage(t *testing.T) {
	opts := parse(t, "run --tags --halt --state=s.json")
	assert.True(t, flagged(opts, "run"))
	assert.True(t, flagged(opts, "--tags"))
	assert.False(t, flagged(opts, "--echo"))
	assert.Equal(t, "s.json", str(opts, "--state"))

	opts = parse(t, "graph feed --mermaid")
	assert.True(t, flagged(opts, "graph"))
	assert.Equal(t, "feed", str(opts, "<kind>"))
	assert.Equal(t, "-", str(opts, "--out"))

	opts = parse(t, "analyze auth tags")
	assert.Equal(t, []string{"auth", "tags"}, strs(opts, "<name>"))

	opts = parse(t, `match {"a":"?x"} {"a":1}`)
	assert.True(t, flagged(opts, "match"))
	assert.Equal(t, "{}", str(opts, "--bindings"))

	opts = parse(t, "scenario s.yaml -- conduit run --halt")
	assert.Equal(t, "s.yaml", str(opts, "<file>"))
	assert.Equal(t, []string{"conduit", "run", "--halt"}, strs(opts, "<cmd>"))
	assert.Equal(t, "10s", str(opts, "--timeout"))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, driver := range config.Drivers {
		t.Run(driver, func(t *testing.T) {
			s, err := openStore(ctx, config.StorageConfig{
				Driver: driver,
				Path:   filepath.Join(dir, driver+".db"),
			})
			require.NoError(t, err)
			defer s.Close(ctx)

			require.NoError(t, s.SetToken(ctx, "jwt"))
			token, err := s.GetToken(ctx)
			require.NoError(t, err)
			assert.Equal(t, "jwt", token)
		})
	}

	_, err := openStore(ctx, config.StorageConfig{Driver: "floppy"})
	assert.Error(t, err)
}

func TestCouplings(t *testing.T) {
	c := config.Config{IO: "std"}
	opts := parse(t, "run --updates --state=out.json")
	s, is := couplings(c, opts).(*sio.Stdio)
	require.True(t, is)
	assert.True(t, s.PrintUpdates)
	assert.Equal(t, "out.json", s.StateOutputFilename)

	c.IO = "ws"
	_, is = couplings(c, opts).(*sio.WebSockets)
	assert.True(t, is)

	c.IO = "mqtt"
	c.MQTT.Broker = "tcp://localhost:1883"
	_, is = couplings(c, opts).(*sio.MQTT)
	assert.True(t, is)
}

func TestGraphWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "feed.dot")
	opts := parse(t, "graph feed --out="+out)
	require.NoError(t, graph(context.Background(), opts))

	bs, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(bs), "digraph G {"))
}

func TestGraphUnknownKind(t *testing.T) {
	opts := parse(t, "graph widget")
	assert.Error(t, graph(context.Background(), opts))
}
