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

// Command conduit runs the conduit client processes and offers some
// chart tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
)

const Version = "0.1.0"

const usage = `Conduit client host and chart tools.

Usage:
    conduit run [--config=<file>] [--state=<file>] [--tags] [--echo] [--updates] [--diag] [--sh] [--halt]
    conduit graph <kind> [--mermaid] [--guards] [--actions] [--out=<file>] [--from=<node>] [--to=<node>]
    conduit docs [--out=<file>] [--css=<file>...] [--graphs]
    conduit analyze [<name>...]
    conduit match <pattern> <message> [--bindings=<js>]
    conduit scenario <file> [--dir=<dir>] [--timeout=<duration>] [--stderr] [--] <cmd>...
    conduit -h | --help
    conduit --version

Options:
    -h --help               Show this screen.
    --version               Show version.
    --config=<file>         Configuration file (YAML, TOML, or JSON).
    --state=<file>          Write process snapshots to this file on exit.
    --tags                  Tag output lines.
    --echo                  Echo input lines.
    --updates               Print snapshot changes.
    --diag                  Print step diagnostics.
    --sh                    Expand <<shell>> in input lines.
    --halt                  Stop when input ends.
    --mermaid               Write a Mermaid diagram instead of Graphviz.
    --guards                Show guard names (Mermaid).
    --actions               Show action names (Mermaid).
    --out=<file>            Output file [default: -].
    --from=<node>           Highlight a transition from this node.
    --to=<node>             Highlight a transition to this node.
    --css=<file>            Stylesheet for the HTML page.
    --graphs                Include chart graphs in the HTML page.
    --bindings=<js>         Initial bindings for the match [default: {}].
    --dir=<dir>             Working directory for the command [default: .].
    --timeout=<duration>    Default output timeout [default: 10s].
    --stderr                Log the command's stderr.
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], Version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// glog registers its flags with the standard flag set.
	flag.CommandLine.Parse(nil)
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cmd func(context.Context, docopt.Opts) error
	switch {
	case flagged(opts, "run"):
		cmd = run
	case flagged(opts, "graph"):
		cmd = graph
	case flagged(opts, "docs"):
		cmd = docs
	case flagged(opts, "analyze"):
		cmd = analyze
	case flagged(opts, "match"):
		cmd = matchCmd
	case flagged(opts, "scenario"):
		cmd = scenario
	}

	if err := cmd(ctx, opts); err != nil {
		glog.Errorf("conduit: %s", err)
		glog.Flush()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func flagged(opts docopt.Opts, key string) bool {
	b, _ := opts.Bool(key)
	return b
}

func str(opts docopt.Opts, key string) string {
	s, _ := opts.String(key)
	return s
}

func strs(opts docopt.Opts, key string) []string {
	if ss, is := opts[key].([]string); is {
		return ss
	}
	return nil
}

// verbosity sets glog's -v unless it was given on the command line.
func verbosity(v int) {
	if v <= 0 {
		return
	}
	if f := flag.Lookup("v"); f != nil && f.Value.String() == "0" {
		f.Value.Set(strconv.Itoa(v))
	}
}
