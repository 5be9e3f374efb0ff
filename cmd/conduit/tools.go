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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/machines"
	"github.com/Comcast/conduit/tools"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// output opens the --out file, where "-" is stdout.
func output(opts docopt.Opts) (io.WriteCloser, error) {
	name := str(opts, "--out")
	if name == "" || name == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(name)
}

func chart(kind string) (*core.Chart, error) {
	p, err := machines.New(kind, kind, machines.Params{}, machines.Options{})
	if err != nil {
		return nil, err
	}
	return p.Chart(), nil
}

func graph(ctx context.Context, opts docopt.Opts) error {
	c, err := chart(str(opts, "<kind>"))
	if err != nil {
		return err
	}
	w, err := output(opts)
	if err != nil {
		return err
	}
	if flagged(opts, "--mermaid") {
		return tools.Mermaid(c, w, &tools.MermaidOpts{
			ShowGuards:  flagged(opts, "--guards"),
			ShowActions: flagged(opts, "--actions"),
		})
	}
	return tools.Dot(c, w, str(opts, "--from"), str(opts, "--to"))
}

func docs(ctx context.Context, opts docopt.Opts) error {
	charts, err := machines.Charts(machines.Options{})
	if err != nil {
		return err
	}
	w, err := output(opts)
	if err != nil {
		return err
	}
	if err = tools.RenderChartPage("Conduit processes", charts, w, strs(opts, "--css"), flagged(opts, "--graphs")); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func analyze(ctx context.Context, opts docopt.Opts) error {
	kinds := strs(opts, "<name>")
	if len(kinds) == 0 {
		kinds = machines.Kinds
	}
	acc := make([]*tools.ChartAnalysis, 0, len(kinds))
	for _, kind := range kinds {
		c, err := chart(kind)
		if err != nil {
			return err
		}
		a, err := tools.Analyze(c)
		if err != nil {
			return err
		}
		acc = append(acc, a)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(acc)
}

// matchCmd prints the bindings from matching the JSON pattern against
// the JSON message, or null.
func matchCmd(ctx context.Context, opts docopt.Opts) error {
	var pattern, message interface{}
	if err := json.Unmarshal([]byte(str(opts, "<pattern>")), &pattern); err != nil {
		return fmt.Errorf("pattern: %w", err)
	}
	if err := json.Unmarshal([]byte(str(opts, "<message>")), &message); err != nil {
		return fmt.Errorf("message: %w", err)
	}
	var bs tools.Bindings
	if err := json.Unmarshal([]byte(str(opts, "--bindings")), &bs); err != nil {
		return fmt.Errorf("bindings: %w", err)
	}
	return json.NewEncoder(os.Stdout).Encode(tools.Match(pattern, message, bs))
}

func scenario(ctx context.Context, opts docopt.Opts) error {
	s, err := tools.ReadScenario(str(opts, "<file>"))
	if err != nil {
		return err
	}
	if s.DefaultTimeout == 0 {
		if s.DefaultTimeout, err = time.ParseDuration(str(opts, "--timeout")); err != nil {
			return err
		}
	}
	s.ShowStderr = s.ShowStderr || flagged(opts, "--stderr")
	return s.Run(ctx, str(opts, "--dir"), strs(opts, "<cmd>")...)
}
