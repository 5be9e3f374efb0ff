/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package tools

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/conduit/core"

	"github.com/golang/glog"
)

type MermaidOpts struct {
	// ShowGuards adds guard names to transition labels.
	ShowGuards bool `json:"showGuards"`

	// ShowActions adds action names to transition labels.
	ShowActions bool `json:"showActions"`

	// InvokeFill is the fill color for nodes that issue a
	// request.
	InvokeFill string `json:"invokeFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) state
// diagram for the given chart.
func Mermaid(chart *core.Chart, w io.WriteCloser, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowGuards: true,
			InvokeFill: "#bcf2db",
		}
	}

	glog.V(1).Infof("mermaid %s", chart.Name)

	fmt.Fprintf(w, "stateDiagram-v2\n")

	if opts.InvokeFill != "" {
		fmt.Fprintf(w, "  classDef invoke fill:%s\n", opts.InvokeFill)
	}

	if len(chart.Regions) == 0 {
		mermaidChart(w, chart, "", opts, 1)
	} else {
		fmt.Fprintf(w, "  state %s {\n", mid("", chart.Name))
		for i, r := range chart.Regions {
			if 0 < i {
				fmt.Fprintf(w, "    --\n")
			}
			mermaidChart(w, r, r.Name+"_", opts, 2)
		}
		fmt.Fprintf(w, "  }\n")
	}

	return w.Close()
}

func mid(prefix, name string) string {
	return prefix + strings.Replace(name, ".", "_", -1)
}

func mermaidChart(w io.Writer, chart *core.Chart, prefix string, opts *MermaidOpts, depth int) {
	var state func(name string, depth int)
	state = func(name string, depth int) {
		indent := strings.Repeat("  ", depth)
		n, _ := chart.Find(name)
		id := mid(prefix, name)
		fmt.Fprintf(w, "%sstate \"%s\" as %s\n", indent, lastName(name), id)
		if n.Invoke != "" && opts.InvokeFill != "" {
			fmt.Fprintf(w, "%sclass %s invoke\n", indent, id)
		}
		children := childrenOf(chart, name)
		if len(children) == 0 {
			return
		}
		fmt.Fprintf(w, "%sstate %s {\n", indent, id)
		if n.Initial != "" {
			fmt.Fprintf(w, "%s  [*] --> %s\n", indent, mid(prefix, name+"."+n.Initial))
		}
		for _, c := range children {
			state(c, depth+1)
		}
		fmt.Fprintf(w, "%s}\n", indent)
	}

	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s[*] --> %s\n", indent, mid(prefix, chart.Initial))
	for _, name := range childrenOf(chart, "") {
		state(name, depth)
	}

	for _, n := range chart.Nodes {
		for _, b := range n.Branches {
			to := b.Target
			if to == "" {
				to = n.Name
			}
			label := b.Event
			if n.Type == core.AlwaysBranching {
				label = "always"
			}
			if opts.ShowGuards && b.Guard != "" {
				label += " [" + b.Guard + "]"
			}
			if opts.ShowActions && 0 < len(b.Actions) {
				label += " / " + strings.Join(b.Actions, ", ")
			}
			fmt.Fprintf(w, "%s%s --> %s : %s\n", indent, mid(prefix, n.Name), mid(prefix, to), label)
		}
	}
}
