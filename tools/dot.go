package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/conduit/core"

	"github.com/golang/glog"
	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the given chart.  A really ugly
// dot file.
//
// Compound nodes and parallel regions become clusters.
//
// The optional fromNode and toNode can be names of nodes during a
// transition.  If non-zero, then the edge between them will be red
// and the toNode will be red.  Maybe.
func Dot(chart *core.Chart, w io.WriteCloser, fromNode, toNode string) error {
	glog.V(1).Infof("dot %s", chart.Name)

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6,compound=true]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	if len(chart.Regions) == 0 {
		dotChart(w, chart, "", fromNode, toNode)
	} else {
		for _, r := range chart.Regions {
			fmt.Fprintf(w, "  subgraph \"cluster_%s\" {\n    label=%q\n    style=dashed\n", r.Name, r.Name)
			dotChart(w, r, r.Name+"/", fromNode, toNode)
			fmt.Fprintf(w, "  }\n")
		}
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// dotChart writes the nodes and edges of one chart.  The prefix keeps
// node ids in different regions apart.
func dotChart(w io.Writer, chart *core.Chart, prefix, fromNode, toNode string) {
	id := func(name string) string {
		return fmt.Sprintf("%q", prefix+name)
	}

	var node func(name string, depth int)
	node = func(name string, depth int) {
		n, _ := chart.Find(name)
		indent := strings.Repeat("  ", depth+1)
		children := childrenOf(chart, name)

		if 0 < len(children) {
			fmt.Fprintf(w, "%ssubgraph \"cluster_%s%s\" {\n", indent, prefix, name)
			fmt.Fprintf(w, "%s  label=<%s>\n%s  style=rounded\n", indent, nodeLabel(n, false), indent)
			for _, c := range children {
				node(c, depth+1)
			}
			fmt.Fprintf(w, "%s}\n", indent)
			return
		}

		fillcolor := "#99ddc8"
		switch n.Type {
		case core.EventBranching:
			fillcolor = "#2d93ad"
		case core.AlwaysBranching:
			fillcolor = "#52aa5e"
		}
		color := "black"
		style := "filled"
		if toNode == name {
			color = "red"
			fillcolor = "#f98b8b"
		}
		if name == chart.Initial {
			style += ",bold"
		}
		if len(n.Branches) == 0 {
			style += ",dashed"
		}
		shape := "record"
		if n.Invoke != "" {
			shape = "note"
		}
		fmt.Fprintf(w, "%s%s [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			indent, id(name), shape, style, color, fillcolor, nodeLabel(n, true))
	}

	for _, name := range childrenOf(chart, "") {
		node(name, 0)
	}

	for _, n := range chart.Nodes {
		from := anchor(chart, n.Name)
		for i, b := range n.Branches {
			to := b.Target
			if to == "" {
				to = n.Name
			}
			label := branchLabel(n.Type, b)
			color := "black"
			if fromNode == n.Name && toNode == to {
				color = "red"
			}
			label = fmt.Sprintf("%d/%d %s", i+1, len(n.Branches), label)
			attrs := ""
			if from != n.Name {
				attrs += fmt.Sprintf(" ltail=\"cluster_%s%s\"", prefix, n.Name)
			}
			if anchor(chart, to) != to {
				attrs += fmt.Sprintf(" lhead=\"cluster_%s%s\"", prefix, to)
			}
			fmt.Fprintf(w, "  %s -> %s [ color=\"%s\" label = <%s>%s ]\n",
				id(from), id(anchor(chart, to)), color, label, attrs)
		}
	}
}

// childrenOf returns the direct children of the named node in chart
// order.  The empty name gives the top-level nodes.
func childrenOf(chart *core.Chart, name string) []string {
	var acc []string
	for _, n := range chart.Nodes {
		if n.Name != name && core.Parent(n.Name) == name {
			acc = append(acc, n.Name)
		}
	}
	return acc
}

// anchor finds a leaf to attach edges to.  Graphviz edges can't start
// or end at clusters.
func anchor(chart *core.Chart, name string) string {
	for {
		cs := childrenOf(chart, name)
		if len(cs) == 0 {
			return name
		}
		n, _ := chart.Find(name)
		if n.Initial != "" {
			name = name + "." + n.Initial
		} else {
			name = cs[0]
		}
	}
}

func nodeLabel(n core.ChartNode, full bool) string {
	label := html(lastName(n.Name))
	if n.Doc != "" && full {
		doc := n.Doc
		if 40 < len(doc) {
			if period := strings.Index(doc, ". "); 0 < period {
				doc = doc[0 : period+1]
			}
		}
		label += "<BR/><FONT POINT-SIZE='8'>" + html(doc) + "</FONT>"
	}
	var meta = map[string]interface{}{}
	if 0 < len(n.Entry) {
		meta["entry"] = n.Entry
	}
	if 0 < len(n.Exit) {
		meta["exit"] = n.Exit
	}
	if n.Invoke != "" {
		meta["invoke"] = n.Invoke
	}
	if 0 < len(meta) {
		label += `<FONT POINT-SIZE="6"><BR/>` + yamlLines(meta) + `</FONT>`
	}
	return label
}

func branchLabel(t core.BranchType, b core.ChartBranch) string {
	var label string
	switch t {
	case core.AlwaysBranching:
		label = `<FONT COLOR="#52aa5e">always</FONT>`
	default:
		label = `<FONT COLOR="#2d93ad">` + html(b.Event) + `</FONT>`
	}
	if b.Guard != "" {
		label += `<BR ALIGN="LEFT"/>[` + html(b.Guard) + `]`
	}
	if 0 < len(b.Actions) {
		label += `<FONT POINT-SIZE="8"><BR ALIGN="LEFT"/>` + yamlLines(b.Actions) + `</FONT>`
	}
	return label
}

// yamlLines renders x as YAML with dot line breaks.
func yamlLines(x interface{}) string {
	bs, err := yaml.Marshal(x)
	if err != nil {
		return html(err.Error())
	}
	s := strings.TrimRight(string(bs), "\n")
	return strings.Replace(html(s), "\n", `<BR ALIGN="LEFT"/>`, -1) + `<BR ALIGN="LEFT"/>`
}

func lastName(name string) string {
	if i := strings.LastIndexByte(name, '.'); 0 <= i {
		return name[i+1:]
	}
	return name
}

func html(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(chart *core.Chart, basename string, fromNode, toNode string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(chart, dotfile, fromNode, toNode); err != nil {
		return pngname, err
	}
	cmd := "dot -Tpng -Gstart=1 " + dotname + " > " + pngname
	if err := exec.Command("bash", "-c", cmd).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}
