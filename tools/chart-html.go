package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Comcast/conduit/core"

	"github.com/jsccast/yaml"
	md "github.com/russross/blackfriday/v2"
)

// RenderChartHTML writes an HTML fragment that documents the chart.
// Docs are Markdown.
func RenderChartHTML(c *core.Chart, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	if c.Doc != "" {
		f(`<div class="chartDoc doc">%s</div>`, md.Run([]byte(c.Doc)))
	}

	for _, r := range c.Regions {
		f(`<div class="region"><h2 id="%s">%s</h2>`, html(r.Name), html(r.Name))
		if err := RenderChartHTML(r, out); err != nil {
			return err
		}
		f(`</div>`)
	}
	if len(c.Nodes) == 0 {
		return nil
	}

	id := func(name string) string {
		return html(c.Name + "-" + name)
	}

	f(`<div class="nodes"><table>`)
	for _, n := range c.Nodes {
		class := "node"
		if n.Name == c.Initial {
			class += " initial"
		}
		depth := strings.Count(n.Name, ".")
		f(`<tr class="%s"><td><span id="%s" class="nodeName depth%d">%s</span></td><td>`,
			class, id(n.Name), depth, html(n.Name))

		if n.Doc != "" {
			f(`<div class="nodeDoc doc">%s</div>`, md.Run([]byte(n.Doc)))
		}
		if n.Initial != "" {
			f(`<div>initial: <a href="#%s"><code>%s</code></a></div>`, id(n.Name+"."+n.Initial), html(n.Initial))
		}
		if n.Invoke != "" {
			f(`<div>invoke: <code class="invoke">%s</code></div>`, html(n.Invoke))
		}
		if 0 < len(n.Entry) {
			f(`<div>entry: <code>%s</code></div>`, html(strings.Join(n.Entry, ", ")))
		}
		if 0 < len(n.Exit) {
			f(`<div>exit: <code>%s</code></div>`, html(strings.Join(n.Exit, ", ")))
		}
		if 0 < len(n.Branches) {
			f(`<div>type: <span class="branchingType">%s</span></div>`, n.Type)
			f(`<div class="branches"><table>`)
			for i, b := range n.Branches {
				f(`<tr><td><div class="branchNum">%d</div></td><td><table>`, i)
				if b.Event != "" {
					f(`<tr><td>event</td><td><code>%s</code></td></tr>`, html(b.Event))
				}
				if b.Guard != "" {
					f(`<tr><td>guard</td><td><code>%s</code></td></tr>`, html(b.Guard))
				}
				if 0 < len(b.Actions) {
					f(`<tr><td>actions</td><td><code>%s</code></td></tr>`, html(strings.Join(b.Actions, ", ")))
				}
				if b.Target != "" {
					f(`<tr><td>target</td><td><a href="#%s"><code>%s</code></a></td></tr>`, id(b.Target), html(b.Target))
				} else {
					f(`<tr><td>target</td><td><i>internal</i></td></tr>`)
				}
				f(`</table></td></tr>`)
			}
			f(`</table></div>`)
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderChartPage writes an HTML page for the charts.
//
// With includeGraph, the page carries the charts as JSON for a
// client-side renderer.
func RenderChartPage(title string, charts []*core.Chart, out io.Writer, cssFiles []string, includeGraph bool) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/chart-html.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html(title))

	if includeGraph {
		js, err := json.Marshal(charts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, `
  <script src="/static/chart-html.js"></script>
  <script>
  var theseCharts = %s;
  </script>
`, js)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html(title))

	if 1 < len(charts) {
		fmt.Fprintf(out, "<ul class=\"toc\">\n")
		for _, c := range charts {
			fmt.Fprintf(out, "  <li><a href=\"#chart-%s\">%s</a></li>\n", html(c.Name), html(c.Name))
		}
		fmt.Fprintf(out, "</ul>\n")
	}

	for _, c := range charts {
		fmt.Fprintf(out, "<div class=\"chart\"><h1 id=\"chart-%s\">%s</h1>\n", html(c.Name), html(c.Name))
		if includeGraph {
			fmt.Fprintf(out, "<div class=\"graph\" data-chart=\"%s\"></div>\n", html(c.Name))
		}
		if err := RenderChartHTML(c, out); err != nil {
			return err
		}
		fmt.Fprintf(out, "</div>\n")
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadChart reads a chart from a YAML (or JSON) file.  The file can
// use '%inline("NAME")' to include other files.
func ReadChart(filename string) (*core.Chart, error) {
	src, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	var c core.Chart
	if err = yaml.Unmarshal(src, &c); err != nil {
		return nil, err
	}
	if c.Name == "" {
		return nil, fmt.Errorf("chart in %s has no name", filename)
	}
	return &c, nil
}

// WriteChart writes the chart as YAML.
func WriteChart(c *core.Chart, filename string) error {
	bs, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bs, 0644)
}

func ReadAndRenderChartPage(filename string, cssFiles []string, out io.Writer, includeGraph bool) error {
	c, err := ReadChart(filename)
	if err != nil {
		return err
	}
	return RenderChartPage(c.Name, []*core.Chart{c}, out, cssFiles, includeGraph)
}
