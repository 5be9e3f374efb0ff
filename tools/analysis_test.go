package tools

import (
	"testing"

	"github.com/Comcast/conduit/core"
	"github.com/Comcast/conduit/machines"

	"github.com/stretchr/testify/require"
)

func TestAnalysis(t *testing.T) {
	a, err := Analyze(feedChart(t))
	require.NoError(t, err)

	require.Equal(t, "feed", a.Name)
	require.Contains(t, a.Events, "done.invoke.getFeed")
	require.Contains(t, a.Events, "toggleFavorite")
	require.Equal(t, []string{"getFeed"}, a.Invokes)
	require.Contains(t, a.TerminalNodes, "error")
	require.Contains(t, a.Unreachable, "error")
	require.NotContains(t, a.Unreachable, "feedLoaded.noArticles")
	require.NotContains(t, a.Unreachable, "failedLoadingFeed")
	require.Less(t, 0, a.Internal)
}

func TestAnalysisRegions(t *testing.T) {
	p, err := machines.NewArticle("article", "how-to", machines.Options{})
	require.NoError(t, err)

	a, err := Analyze(p.Chart())
	require.NoError(t, err)
	require.Len(t, a.Regions, 2)
	require.Equal(t, a.Regions[0].NodeCount+a.Regions[1].NodeCount, a.NodeCount)
}

func TestAnalysisUnreachable(t *testing.T) {
	c := &core.Chart{
		Name:    "tiny",
		Initial: "a",
		Nodes: []core.ChartNode{
			{Name: "a", Type: core.EventBranching, Branches: []core.ChartBranch{{Event: "go", Target: "b.y"}}},
			{Name: "b", Initial: "x"},
			{Name: "b.x"},
			{Name: "b.y"},
			{Name: "c"},
		},
	}
	a, err := Analyze(c)
	require.NoError(t, err)
	require.Equal(t, []string{"b.x", "c"}, a.Unreachable)
	require.Equal(t, []string{"b.x", "b.y", "c"}, a.TerminalNodes)
}
