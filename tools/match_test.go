package tools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	fact := map[string]interface{}{
		"feed": map[string]interface{}{
			"snapshot": map[string]interface{}{
				"node": "feedLoaded.articlesAvailable",
				"context": map[string]interface{}{
					"articlesCount": float64(2),
					"tags":          []interface{}{"go", "rust"},
				},
			},
		},
	}

	tests := []struct {
		name    string
		pattern interface{}
		want    Bindings
	}{
		{
			name:    "subset",
			pattern: map[string]interface{}{"feed": map[string]interface{}{"snapshot": map[string]interface{}{"node": "feedLoaded.articlesAvailable"}}},
			want:    Bindings{},
		},
		{
			name:    "variable",
			pattern: map[string]interface{}{"feed": map[string]interface{}{"snapshot": map[string]interface{}{"context": map[string]interface{}{"articlesCount": "?n"}}}},
			want:    Bindings{"?n": float64(2)},
		},
		{
			name:    "int pattern",
			pattern: map[string]interface{}{"feed": map[string]interface{}{"snapshot": map[string]interface{}{"context": map[string]interface{}{"articlesCount": 2}}}},
			want:    Bindings{},
		},
		{
			name:    "array",
			pattern: map[string]interface{}{"feed": map[string]interface{}{"snapshot": map[string]interface{}{"context": map[string]interface{}{"tags": []interface{}{"?", "?t"}}}}},
			want:    Bindings{"?t": "rust"},
		},
		{
			name:    "mismatch",
			pattern: map[string]interface{}{"feed": map[string]interface{}{"snapshot": map[string]interface{}{"node": "loading"}}},
		},
		{
			name:    "missing",
			pattern: map[string]interface{}{"tags": "?x"},
		},
		{
			name: "yaml map",
			pattern: map[interface{}]interface{}{
				"feed": map[interface{}]interface{}{"snapshot": map[interface{}]interface{}{"node": "?node"}},
			},
			want: Bindings{"?node": "feedLoaded.articlesAvailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Match(tt.pattern, fact, nil))
		})
	}
}

func TestMatchBound(t *testing.T) {
	fact := map[string]interface{}{"a": "x", "b": "y"}
	require.Nil(t, Match(map[string]interface{}{"a": "?v", "b": "?v"}, fact, nil))
	require.NotNil(t, Match(map[string]interface{}{"a": "?v"}, fact, Bindings{"?v": "x"}))
	require.Nil(t, Match(map[string]interface{}{"a": "?v"}, fact, Bindings{"?v": "y"}))
}
