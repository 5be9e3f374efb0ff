package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	ctx := context.Background()
	out := map[string]interface{}{"n": 2}

	t.Run("accept", func(t *testing.T) {
		g, err := NewGuard("_.out.n == 2")
		require.NoError(t, err)
		bs, err := g.Exec(ctx, out, Bindings{"?x": 1})
		require.NoError(t, err)
		require.Equal(t, Bindings{"?x": 1}, bs)
	})

	t.Run("reject", func(t *testing.T) {
		g, err := NewGuard("var bs = _.bindings; if (bs['?n'] != 3) { bs = null; } bs;")
		require.NoError(t, err)
		bs, err := g.Exec(ctx, out, Bindings{"?n": 2})
		require.NoError(t, err)
		require.Nil(t, bs)
	})

	t.Run("rebind", func(t *testing.T) {
		g, err := NewGuard("({'?m': _.out.n * 2})")
		require.NoError(t, err)
		bs, err := g.Exec(ctx, out, nil)
		require.NoError(t, err)
		require.EqualValues(t, 4, bs["?m"])
	})

	t.Run("bad result", func(t *testing.T) {
		g, err := NewGuard("'chips'")
		require.NoError(t, err)
		_, err = g.Exec(ctx, out, nil)
		require.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		g, err := NewGuard("for (;;) {}")
		require.NoError(t, err)
		g.Timeout = 50 * time.Millisecond
		_, err = g.Exec(ctx, out, nil)
		require.Equal(t, Interrupted, err)
	})

	t.Run("syntax", func(t *testing.T) {
		_, err := NewGuard("for (")
		require.Error(t, err)
	})
}
