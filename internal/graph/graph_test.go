package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type counterState struct {
	hops int
	log  []string
}

func TestInvoke_LinearFlow(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", func(ctx context.Context, s counterState) (counterState, error) {
		s.log = append(s.log, "a")
		return s, nil
	})
	g.AddNode("b", func(ctx context.Context, s counterState) (counterState, error) {
		s.log = append(s.log, "b")
		return s, nil
	})
	g.AddEdge(Start, "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", End)

	runnable, err := g.Compile()
	require.NoError(t, err)

	out, err := runnable.Invoke(context.Background(), counterState{}, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, out.log)
}

func TestInvoke_ConditionalLoop(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("work", func(ctx context.Context, s counterState) (counterState, error) {
		s.hops++
		return s, nil
	})
	g.AddConditionalEdges("work", func(s counterState) string {
		if s.hops < 3 {
			return "again"
		}
		return "done"
	}, map[string]string{
		"again": "work",
		"done":  End,
	})
	g.AddEdge(Start, "work")

	runnable, err := g.Compile()
	require.NoError(t, err)

	out, err := runnable.Invoke(context.Background(), counterState{}, 10)
	require.NoError(t, err)
	require.Equal(t, 3, out.hops)
}

func TestInvoke_StepBound(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("spin", func(ctx context.Context, s counterState) (counterState, error) {
		s.hops++
		return s, nil
	})
	g.AddEdge(Start, "spin")
	g.AddEdge("spin", "spin")

	runnable, err := g.Compile()
	require.NoError(t, err)

	out, err := runnable.Invoke(context.Background(), counterState{}, 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeded 5 steps")
	require.Equal(t, 5, out.hops)
}

func TestInvoke_NodeError(t *testing.T) {
	boom := errors.New("boom")
	g := NewStateGraph[counterState]()
	g.AddNode("a", func(ctx context.Context, s counterState) (counterState, error) {
		return s, boom
	})
	g.AddEdge(Start, "a")
	g.AddEdge("a", End)

	runnable, err := g.Compile()
	require.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), counterState{}, 10)
	require.ErrorIs(t, err, boom)
}

func TestInvoke_ContextCancelled(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", func(ctx context.Context, s counterState) (counterState, error) {
		return s, nil
	})
	g.AddEdge(Start, "a")
	g.AddEdge("a", End)

	runnable, err := g.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runnable.Invoke(ctx, counterState{}, 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompile_Validation(t *testing.T) {
	t.Run("missing entry edge", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", func(ctx context.Context, s counterState) (counterState, error) { return s, nil })
		g.AddEdge("a", End)

		_, err := g.Compile()
		require.ErrorContains(t, err, "no entry edge")
	})

	t.Run("edge to unknown node", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", func(ctx context.Context, s counterState) (counterState, error) { return s, nil })
		g.AddEdge(Start, "a")
		g.AddEdge("a", "ghost")

		_, err := g.Compile()
		require.ErrorContains(t, err, "targets unknown node")
	})

	t.Run("conditional target unknown", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", func(ctx context.Context, s counterState) (counterState, error) { return s, nil })
		g.AddEdge(Start, "a")
		g.AddConditionalEdges("a", func(s counterState) string { return "x" }, map[string]string{"x": "ghost"})

		_, err := g.Compile()
		require.ErrorContains(t, err, "targets unknown node")
	})

	t.Run("dangling node", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", func(ctx context.Context, s counterState) (counterState, error) { return s, nil })
		g.AddNode("b", func(ctx context.Context, s counterState) (counterState, error) { return s, nil })
		g.AddEdge(Start, "a")
		g.AddEdge("a", End)

		_, err := g.Compile()
		require.ErrorContains(t, err, `node "b" has no outgoing edge`)
	})
}

func TestInvoke_UnmappedRouteKey(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", func(ctx context.Context, s counterState) (counterState, error) { return s, nil })
	g.AddEdge(Start, "a")
	g.AddConditionalEdges("a", func(s counterState) string { return "nowhere" }, map[string]string{"x": End})

	runnable, err := g.Compile()
	require.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), counterState{}, 10)
	require.ErrorContains(t, err, `unmapped key "nowhere"`)
}
