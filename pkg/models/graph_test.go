package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearGraph() *WorkflowGraph {
	return &WorkflowGraph{
		Nodes: []*Node{
			{ID: "start", Category: CategoryTrigger, Subtype: "manual"},
			{ID: "fetch", Category: CategoryAction, Subtype: "httprequest"},
			{ID: "notify", Category: CategoryAction, Subtype: "email"},
		},
		Edges: []*Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "fetch"},
			{ID: "e2", SourceNodeID: "fetch", TargetNodeID: "notify"},
		},
	}
}

func TestWorkflowGraph_Validate_Success(t *testing.T) {
	require.NoError(t, linearGraph().Validate())
}

func TestWorkflowGraph_Validate_DanglingEdge(t *testing.T) {
	graph := linearGraph()
	graph.Edges = append(graph.Edges, &Edge{ID: "e3", SourceNodeID: "fetch", TargetNodeID: "ghost"})

	err := graph.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDanglingEdge)

	var graphErr *GraphError

	require.True(t, errors.As(err, &graphErr))
	assert.Equal(t, "e3", graphErr.EdgeID)
	assert.Equal(t, "ghost", graphErr.NodeID)
}

func TestWorkflowGraph_Validate_CycleDetected(t *testing.T) {
	graph := linearGraph()
	graph.Edges = append(graph.Edges, &Edge{ID: "back", SourceNodeID: "notify", TargetNodeID: "fetch"})

	err := graph.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestWorkflowGraph_Validate_SelfLoop(t *testing.T) {
	graph := &WorkflowGraph{
		Nodes: []*Node{{ID: "a", Category: CategoryAction, Subtype: "log"}},
		Edges: []*Edge{{ID: "loop", SourceNodeID: "a", TargetNodeID: "a"}},
	}

	assert.ErrorIs(t, graph.Validate(), ErrCycleDetected)
}

func TestWorkflowGraph_Validate_DuplicateNode(t *testing.T) {
	graph := linearGraph()
	graph.Nodes = append(graph.Nodes, &Node{ID: "fetch", Category: CategoryAction, Subtype: "log"})

	assert.ErrorIs(t, graph.Validate(), ErrDuplicateNode)
}

func TestWorkflowGraph_TriggerNodes(t *testing.T) {
	graph := linearGraph()

	roots := graph.TriggerNodes()
	require.Len(t, roots, 1)
	assert.Equal(t, "start", roots[0].ID)
}

func TestWorkflowGraph_IncomingOutgoingEdges(t *testing.T) {
	graph := linearGraph()

	incoming := graph.IncomingEdges("notify")
	require.Len(t, incoming, 1)
	assert.Equal(t, "fetch", incoming[0].SourceNodeID)

	outgoing := graph.OutgoingEdges("start")
	require.Len(t, outgoing, 1)
	assert.Equal(t, "fetch", outgoing[0].TargetNodeID)

	assert.Empty(t, graph.OutgoingEdges("notify"))
}
