package plan

import (
	"testing"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamondGraph() *models.WorkflowGraph {
	// trigger -> a -> c, trigger -> b -> c
	return &models.WorkflowGraph{
		Nodes: []*models.Node{
			{ID: "trigger", Category: models.CategoryTrigger, Subtype: "manual"},
			{ID: "a", Category: models.CategoryAction, Subtype: "log"},
			{ID: "b", Category: models.CategoryAction, Subtype: "log"},
			{ID: "c", Category: models.CategoryTransform, Subtype: "merge"},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceNodeID: "trigger", TargetNodeID: "a"},
			{ID: "e2", SourceNodeID: "trigger", TargetNodeID: "b"},
			{ID: "e3", SourceNodeID: "a", TargetNodeID: "c"},
			{ID: "e4", SourceNodeID: "b", TargetNodeID: "c"},
		},
	}
}

func branchGraph() *models.WorkflowGraph {
	// trigger -> cond -(true)-> yes, cond -(false)-> no -> after
	return &models.WorkflowGraph{
		Nodes: []*models.Node{
			{ID: "trigger", Category: models.CategoryTrigger, Subtype: "manual"},
			{ID: "cond", Category: models.CategoryCondition, Subtype: "expression"},
			{ID: "yes", Category: models.CategoryAction, Subtype: "log"},
			{ID: "no", Category: models.CategoryAction, Subtype: "log"},
			{ID: "after", Category: models.CategoryAction, Subtype: "log"},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceNodeID: "trigger", TargetNodeID: "cond"},
			{ID: "e2", SourceNodeID: "cond", TargetNodeID: "yes", SourceHandle: models.BranchTrue},
			{ID: "e3", SourceNodeID: "cond", TargetNodeID: "no", SourceHandle: models.BranchFalse},
			{ID: "e4", SourceNodeID: "no", TargetNodeID: "after"},
		},
	}
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}

	return -1
}

func TestOrder_EmitsEveryNodeOnceAfterDependencies(t *testing.T) {
	graph := diamondGraph()

	order, err := Order(graph)
	require.NoError(t, err)
	require.Len(t, order, len(graph.Nodes))

	seen := make(map[string]int)
	for _, id := range order {
		seen[id]++
	}

	for _, node := range graph.Nodes {
		assert.Equal(t, 1, seen[node.ID], "node %s should appear exactly once", node.ID)
	}

	for _, edge := range graph.Edges {
		assert.Less(t, indexOf(order, edge.SourceNodeID), indexOf(order, edge.TargetNodeID),
			"%s must precede %s", edge.SourceNodeID, edge.TargetNodeID)
	}
}

func TestOrder_Deterministic(t *testing.T) {
	graph := diamondGraph()

	first, err := Order(graph)
	require.NoError(t, err)

	for range 10 {
		again, err := Order(graph)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	assert.Equal(t, []string{"trigger", "a", "b", "c"}, first)
}

func TestOrder_DisconnectedNodesStillPlanned(t *testing.T) {
	graph := diamondGraph()
	graph.Nodes = append(graph.Nodes, &models.Node{ID: "island", Category: models.CategoryAction, Subtype: "log"})

	order, err := Order(graph)
	require.NoError(t, err)
	assert.Len(t, order, 5)
	assert.Contains(t, order, "island")
}

func TestInputs_GathersDirectUpstreamData(t *testing.T) {
	graph := diamondGraph()
	record := &models.ExecutionRecord{
		NodeOutputs: map[string]models.NodeOutput{
			"a": {NodeID: "a", Status: models.NodeStatusSuccess, Data: map[string]any{"v": 1}},
			"b": {NodeID: "b", Status: models.NodeStatusError, Error: "boom"},
		},
	}

	inputs := Inputs(graph, "c", record)

	require.Contains(t, inputs, "a")
	assert.Equal(t, map[string]any{"v": 1}, inputs["a"])
	// Failed upstream contributes nothing, and that is not an error.
	assert.NotContains(t, inputs, "b")
}

func TestInputs_MissingUpstreamIsAbsent(t *testing.T) {
	graph := diamondGraph()
	record := &models.ExecutionRecord{NodeOutputs: map[string]models.NodeOutput{}}

	inputs := Inputs(graph, "c", record)
	assert.Empty(t, inputs)
}

func TestNodeData_OnlySuccessfulOutputs(t *testing.T) {
	record := &models.ExecutionRecord{
		NodeOutputs: map[string]models.NodeOutput{
			"a": {NodeID: "a", Status: models.NodeStatusSuccess, Data: map[string]any{"v": 1}},
			"b": {NodeID: "b", Status: models.NodeStatusSkipped},
		},
	}

	data := NodeData(record)
	assert.Contains(t, data, "a")
	assert.NotContains(t, data, "b")
}

func TestLiveSet_BranchSkipping(t *testing.T) {
	graph := branchGraph()
	live := NewLiveSet(graph)

	// Before any decision everything is reachable.
	assert.True(t, live.Live("yes"))
	assert.True(t, live.Live("no"))

	live.TakeBranch("cond", models.BranchTrue)

	assert.True(t, live.Live("yes"))
	assert.False(t, live.Live("no"))

	// Nodes only reachable through the skipped node are skipped transitively.
	live.MarkSkipped("no")
	assert.False(t, live.Live("after"))
}

func TestLiveSet_UnhandledEdgesSurviveEitherBranch(t *testing.T) {
	graph := branchGraph()
	graph.Edges = append(graph.Edges, &models.Edge{ID: "e5", SourceNodeID: "cond", TargetNodeID: "after"})

	live := NewLiveSet(graph)
	live.TakeBranch("cond", models.BranchTrue)
	live.MarkSkipped("no")

	// The handle-less edge keeps "after" alive even with the false branch dead.
	assert.True(t, live.Live("after"))
}
