// Package plan computes deterministic execution order and per-node inputs for
// workflow graphs. The order is a depth-first topological sort seeded from
// trigger nodes, with ties broken by trigger-list and edge-declaration order,
// so identical graphs always plan identically.
package plan

import (
	"fmt"

	"github.com/fluxion-dev/fluxion/pkg/models"
)

// Order returns the node ids in execution order. Every node appears exactly
// once and only after all of its upstream dependencies. The graph must already
// have passed validation; an unexpected cycle is still reported as an error
// rather than looping forever.
func Order(graph *models.WorkflowGraph) ([]string, error) {
	visited := make(map[string]bool, len(graph.Nodes))
	onStack := make(map[string]bool, len(graph.Nodes))
	order := make([]string, 0, len(graph.Nodes))

	var visit func(id string) error

	visit = func(id string) error {
		if visited[id] {
			return nil
		}

		if onStack[id] {
			return fmt.Errorf("cycle through node %s", id)
		}

		onStack[id] = true

		// Dependencies first, in edge-declaration order.
		for _, edge := range graph.IncomingEdges(id) {
			if err := visit(edge.SourceNodeID); err != nil {
				return err
			}
		}

		onStack[id] = false
		visited[id] = true
		order = append(order, id)

		return nil
	}

	for _, root := range graph.TriggerNodes() {
		if err := visit(root.ID); err != nil {
			return nil, err
		}
	}

	// Nodes unreachable from any trigger still get a deterministic slot, in
	// declaration order, so the plan always covers the whole graph.
	for _, node := range graph.Nodes {
		if err := visit(node.ID); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// Inputs gathers the output data of every direct upstream neighbour of nodeID,
// keyed by the upstream node id. Upstream nodes without a successful persisted
// output contribute nothing; downstream handlers treat absent keys as undefined.
func Inputs(graph *models.WorkflowGraph, nodeID string, record *models.ExecutionRecord) map[string]any {
	inputs := make(map[string]any)

	for _, edge := range graph.IncomingEdges(nodeID) {
		output, ok := record.NodeOutputs[edge.SourceNodeID]
		if !ok || output.Status != models.NodeStatusSuccess {
			continue
		}

		inputs[edge.SourceNodeID] = anyMap(output.Data)
	}

	return inputs
}

// NodeData collects the data of every node with a successful persisted output,
// keyed by node id. This backs the $node scope of the expression resolver.
func NodeData(record *models.ExecutionRecord) map[string]any {
	data := make(map[string]any, len(record.NodeOutputs))

	for id, output := range record.NodeOutputs {
		if output.Status == models.NodeStatusSuccess {
			data[id] = anyMap(output.Data)
		}
	}

	return data
}

func anyMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}

	return m
}

// LiveSet tracks which nodes remain executable as condition branches are
// decided. An edge leaving a condition node on a non-taken handle is dead;
// a non-root node whose incoming edges are all dead or skipped is skipped.
type LiveSet struct {
	graph     *models.WorkflowGraph
	deadEdges map[string]bool // edge id -> dead
	skipped   map[string]bool // node id -> skipped
}

// NewLiveSet creates liveness bookkeeping for one execution of the graph.
func NewLiveSet(graph *models.WorkflowGraph) *LiveSet {
	return &LiveSet{
		graph:     graph,
		deadEdges: make(map[string]bool),
		skipped:   make(map[string]bool),
	}
}

// TakeBranch records a condition node's decision: every outgoing edge whose
// SourceHandle differs from the taken branch becomes dead. Edges without a
// handle stay live on either branch.
func (ls *LiveSet) TakeBranch(nodeID, branch string) {
	for _, edge := range ls.graph.OutgoingEdges(nodeID) {
		if edge.SourceHandle != "" && edge.SourceHandle != branch {
			ls.deadEdges[edge.ID] = true
		}
	}
}

// MarkSkipped records that a node was visited as a no-op.
func (ls *LiveSet) MarkSkipped(nodeID string) {
	ls.skipped[nodeID] = true
}

// Live reports whether the node is still reachable through a taken path.
// Trigger nodes (no incoming edges) are always live.
func (ls *LiveSet) Live(nodeID string) bool {
	incoming := ls.graph.IncomingEdges(nodeID)
	if len(incoming) == 0 {
		return true
	}

	for _, edge := range incoming {
		if ls.deadEdges[edge.ID] {
			continue
		}

		if ls.skipped[edge.SourceNodeID] {
			continue
		}

		return true
	}

	return false
}
