// Package models defines the core domain models for graph-based workflow execution.
package models

import (
	"errors"
	"fmt"
)

// NodeCategory represents the category of a workflow node.
type NodeCategory string

const (
	CategoryTrigger   NodeCategory = "trigger"   // Entry nodes (manual, webhook, schedule)
	CategoryAction    NodeCategory = "action"    // Side-effecting nodes (http, email, log)
	CategoryTransform NodeCategory = "transform" // Pure data reshaping nodes
	CategoryCondition NodeCategory = "condition" // Branching nodes
)

// Condition nodes route downstream edges through these handles.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// Node is one unit of work in a workflow graph.
type Node struct {
	ID       string         `json:"id"       validate:"required"`
	Category NodeCategory   `json:"category" validate:"required,oneof=trigger action transform condition"`
	Subtype  string         `json:"subtype"  validate:"required"`
	Name     string         `json:"name"`
	Config   map[string]any `json:"config"`
}

// Edge is a directed dependency between two nodes. SourceHandle is set on
// edges leaving condition nodes to mark the branch they belong to.
type Edge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
}

// WorkflowGraph is the immutable node/edge snapshot one execution runs against.
// Edits to the underlying workflow definition never affect an in-flight execution.
type WorkflowGraph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Graph validation failure kinds.
var (
	ErrDanglingEdge  = errors.New("edge references missing node")
	ErrCycleDetected = errors.New("graph contains a cycle")
	ErrDuplicateNode = errors.New("duplicate node id")
)

// GraphError reports a graph validation failure with the offending element.
type GraphError struct {
	NodeID string // Offending node, when known
	EdgeID string // Offending edge, when known
	Err    error
}

func (e *GraphError) Error() string {
	switch {
	case e.EdgeID != "":
		return fmt.Sprintf("invalid graph: edge %s: %v", e.EdgeID, e.Err)
	case e.NodeID != "":
		return fmt.Sprintf("invalid graph: node %s: %v", e.NodeID, e.Err)
	default:
		return fmt.Sprintf("invalid graph: %v", e.Err)
	}
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// NodeByID returns the node with the given id, or nil.
func (g *WorkflowGraph) NodeByID(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// IncomingEdges returns the edges targeting the given node, in declaration order.
func (g *WorkflowGraph) IncomingEdges(nodeID string) []*Edge {
	var edges []*Edge

	for _, e := range g.Edges {
		if e.TargetNodeID == nodeID {
			edges = append(edges, e)
		}
	}

	return edges
}

// OutgoingEdges returns the edges leaving the given node, in declaration order.
func (g *WorkflowGraph) OutgoingEdges(nodeID string) []*Edge {
	var edges []*Edge

	for _, e := range g.Edges {
		if e.SourceNodeID == nodeID {
			edges = append(edges, e)
		}
	}

	return edges
}

// TriggerNodes returns the nodes with no incoming edges, in declaration order.
// These seed the planner's execution order.
func (g *WorkflowGraph) TriggerNodes() []*Node {
	incoming := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		incoming[e.TargetNodeID]++
	}

	var roots []*Node

	for _, n := range g.Nodes {
		if incoming[n.ID] == 0 {
			roots = append(roots, n)
		}
	}

	return roots
}

// Validate checks graph referential integrity and acyclicity. It returns a
// *GraphError wrapping ErrDuplicateNode, ErrDanglingEdge or ErrCycleDetected.
func (g *WorkflowGraph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))

	for _, n := range g.Nodes {
		if seen[n.ID] {
			return &GraphError{NodeID: n.ID, Err: ErrDuplicateNode}
		}

		seen[n.ID] = true
	}

	for _, e := range g.Edges {
		if !seen[e.SourceNodeID] {
			return &GraphError{EdgeID: e.ID, NodeID: e.SourceNodeID, Err: ErrDanglingEdge}
		}

		if !seen[e.TargetNodeID] {
			return &GraphError{EdgeID: e.ID, NodeID: e.TargetNodeID, Err: ErrDanglingEdge}
		}
	}

	return g.detectCycle()
}

// detectCycle runs a depth-first search with an explicit recursion stack.
func (g *WorkflowGraph) detectCycle() error {
	const (
		white = iota // unvisited
		grey         // on the recursion stack
		black        // fully explored
	)

	color := make(map[string]int, len(g.Nodes))

	var visit func(id string) error

	visit = func(id string) error {
		color[id] = grey

		for _, e := range g.OutgoingEdges(id) {
			switch color[e.TargetNodeID] {
			case grey:
				return &GraphError{NodeID: e.TargetNodeID, Err: ErrCycleDetected}
			case white:
				if err := visit(e.TargetNodeID); err != nil {
					return err
				}
			}
		}

		color[id] = black

		return nil
	}

	for _, n := range g.Nodes {
		if color[n.ID] == white {
			if err := visit(n.ID); err != nil {
				return err
			}
		}
	}

	return nil
}
