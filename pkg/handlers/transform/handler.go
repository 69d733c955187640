// Package transform provides the data reshaping node handler. It has no
// external effects: the output is built purely from the resolved config and
// the upstream node outputs.
package transform

import (
	"context"
	"errors"
	"sort"

	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

const Subtype = "transform"

// Handler reshapes data flowing between nodes.
//
// The "output" config value arrives fully resolved, so arbitrary expressions
// over $node, $input and $vars have already been evaluated by the time
// Execute runs. The handler's own work is structural: merging upstream
// outputs and picking keys.
type Handler struct{}

// NewHandler creates a transform handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Execute builds the node output from config. Exactly one source is used:
// "output" when present, otherwise the merged upstream outputs when "merge"
// is set. "pick" then narrows the result to the listed keys.
func (h *Handler) Execute(_ context.Context, req protocol.Request) (map[string]any, error) {
	var result map[string]any

	output, hasOutput := req.Config["output"]
	merge, _ := req.Config["merge"].(bool)

	switch {
	case hasOutput:
		if shaped, ok := output.(map[string]any); ok {
			result = shaped
		} else {
			result = map[string]any{"result": output}
		}
	case merge:
		result = mergeInputs(req.Inputs)
	default:
		return nil, errors.New("transform requires 'output' or 'merge'")
	}

	if keys, ok := pickKeys(req.Config["pick"]); ok {
		result = pick(result, keys)
	}

	return result, nil
}

// mergeInputs flattens the upstream outputs into one map. Iteration order
// over inputs is not defined, so colliding keys keep the value from the
// lexically smallest upstream node id to stay deterministic.
func mergeInputs(inputs map[string]any) map[string]any {
	merged := make(map[string]any)

	for _, nodeID := range sortedKeys(inputs) {
		data, ok := inputs[nodeID].(map[string]any)
		if !ok {
			continue
		}

		for k, v := range data {
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
	}

	return merged
}

func pickKeys(raw any) ([]string, bool) {
	list, ok := raw.([]any)
	if !ok {
		return nil, false
	}

	keys := make([]string, 0, len(list))

	for _, item := range list {
		if key, ok := item.(string); ok {
			keys = append(keys, key)
		}
	}

	return keys, len(keys) > 0
}

func pick(data map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))

	for _, key := range keys {
		if value, ok := data[key]; ok {
			out[key] = value
		}
	}

	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
