package registry

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dev/fluxion/pkg/handlers/httprequest"
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

func testRegistry() *Registry {
	return NewDefaultRegistry(slog.New(slog.DiscardHandler), protocol.Dependencies{
		HTTPClient: http.DefaultClient,
	})
}

func TestCreateKnownType(t *testing.T) {
	r := testRegistry()

	h, err := r.Create(models.CategoryAction, httprequest.Subtype, map[string]any{
		"url": "https://example.com",
	})
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestCreateUnknownType(t *testing.T) {
	r := testRegistry()

	_, err := r.Create(models.CategoryAction, "teleport", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	r := testRegistry()

	// url is required by the http_request schema.
	_, err := r.Create(models.CategoryAction, httprequest.Subtype, map[string]any{
		"method": "GET",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNodeTypesListsDefaults(t *testing.T) {
	r := testRegistry()

	types := r.NodeTypes()
	assert.Contains(t, types, "action/http_request")
	assert.Contains(t, types, "action/email")
	assert.Contains(t, types, "condition/expression")
	assert.Contains(t, types, "trigger/manual")
}

func TestValidateGraph(t *testing.T) {
	r := testRegistry()

	graph := &models.WorkflowGraph{
		Nodes: []*models.Node{
			{ID: "start", Category: models.CategoryTrigger, Subtype: "manual"},
			{ID: "fetch", Category: models.CategoryAction, Subtype: "http_request", Config: map[string]any{
				"url": "https://example.com",
			}},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "fetch"},
		},
	}
	require.NoError(t, r.ValidateGraph(graph))

	graph.Nodes = append(graph.Nodes, &models.Node{
		ID: "bad", Category: models.CategoryAction, Subtype: "nope",
	})

	err := r.ValidateGraph(graph)
	require.Error(t, err)

	graphErr := &models.GraphError{}
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, "bad", graphErr.NodeID)
}
