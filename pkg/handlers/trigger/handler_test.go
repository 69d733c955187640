package trigger

import (
	"context"
	"testing"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualTrigger_AlwaysSucceeds(t *testing.T) {
	factory := NewManualFactory()
	assert.Equal(t, models.CategoryTrigger, factory.Category())
	assert.Equal(t, SubtypeManual, factory.Subtype())

	handler, err := factory.Create(map[string]any{})
	require.NoError(t, err)

	data, err := handler.Execute(context.Background(), protocol.Request{NodeID: "start"})
	require.NoError(t, err)
	assert.Equal(t, SubtypeManual, data["subtype"])
	assert.NotEmpty(t, data["fired_at"])
}

func TestWebhookTrigger_ReportsPathAndPayload(t *testing.T) {
	handler, err := NewWebhookFactory().Create(nil)
	require.NoError(t, err)

	data, err := handler.Execute(context.Background(), protocol.Request{
		Config:    map[string]any{"path": "/hooks/orders"},
		Variables: map[string]any{"webhook_payload": map[string]any{"id": 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/hooks/orders", data["path"])
	assert.Equal(t, map[string]any{"id": 7}, data["payload"])
}

func TestScheduleTrigger_ReportsCron(t *testing.T) {
	handler, err := NewScheduleFactory().Create(nil)
	require.NoError(t, err)

	data, err := handler.Execute(context.Background(), protocol.Request{
		Config: map[string]any{"cron": "*/5 * * * *"},
	})
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", data["cron"])
}
