package status

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/registry"
	"github.com/viant/orchestra/service/dao/flow/memory"
	"github.com/viant/orchestra/service/lifecycle"
)

func newHarness(t *testing.T) (*Service, *lifecycle.Service) {
	reg := registry.New()
	err := reg.RegisterFlowType(&model.FlowConfig{
		Type: "discovery",
		Phases: []*model.PhaseConfig{
			{Name: "data_import"},
			{Name: "field_mapping"},
			{Name: "cleansing"},
			{Name: "asset_creation"},
		},
	})
	assert.Nil(t, err)
	manager := lifecycle.New(memory.New(), zerolog.Nop())
	return New(manager, reg), manager
}

func TestService_GetFlowStatus(t *testing.T) {
	srv, manager := newHarness(t)
	ctx := context.Background()

	flow, err := manager.Create(ctx, "f1", "discovery", "Acme discovery", nil, nil)
	assert.Nil(t, err)
	flow.SetStatus(model.StatusProcessing)
	flow.SetCurrentPhase("cleansing")

	out, err := srv.GetFlowStatus(ctx, "f1", false)
	assert.Nil(t, err)
	assert.Equal(t, model.StatusProcessing, out.Status)
	assert.Equal(t, "cleansing", out.CurrentPhase)
	assert.Equal(t, 4, out.TotalPhases)
	assert.Equal(t, 50, out.ProgressPercentage)
	assert.Equal(t, []string{"data_import", "field_mapping"}, out.CompletedPhases)
	assert.Nil(t, out.Child)

	_, err = srv.GetFlowStatus(ctx, "missing", false)
	assert.ErrorIs(t, err, lifecycle.ErrFlowNotFound)
}

func TestService_GetFlowStatus_Completed(t *testing.T) {
	srv, manager := newHarness(t)
	ctx := context.Background()
	flow, err := manager.Create(ctx, "f1", "discovery", "", nil, nil)
	assert.Nil(t, err)
	flow.SetStatus(model.StatusCompleted)

	out, err := srv.GetFlowStatus(ctx, "f1", false)
	assert.Nil(t, err)
	assert.Equal(t, 100, out.ProgressPercentage)
	assert.Equal(t, 4, len(out.CompletedPhases))
}

func TestService_GetFlowStatus_ChildProvider(t *testing.T) {
	srv, manager := newHarness(t)
	ctx := context.Background()
	_, err := manager.Create(ctx, "f1", "discovery", "", nil, nil)
	assert.Nil(t, err)

	srv.RegisterProvider("discovery", ProviderFunc(func(ctx context.Context, flowID string) (map[string]interface{}, error) {
		return map[string]interface{}{"workers": 2, "progress_percentage": 40}, nil
	}))

	out, err := srv.GetFlowStatus(ctx, "f1", true)
	assert.Nil(t, err)
	assert.Equal(t, 2, out.Child["workers"])

	// Provider failures degrade to the lifecycle view.
	srv.RegisterProvider("discovery", ProviderFunc(func(ctx context.Context, flowID string) (map[string]interface{}, error) {
		return nil, errors.New("downstream unavailable")
	}))
	out, err = srv.GetFlowStatus(ctx, "f1", true)
	assert.Nil(t, err)
	assert.Nil(t, out.Child)
}

func TestService_ListFlowsByEngagement(t *testing.T) {
	srv, manager := newHarness(t)
	ctx := context.Background()

	for _, id := range []string{"f1", "f2", "f3"} {
		flow, err := manager.Create(ctx, id, "discovery", "", nil, nil)
		assert.Nil(t, err)
		flow.Engagement = "eng-1"
	}
	other, err := manager.Create(ctx, "f4", "discovery", "", nil, nil)
	assert.Nil(t, err)
	other.Engagement = "eng-2"

	page, err := srv.ListFlowsByEngagement(ctx, "eng-1", 0, 2)
	assert.Nil(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, len(page.Items))

	page, err = srv.ListFlowsByEngagement(ctx, "eng-1", 2, 2)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(page.Items))

	page, err = srv.ListFlowsByEngagement(ctx, "eng-1", 10, 2)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(page.Items))
}
