package registry

import (
	"context"

	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/service/meta"
)

// Load reads a flow-type definition from the supplied location and registers
// it. The location may use any URL scheme supported by the meta service.
func (s *Service) Load(ctx context.Context, metaService *meta.Service, location string) (*model.FlowConfig, error) {
	config := &model.FlowConfig{}
	if err := metaService.Load(ctx, location, config); err != nil {
		return nil, err
	}
	if err := s.RegisterFlowType(config); err != nil {
		return nil, err
	}
	return config, nil
}
