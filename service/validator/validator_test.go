package validator

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/registry"
	"github.com/viant/x"
)

func TestRequiredFields(t *testing.T) {
	testCases := []struct {
		description string
		fields      []string
		data        map[string]interface{}
		expectValid bool
		violations  int
	}{
		{
			description: "all fields present",
			fields:      []string{"source", "format"},
			data:        map[string]interface{}{"source": "s3://bucket/raw", "format": "csv"},
			expectValid: true,
		},
		{
			description: "missing field reported",
			fields:      []string{"source", "format"},
			data:        map[string]interface{}{"source": "s3://bucket/raw"},
			violations:  1,
		},
		{
			description: "empty value counts as missing",
			fields:      []string{"source"},
			data:        map[string]interface{}{"source": ""},
			violations:  1,
		},
		{
			description: "required list taken from input",
			data:        map[string]interface{}{"required": []string{"source"}},
			violations:  1,
		},
	}

	for _, testCase := range testCases {
		validator := RequiredFields(testCase.fields...)
		result, err := validator.Validate(context.Background(), &model.Flow{ID: "f1"}, nil, testCase.data)
		assert.Nil(t, err, testCase.description)
		assert.Equal(t, testCase.expectValid, result.Valid, testCase.description)
		assert.Equal(t, testCase.violations, len(result.Errors), testCase.description)
	}
}

type importEnvelope struct {
	Source string `json:"source"`
	Format string `json:"format"`
}

func TestEnvelope(t *testing.T) {
	types := registry.NewTypes(x.NewType(reflect.TypeOf(importEnvelope{}), x.WithName("ImportEnvelope")))
	validator := Envelope(types)

	phase := &model.PhaseConfig{Name: "data_import", Envelope: "ImportEnvelope"}
	result, err := validator.Validate(context.Background(), &model.Flow{ID: "f1"}, phase,
		map[string]interface{}{"source": "s3://bucket/raw", "format": "csv"})
	assert.Nil(t, err)
	assert.True(t, result.Valid)

	// Unknown envelope type fails validation rather than erroring.
	phase = &model.PhaseConfig{Name: "data_import", Envelope: "MissingEnvelope"}
	result, err = validator.Validate(context.Background(), &model.Flow{ID: "f1"}, phase, map[string]interface{}{})
	assert.Nil(t, err)
	assert.False(t, result.Valid)

	// Phases without an envelope pass.
	result, err = validator.Validate(context.Background(), &model.Flow{ID: "f1"}, &model.PhaseConfig{Name: "cleanse"}, nil)
	assert.Nil(t, err)
	assert.True(t, result.Valid)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Lookup("required_fields")
	assert.Nil(t, err)
	_, err = reg.Lookup("nope")
	assert.NotNil(t, err)

	reg.Register("custom", Func(func(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, data map[string]interface{}) (*Result, error) {
		return Valid(), nil
	}))
	validator, err := reg.Lookup("custom")
	assert.Nil(t, err)
	result, err := validator.Validate(context.Background(), nil, nil, nil)
	assert.Nil(t, err)
	assert.True(t, result.Valid)
}
