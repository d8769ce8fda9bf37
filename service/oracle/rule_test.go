package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/policy"
)

func TestRule_Decide(t *testing.T) {
	testCases := []struct {
		description string
		policy      *policy.Policy
		phase       string
		expect      model.Action
	}{
		{
			description: "nil policy continues",
			phase:       "data_import",
			expect:      model.ActionContinue,
		},
		{
			description: "approve mode pauses every phase",
			policy:      &policy.Policy{Mode: policy.ModeApprove},
			phase:       "field_mapping",
			expect:      model.ActionPause,
		},
		{
			description: "approve list pauses named phase",
			policy:      &policy.Policy{ApproveList: []string{"asset_creation"}},
			phase:       "asset_creation",
			expect:      model.ActionPause,
		},
		{
			description: "skip list wins over approve list",
			policy:      &policy.Policy{ApproveList: []string{"cleansing"}, SkipList: []string{"cleansing"}},
			phase:       "cleansing",
			expect:      model.ActionSkip,
		},
		{
			description: "skip mode skips every phase",
			policy:      &policy.Policy{Mode: policy.ModeSkip},
			phase:       "data_import",
			expect:      model.ActionSkip,
		},
	}

	for _, testCase := range testCases {
		oracle := NewRule(nil)
		ctx := policy.WithPolicy(context.Background(), testCase.policy)
		decision, err := oracle.Decide(ctx, &model.Flow{ID: "f1"}, testCase.phase, nil, nil)
		assert.Nil(t, err, testCase.description)
		assert.Equal(t, testCase.expect, decision.Action, testCase.description)
	}
}

func TestRule_ContextOverridesDefault(t *testing.T) {
	oracle := NewRule(&policy.Policy{Mode: policy.ModeApprove})
	decision, err := oracle.Decide(context.Background(), &model.Flow{ID: "f1"}, "data_import", nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ActionPause, decision.Action)

	ctx := policy.WithPolicy(context.Background(), &policy.Policy{Mode: policy.ModeAuto})
	decision, err = oracle.Decide(ctx, &model.Flow{ID: "f1"}, "data_import", nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ActionContinue, decision.Action)
}
