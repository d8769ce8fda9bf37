package criteria

import (
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/service/dao"
)

// MatchFlow evaluates list filter parameters against a flow. Unknown
// parameter names are ignored so that storage-specific hints can coexist
// with field filters.
func MatchFlow(flow *model.Flow, parameters []*dao.Parameter) bool {
	if flow == nil {
		return false
	}
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		switch parameter.Name {
		case dao.ParamStatus:
			if !matchValue(string(flow.GetStatus()), parameter.Value) {
				return false
			}
		case dao.ParamType:
			if !matchValue(flow.Type, parameter.Value) {
				return false
			}
		case dao.ParamOwner:
			if !matchValue(flow.Owner, parameter.Value) {
				return false
			}
		case dao.ParamEngagement:
			if !matchValue(flow.Engagement, parameter.Value) {
				return false
			}
		}
	}
	return true
}

func matchValue(actual string, expect interface{}) bool {
	switch value := expect.(type) {
	case string:
		return actual == value
	case []string:
		for _, candidate := range value {
			if actual == candidate {
				return true
			}
		}
		return false
	}
	return true
}
