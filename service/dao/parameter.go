package dao

// Parameter is a name/value filter passed to List implementations.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a filter parameter; multiple values match as a set.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// Filter names understood by the flow repositories.
const (
	ParamStatus     = "Status"
	ParamType       = "Type"
	ParamOwner      = "Owner"
	ParamEngagement = "Engagement"
)
