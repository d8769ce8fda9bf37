package registry

import (
	"fmt"
	"reflect"

	"github.com/viant/structology/conv"
	"github.com/viant/x"
)

// Types keeps the Go types registered as phase input envelopes. A flow type
// may declare an envelope per phase; the engine converts the raw phase input
// into the envelope before pre-validation so that each phase declares exactly
// the fields it reads.
type Types struct {
	x.Registry
	converter *conv.Converter
}

// Register adds an envelope type to the registry.
func (t *Types) Register(dataType *x.Type) {
	t.Registry.Register(dataType)
}

// Lookup returns a registered type by name, or nil.
func (t *Types) Lookup(name string) *x.Type {
	return t.Registry.Lookup(name)
}

// Instantiate converts value into a new instance of the named envelope type.
func (t *Types) Instantiate(name string, value interface{}) (interface{}, error) {
	envelope := t.Lookup(name)
	if envelope == nil {
		return nil, fmt.Errorf("envelope type %v not found", name)
	}
	rType := envelope.Type
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	instance := reflect.New(rType).Interface()
	if err := t.converter.Convert(value, instance); err != nil {
		return nil, fmt.Errorf("failed to convert into envelope %v: %w", name, err)
	}
	return instance, nil
}

// NewTypes creates an envelope type registry.
func NewTypes(goTypes ...*x.Type) *Types {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true

	ret := &Types{
		Registry:  *x.NewRegistry(),
		converter: conv.NewConverter(options),
	}
	for _, goType := range goTypes {
		if goType != nil {
			ret.Register(goType)
		}
	}
	return ret
}
