// Package initwfn implements weight-initialization algorithms for
// linear layers and wraps them so that they can be JSON serialized
// into configuration files.
//
// Initializers never touch ambient global random state: every fill
// draws from an explicitly provided rand.Source, so that construction
// order is never observably significant.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Type describes different types of initializers that are available.
// Type is used to implement a basic type system of initializers.
type Type string

// Available initializer types
const (
	FanIn   Type = "FanIn"
	Uniform Type = "Uniform"
	Zeroes  Type = "Zeroes"
)

// Initializer fills a matrix of weights in place, drawing any needed
// randomness from src.
type Initializer func(weights *mat.Dense, src rand.Source)

// InitWFn wraps an Initializer together with its configuration so that
// it can be JSON marshalled and unmarshalled.
type InitWFn struct {
	initializer Initializer
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initializer = init.Config.Create()

	return &init, nil
}

// Initialize fills weights in place using the wrapped algorithm.
func (w *InitWFn) Initialize(weights *mat.Dense, src rand.Source) {
	w.initializer(weights, src)
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(FanIn):   reflect.TypeOf(FanInConfig{}),
			string(Uniform): reflect.TypeOf(UniformConfig{}),
			string(Zeroes):  reflect.TypeOf(ZeroesConfig{}),
		})
	if err != nil {
		return err
	}

	i.Type = typeName
	i.Config = config
	i.initializer = i.Config.Create()

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName := m[typeJsonField].(string)
	var value Config
	if ty, found := customTypes[typeName]; found {
		value = reflect.New(ty).Interface().(Config)
	}

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, &value); err != nil {
		return nil, "", err
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}

// Config implements an initializer configuration and can be used to
// create the described Initializer.
type Config interface {
	// Create returns the Initializer that the Config describes
	Create() Initializer

	// Type returns the type of Initializer that is returned
	Type() Type
}

// fill overwrites every element of weights with a draw from dist. The
// raw backing slice is filled directly, matching the layout of a
// freshly constructed dense matrix.
func fill(weights *mat.Dense, dist distuv.Rander) {
	backing := weights.RawMatrix().Data
	for i := range backing {
		backing[i] = dist.Rand()
	}
}
