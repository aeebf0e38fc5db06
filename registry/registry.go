// Package registry holds the static catalogue of model definitions: for every
// family and model name, the estimator type to build and its default
// hyperparameters.
package registry

import (
	"slices"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Family groups models by the task they solve.
type Family string

const (
	Classification Family = "classification"
	Regression     Family = "regression"
	Clustering     Family = "clustering"
)

// ModelDefinition describes how to build one named model.
type ModelDefinition struct {
	Family   Family
	Name     string
	TypeRef  string
	Defaults model.Params
}

var tables = map[Family]map[string]ModelDefinition{
	Classification: classificationModels,
	Regression:     regressionModels,
	Clustering:     clusteringModels,
}

// Families returns every known family in a fixed order.
func Families() []Family {
	return []Family{Classification, Regression, Clustering}
}

// ParseFamily converts a family name, failing for unknown names.
func ParseFamily(s string) (Family, error) {
	f := Family(s)
	if _, ok := tables[f]; !ok {
		return "", errors.NewUnknownModelError("family", s, lo.Map(Families(), func(f Family, _ int) string { return string(f) }))
	}
	return f, nil
}

// Available returns the sorted model names of a family.
func Available(family Family) []string {
	names := lo.Keys(tables[family])
	slices.Sort(names)
	return names
}

// GetConfig looks up a definition. The returned Defaults are a copy and may be
// modified by the caller.
func GetConfig(family Family, name string) (ModelDefinition, error) {
	table, ok := tables[family]
	if !ok {
		return ModelDefinition{}, errors.NewUnknownModelError(string(family), name, nil)
	}
	def, ok := table[name]
	if !ok {
		return ModelDefinition{}, errors.NewUnknownModelError(string(family), name, Available(family))
	}
	def.Defaults = def.Defaults.Copy()
	return def, nil
}
