// Package factory builds unfitted estimators from registry definitions.
package factory

import (
	"time"

	"github.com/YuminosukeSato/mlkit/core/model"
	_ "github.com/YuminosukeSato/mlkit/estimators"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
	"github.com/YuminosukeSato/mlkit/registry"
)

// Create builds a new estimator of the named model. overrides are merged over
// the registry defaults, later values winning; keys absent from the defaults
// are passed through unchanged.
func Create(family registry.Family, name string, overrides model.Params) (model.Estimator, error) {
	def, err := registry.GetConfig(family, name)
	if err != nil {
		return nil, err
	}
	ctor, err := model.ResolveType(def.TypeRef)
	if err != nil {
		return nil, err
	}
	params := def.Defaults.Merge(overrides)

	start := time.Now()
	var est model.Estimator
	err = errors.SafeExecute("construct "+name, func() error {
		var cerr error
		est, cerr = ctor(params)
		return cerr
	})
	if err != nil {
		return nil, errors.NewModelConstructionError(string(family), name, err)
	}

	log.GetLoggerWithName("factory").Debug("estimator constructed",
		log.OperationKey, log.OperationConstruct,
		log.FamilyKey, string(family),
		log.ModelNameKey, name,
		log.TypeRefKey, def.TypeRef,
		log.HyperParamsKey, params.String(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return est, nil
}

// CreateClassificationModel is Create for the classification family.
func CreateClassificationModel(name string, overrides model.Params) (model.Estimator, error) {
	return Create(registry.Classification, name, overrides)
}

// CreateRegressionModel is Create for the regression family.
func CreateRegressionModel(name string, overrides model.Params) (model.Estimator, error) {
	return Create(registry.Regression, name, overrides)
}

// CreateClusteringModel is Create for the clustering family.
func CreateClusteringModel(name string, overrides model.Params) (model.Estimator, error) {
	return Create(registry.Clustering, name, overrides)
}
