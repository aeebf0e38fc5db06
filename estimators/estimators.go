// Package estimators links every estimator package into the binary so that
// their type references resolve. Import it for its side effects:
//
//	import _ "github.com/YuminosukeSato/mlkit/estimators"
package estimators

import (
	_ "github.com/YuminosukeSato/mlkit/sklearn/cluster"
	_ "github.com/YuminosukeSato/mlkit/sklearn/ensemble"
	_ "github.com/YuminosukeSato/mlkit/sklearn/linear_model"
	_ "github.com/YuminosukeSato/mlkit/sklearn/mixture"
	_ "github.com/YuminosukeSato/mlkit/sklearn/svm"
	_ "github.com/YuminosukeSato/mlkit/sklearn/tree"
)
