package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/sklearn/tree"
)

// BoostedClassifier is the fitted state shared by the gradient-boosted
// classifiers. Binary problems use the logistic loss, more classes softmax.
type BoostedClassifier struct {
	model.BaseEstimator

	ModelName   string
	ClassLabels []float64
	Booster     *Booster
}

func (bc *BoostedClassifier) fit(X, y mat.Matrix, classWeight string, cfg BoostConfig) error {
	op := bc.ModelName + ".Fit"
	nSamples, nFeatures, err := model.CheckXY(op, X, y)
	if err != nil {
		return err
	}
	classes, encoded := model.EncodeLabels(model.Column(y))
	if err := model.RequireClasses(op, classes); err != nil {
		return err
	}
	weights, err := model.ClassWeights(classWeight, encoded, len(classes))
	if err != nil {
		return err
	}
	target := make([]float64, nSamples)
	for i, c := range encoded {
		target[i] = float64(c)
	}

	cfg.NClasses = len(classes)
	cfg.Loss = LossLogistic
	if len(classes) > 2 {
		cfg.Loss = LossSoftmax
	}
	booster, err := Boost(model.Rows(X), target, weights, cfg)
	if err != nil {
		return err
	}
	bc.ClassLabels = classes
	bc.Booster = booster
	bc.SetDimensions(nFeatures, nSamples)
	bc.SetFitted()
	return nil
}

// Classes returns the sorted class labels seen during Fit.
func (bc *BoostedClassifier) Classes() []float64 {
	return bc.ClassLabels
}

// DecisionFunction returns the raw additive scores: one column for binary
// problems, one per class otherwise.
func (bc *BoostedClassifier) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := bc.check("DecisionFunction", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), bc.Booster.NOutputs(), nil)
	for i, row := range rows {
		out.SetRow(i, bc.Booster.Raw(row))
	}
	return out, nil
}

// PredictProba returns class probabilities.
func (bc *BoostedClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := bc.check("PredictProba", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), len(bc.ClassLabels), nil)
	for i, row := range rows {
		out.SetRow(i, bc.Booster.Proba(row))
	}
	return out, nil
}

// Predict returns the most probable class.
func (bc *BoostedClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := bc.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.DecodeClasses(bc.ClassLabels, model.ArgmaxRows(proba)), nil
}

// Score returns the mean accuracy.
func (bc *BoostedClassifier) Score(X, y mat.Matrix) (float64, error) {
	return model.AccuracyScore(bc, X, y)
}

// FeatureImportances returns the normalized total gain per feature.
func (bc *BoostedClassifier) FeatureImportances() []float64 {
	if bc.Booster == nil {
		return nil
	}
	return tree.Normalize(bc.Booster.Importances())
}

// NRounds returns the number of boosting rounds performed.
func (bc *BoostedClassifier) NRounds() int {
	if bc.Booster == nil {
		return 0
	}
	return len(bc.Booster.Rounds)
}

func (bc *BoostedClassifier) check(method string, X mat.Matrix) error {
	if err := bc.RequireFitted(bc.ModelName, method); err != nil {
		return err
	}
	return bc.CheckFeatures(bc.ModelName+"."+method, X)
}

// BoostedRegressor is the fitted state shared by the gradient-boosted
// regressors (squared loss).
type BoostedRegressor struct {
	model.BaseEstimator

	ModelName string
	Booster   *Booster
}

func (br *BoostedRegressor) fit(X, y mat.Matrix, cfg BoostConfig) error {
	nSamples, nFeatures, err := model.CheckXY(br.ModelName+".Fit", X, y)
	if err != nil {
		return err
	}
	cfg.Loss = LossSquared
	booster, err := Boost(model.Rows(X), model.Column(y), nil, cfg)
	if err != nil {
		return err
	}
	br.Booster = booster
	br.SetDimensions(nFeatures, nSamples)
	br.SetFitted()
	return nil
}

// Predict returns the additive model's predictions.
func (br *BoostedRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := br.RequireFitted(br.ModelName, "Predict"); err != nil {
		return nil, err
	}
	if err := br.CheckFeatures(br.ModelName+".Predict", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = br.Booster.Raw(row)[0]
	}
	return model.ColumnVector(out), nil
}

// Score returns the coefficient of determination R^2.
func (br *BoostedRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.R2(br, X, y)
}

// FeatureImportances returns the normalized total gain per feature.
func (br *BoostedRegressor) FeatureImportances() []float64 {
	if br.Booster == nil {
		return nil
	}
	return tree.Normalize(br.Booster.Importances())
}

// NRounds returns the number of boosting rounds performed.
func (br *BoostedRegressor) NRounds() int {
	if br.Booster == nil {
		return 0
	}
	return len(br.Booster.Rounds)
}
