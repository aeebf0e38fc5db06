package modeling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/factory"
	"github.com/YuminosukeSato/mlkit/metrics"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

func twoBlobs() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(10, 2, []float64{
		0, 0, 0.1, 0.2, 0.2, 0.1, 0.1, 0, 0, 0.1,
		5, 5, 5.1, 5.2, 5.2, 5.1, 5.1, 5, 5, 5.1,
	})
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1})
	return X, y
}

func TestTrain(t *testing.T) {
	X, y := twoBlobs()
	est, err := factory.CreateClassificationModel("tree_classifier", nil)
	require.NoError(t, err)

	split, err := Train(X, y, est, TrainOptions{TestSize: 0.2, Seed: 42, ReturnSplit: true})
	require.NoError(t, err)
	require.NotNil(t, split.XTest)
	r, _ := split.XTest.Dims()
	assert.Equal(t, 2, r)
	assert.Len(t, split.TrainIndex, 8)

	pred, err := Predict(est, split.XTest)
	require.NoError(t, err)
	assert.Equal(t, mat.Col(nil, 0, split.YTest), pred)
}

func TestTrain_WithoutSplitData(t *testing.T) {
	X, y := twoBlobs()
	est, err := factory.CreateClassificationModel("logistic_regression", nil)
	require.NoError(t, err)

	split, err := Train(X, y, est, DefaultTrainOptions())
	require.NoError(t, err)
	assert.Nil(t, split.XTrain)
	assert.Nil(t, split.XTest)
	assert.Len(t, split.TestIndex, 2)
}

func TestTrain_Errors(t *testing.T) {
	X, y := twoBlobs()
	_, err := Train(X, y, nil, DefaultTrainOptions())
	assert.Error(t, err)

	est, err := factory.CreateClassificationModel("tree_classifier", nil)
	require.NoError(t, err)
	_, err = Train(X, mat.NewDense(3, 1, nil), est, DefaultTrainOptions())
	assert.Error(t, err)

	_, err = Train(X, y, est, TrainOptions{TestSize: 1.5})
	assert.Error(t, err)
}

func TestTrainClustering(t *testing.T) {
	X, _ := twoBlobs()
	est, err := factory.CreateClusteringModel("kmeans", map[string]interface{}{"n_clusters": 2})
	require.NoError(t, err)

	pred, err := TrainClustering(X, est)
	require.NoError(t, err)
	require.Len(t, pred, 10)
	for i := 1; i < 5; i++ {
		assert.Equal(t, pred[0], pred[i])
		assert.Equal(t, pred[5], pred[5+i])
	}
	assert.NotEqual(t, pred[0], pred[5])
}

func TestEvaluateClassification(t *testing.T) {
	yTrue := []float64{0, 0, 1, 1}
	yPred := []float64{0, 1, 1, 1}
	report, err := EvaluateClassification(yTrue, yPred, nil, nil, metrics.AverageBinary)
	require.NoError(t, err)

	assert.Equal(t, []string{"Accuracy", "Precision", "Recall", "F1-score", "Confusion Matrix"}, report.Names())
	acc, _ := report.Value("Accuracy")
	assert.Equal(t, 0.75, acc)
	precision, _ := report.Value("Precision")
	assert.InDelta(t, 2.0/3.0, precision, 1e-12)
	recall, _ := report.Value("Recall")
	assert.Equal(t, 1.0, recall)
	cm, ok := report.Get("Confusion Matrix")
	require.True(t, ok)
	assert.Equal(t, [][]int{{1, 1}, {0, 2}}, cm.Matrix)
}

func TestEvaluateClassification_ROCAUC(t *testing.T) {
	yTrue := []float64{0, 0, 1, 1}
	yPred := []float64{0, 0, 1, 1}
	proba := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.6, 0.4,
		0.3, 0.7,
		0.2, 0.8,
	})
	report, err := EvaluateClassification(yTrue, yPred, proba, nil, metrics.AverageBinary)
	require.NoError(t, err)
	auc, ok := report.Value("ROC AUC")
	require.True(t, ok)
	assert.Equal(t, 1.0, auc)

	report, err = EvaluateClassification(yTrue, yPred, proba, nil, metrics.AverageMacro)
	require.NoError(t, err)
	_, ok = report.Get("ROC AUC")
	assert.False(t, ok)

	_, err = EvaluateClassification(yTrue, yPred, mat.NewDense(3, 2, nil), nil, metrics.AverageBinary)
	assert.Error(t, err)
}

func TestEvaluateClassification_ROCAUCPositiveIsLastClass(t *testing.T) {
	yTrue := []float64{1, 1, 2, 2}
	yPred := []float64{1, 1, 2, 2}
	proba := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.6, 0.4,
		0.3, 0.7,
		0.2, 0.8,
	})
	for name, classes := range map[string][]float64{
		"explicit": {1, 2},
		"derived":  nil,
	} {
		t.Run(name, func(t *testing.T) {
			report, err := EvaluateClassification(yTrue, yPred, proba, classes, metrics.AverageBinary)
			require.NoError(t, err)
			auc, ok := report.Value("ROC AUC")
			require.True(t, ok)
			assert.Equal(t, 1.0, auc)
		})
	}

	_, err := EvaluateClassification(yTrue, yPred, proba, []float64{0, 1, 2}, metrics.AverageBinary)
	assert.Error(t, err)
}

func TestClassesOf(t *testing.T) {
	est, err := factory.CreateClassificationModel("tree_classifier", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, ClassesOf(est, []float64{5, 2, 5}))

	X := mat.NewDense(4, 1, []float64{0, 1, 10, 11})
	y := mat.NewDense(4, 1, []float64{3, 3, 7, 7})
	require.NoError(t, est.Fit(X, y))
	assert.Equal(t, []float64{3, 7}, ClassesOf(est, []float64{7}))
}

func TestEvaluateClassification_Errors(t *testing.T) {
	_, err := EvaluateClassification([]float64{0, 1}, []float64{0}, nil, nil, metrics.AverageBinary)
	assert.Error(t, err)
	_, err = EvaluateClassification(nil, nil, nil, nil, metrics.AverageBinary)
	assert.Error(t, err)
	_, err = EvaluateClassification([]float64{0, 1, 2}, []float64{0, 1, 2}, nil, nil, metrics.AverageBinary)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestEvaluateRegression(t *testing.T) {
	report, err := EvaluateRegression([]float64{1, 2, 4}, []float64{1, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"MAE", "MSE", "R2", "RMSE", "MAPE"}, report.Names())

	mae, _ := report.Value("MAE")
	assert.InDelta(t, 2.0/3.0, mae, 1e-12)
	mse, _ := report.Value("MSE")
	assert.InDelta(t, 4.0/3.0, mse, 1e-12)
	mape, _ := report.Value("MAPE")
	assert.InDelta(t, 50.0/3.0, mape, 1e-9)
}

func TestEvaluateClustering(t *testing.T) {
	X, _ := twoBlobs()
	labels := []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	report, err := EvaluateClustering(X, labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"Silhouette Score", "Davies-Bouldin Index"}, report.Names())

	s, _ := report.Value("Silhouette Score")
	assert.Greater(t, s, 0.9)
	db, _ := report.Value("Davies-Bouldin Index")
	assert.Less(t, db, 0.1)

	_, err = EvaluateClustering(X, make([]int, 10))
	assert.Error(t, err)
}

func TestIntLabels(t *testing.T) {
	assert.Equal(t, []int{0, -1, 2}, IntLabels([]float64{0, -1, 2}))
}
