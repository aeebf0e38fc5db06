package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/dataset"
	"github.com/YuminosukeSato/mlkit/metrics"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
	"github.com/YuminosukeSato/mlkit/preprocessing"
	"github.com/YuminosukeSato/mlkit/sklearn/cluster"
	"github.com/YuminosukeSato/mlkit/sklearn/ensemble"
	"github.com/YuminosukeSato/mlkit/storage"
)

// blobs returns centers*perCenter rows of two features around (4c, 4c) with
// the center index in a third "label" column.
func blobs(t *testing.T, centers, perCenter int) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	n := centers * perCenter
	data := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		c := i % centers
		data.Set(i, 0, 4*float64(c)+rng.NormFloat64()*0.5)
		data.Set(i, 1, 4*float64(c)+rng.NormFloat64()*0.5)
		data.Set(i, 2, float64(c))
	}
	frame, err := dataset.NewFrame([]string{"f1", "f2", "label"}, data)
	require.NoError(t, err)
	return frame
}

func features(t *testing.T, frame *dataset.Frame) *dataset.Frame {
	t.Helper()
	X, _, names, err := frame.Separate("label")
	require.NoError(t, err)
	out, err := dataset.NewFrame(names, X)
	require.NoError(t, err)
	return out
}

func linearFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	data := mat.NewDense(120, 3, nil)
	for i := 0; i < 120; i++ {
		a, b := rng.Float64()*10, rng.Float64()*10
		data.Set(i, 0, a)
		data.Set(i, 1, b)
		data.Set(i, 2, 2*a+3*b+1+rng.NormFloat64()*0.1)
	}
	frame, err := dataset.NewFrame([]string{"a", "b", "target"}, data)
	require.NoError(t, err)
	return frame
}

func TestClassification_TwoClasses(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultClassificationOptions()
	opts.Data = Source{Frame: blobs(t, 2, 50)}
	opts.Stratify = true
	opts.Target = "label"
	opts.Params = model.Params{"n_estimators": 20}
	opts.Output = Output{Dir: dir}

	res, err := Classification(context.Background(), opts)
	require.NoError(t, err)

	acc, ok := res.Metrics.Value(metrics.NameAccuracy)
	require.True(t, ok)
	assert.GreaterOrEqual(t, acc, 0.0)
	assert.LessOrEqual(t, acc, 1.0)

	cm, ok := res.Metrics.Get(metrics.NameConfusionMatrix)
	require.True(t, ok)
	require.Len(t, cm.Matrix, 2)
	total := 0
	for _, row := range cm.Matrix {
		require.Len(t, row, 2)
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0)
			total += v
		}
	}
	assert.Equal(t, 20, total)
	assert.Len(t, res.Predictions, 20)

	assert.Equal(t, []string{
		metrics.NameAccuracy, metrics.NamePrecision, metrics.NameRecall,
		metrics.NameF1, metrics.NameConfusionMatrix, metrics.NameROCAUC,
	}, res.Metrics.Names())

	assert.Nil(t, res.Scaler)
	assert.Equal(t, []string{"random_forest_model.gob"}, res.Artifacts)
	assert.FileExists(t, filepath.Join(dir, "random_forest_model.gob"))
	assert.NotEmpty(t, res.RunID)
}

func TestClassification_OverridesReachModel(t *testing.T) {
	opts := DefaultClassificationOptions()
	opts.Data = Source{Frame: blobs(t, 2, 20)}
	opts.Stratify = true
	opts.Target = "label"
	opts.Params = model.Params{"n_estimators": 50}
	opts.Output = Output{Dir: t.TempDir()}

	res, err := Classification(context.Background(), opts)
	require.NoError(t, err)
	rf, ok := res.Model.(*ensemble.RandomForestClassifier)
	require.True(t, ok)
	assert.Equal(t, 50, rf.Params.NEstimators)
	assert.Len(t, rf.Estimators, 50)
}

func TestClassification_RoundTrip(t *testing.T) {
	store := storage.NewPOSIX(t.TempDir())
	opts := DefaultClassificationOptions()
	opts.Data = Source{Frame: blobs(t, 2, 40)}
	opts.Stratify = true
	opts.Target = "label"
	opts.Model = "logistic_regression"
	opts.Scale = preprocessing.ScaleStandard
	opts.ReturnData = true
	opts.Output = Output{Store: store}

	res, err := Classification(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Scaler)
	assert.Equal(t, []string{"logistic_regression_model.gob", "logistic_regression_scaler.gob"}, res.Artifacts)

	loaded, err := LoadModel(store, "logistic_regression_model.gob")
	require.NoError(t, err)
	pred, err := loaded.Predict(res.Split.XTest)
	require.NoError(t, err)
	assert.Equal(t, res.Predictions, model.Column(pred))

	scaler, err := LoadScaler(store, "logistic_regression_scaler.gob")
	require.NoError(t, err)
	X, _, _, err := opts.Data.Frame.Separate("label")
	require.NoError(t, err)
	want, err := res.Scaler.Transform(X)
	require.NoError(t, err)
	got, err := scaler.Transform(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestClassification_Idempotent(t *testing.T) {
	frame := blobs(t, 2, 30)
	run := func() *Result {
		opts := DefaultClassificationOptions()
		opts.Data = Source{Frame: frame}
		opts.Stratify = true
		opts.Target = "label"
		opts.Model = "logistic_regression"
		opts.Output = Output{Dir: t.TempDir()}
		res, err := Classification(context.Background(), opts)
		require.NoError(t, err)
		return res
	}
	first, second := run(), run()
	assert.Equal(t, first.Predictions, second.Predictions)
	assert.Equal(t, first.Split.TestIndex, second.Split.TestIndex)
	assert.Equal(t, first.Metrics, second.Metrics)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestClassification_SplitIndicesByDefault(t *testing.T) {
	opts := DefaultClassificationOptions()
	opts.Data = Source{Frame: blobs(t, 2, 20)}
	opts.Stratify = true
	opts.Target = "label"
	opts.Model = "logistic_regression"
	opts.Output = Output{Dir: t.TempDir()}

	res, err := Classification(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Split)
	assert.Len(t, res.Split.TestIndex, 8)
	assert.Len(t, res.Split.TrainIndex, 32)
	assert.Nil(t, res.Split.XTrain)
	assert.Nil(t, res.Split.XTest)
	assert.Nil(t, res.Split.YTest)

	opts.ReturnData = true
	res, err = Classification(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Split.XTest)
	rows, _ := res.Split.XTest.Dims()
	assert.Equal(t, 8, rows)
}

func TestClassification_ROCAUCWithLabelsOneTwo(t *testing.T) {
	frame := blobs(t, 2, 40)
	data := mat.DenseCopyOf(frame.Data)
	rows, _ := data.Dims()
	for i := 0; i < rows; i++ {
		data.Set(i, 2, data.At(i, 2)+1)
	}
	shifted, err := dataset.NewFrame(frame.Columns, data)
	require.NoError(t, err)

	opts := DefaultClassificationOptions()
	opts.Data = Source{Frame: shifted}
	opts.Stratify = true
	opts.Target = "label"
	opts.Model = "tree_classifier"
	opts.Output = Output{Dir: t.TempDir()}

	res, err := Classification(context.Background(), opts)
	require.NoError(t, err)
	acc, _ := res.Metrics.Value(metrics.NameAccuracy)
	require.Equal(t, 1.0, acc)
	auc, ok := res.Metrics.Value(metrics.NameROCAUC)
	require.True(t, ok)
	assert.Equal(t, 1.0, auc)
}

func TestClassification_CSVPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	var b strings.Builder
	b.WriteString("f1,f2,label\n")
	frame := blobs(t, 2, 25)
	rows, _ := frame.Dims()
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%g,%g,%g\n", frame.Data.At(i, 0), frame.Data.At(i, 1), frame.Data.At(i, 2))
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	opts := DefaultClassificationOptions()
	opts.Data = Source{Path: path}
	opts.Target = "label"
	opts.Model = "tree_classifier"
	opts.Stratify = true
	opts.Output = Output{Dir: t.TempDir()}

	res, err := Classification(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, res.Predictions, 10)
}

func TestClassification_Versioned(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	opts := DefaultClassificationOptions()
	opts.Data = Source{Frame: blobs(t, 2, 20)}
	opts.Stratify = true
	opts.Target = "label"
	opts.Model = "tree_classifier"
	opts.Scale = preprocessing.ScaleMinMax
	opts.Output = Output{Dir: dir, Versioned: true, Now: func() time.Time { return now }}

	res, err := Classification(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"tree_classifier_model_20240102_030405.gob",
		"tree_classifier_scaler_20240102_030405.gob",
	}, res.Artifacts)
	for _, name := range res.Artifacts {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestClassification_MissingTarget(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultClassificationOptions()
	opts.Data = Source{Frame: blobs(t, 2, 10)}
	opts.Target = "species"
	opts.Output = Output{Dir: dir}

	res, err := Classification(context.Background(), opts)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "species")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClassification_InvalidOptions(t *testing.T) {
	frame := blobs(t, 2, 10)
	tests := map[string]ClassificationOptions{
		"no target":    {Data: Source{Frame: frame}},
		"test size":    {Data: Source{Frame: frame}, Target: "label", TestSize: 1.5},
		"average":      {Data: Source{Frame: frame}, Target: "label", Average: "mean"},
		"scale":        {Data: Source{Frame: frame}, Target: "label", Scale: "robust"},
		"no data":      {Target: "label"},
		"unknown name": {Data: Source{Frame: frame}, Target: "label", Model: "not_a_model"},
	}
	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			opts.Output = Output{Dir: t.TempDir()}
			_, err := Classification(context.Background(), opts)
			assert.Error(t, err)
		})
	}

	_, err := Classification(context.Background(), ClassificationOptions{
		Data:   Source{Frame: frame},
		Target: "label",
		Model:  "not_a_model",
		Output: Output{Dir: t.TempDir()},
	})
	var unknown *errors.UnknownModelError
	assert.True(t, errors.As(err, &unknown))
}

func TestClassification_Cancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultClassificationOptions()
	opts.Data = Source{Frame: blobs(t, 2, 10)}
	opts.Target = "label"
	opts.Output = Output{Dir: dir}

	_, err := Classification(ctx, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClustering_FourClusters(t *testing.T) {
	frame := features(t, blobs(t, 4, 25))
	opts := DefaultClusteringOptions()
	opts.Data = Source{Frame: frame}
	opts.NClusters = 4
	opts.Output = Output{Dir: t.TempDir()}

	res, err := Clustering(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Predictions, 100)
	for _, p := range res.Predictions {
		assert.Contains(t, []float64{0, 1, 2, 3}, p)
	}
	km, ok := res.Model.(*cluster.KMeans)
	require.True(t, ok)
	assert.Equal(t, 4, km.Params.NClusters)
	assert.Nil(t, res.Split)
	assert.Equal(t, []string{metrics.NameSilhouette, metrics.NameDaviesBouldin}, res.Metrics.Names())
	assert.Equal(t, []string{"kmeans_model.gob"}, res.Artifacts)
}

func TestClustering_GaussianMixture(t *testing.T) {
	opts := ClusteringOptions{
		Data:      Source{Frame: features(t, blobs(t, 2, 30))},
		Model:     "gaussian_mixture",
		NClusters: 2,
		Scale:     preprocessing.ScaleStandard,
		Output:    Output{Dir: t.TempDir()},
	}
	res, err := Clustering(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, res.Predictions, 60)
	assert.NotNil(t, res.Scaler)
	assert.Equal(t, []string{"gaussian_mixture_model.gob", "gaussian_mixture_scaler.gob"}, res.Artifacts)
}

func TestClusterParams(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		params model.Params
		want   model.Params
	}{
		{"kmeans", "kmeans", nil, model.Params{"n_clusters": 5}},
		{"mixture", "gaussian_mixture", nil, model.Params{"n_components": 5}},
		{"explicit n_clusters wins", "kmeans", model.Params{"n_clusters": 2}, model.Params{"n_clusters": 2}},
		{"explicit n_components blocks", "kmeans", model.Params{"n_components": 2}, model.Params{"n_components": 2}},
		{"dbscan untouched", "dbscan", model.Params{"eps": 0.3}, model.Params{"eps": 0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clusterParams(tt.model, tt.params, 5))
		})
	}

	in := model.Params{"eps": 0.3}
	clusterParams("kmeans", in, 5)
	assert.Equal(t, model.Params{"eps": 0.3}, in)
}

func TestRegression(t *testing.T) {
	opts := DefaultRegressionOptions()
	opts.Data = Source{Frame: linearFrame(t)}
	opts.Target = "target"
	opts.Model = "linear_regression"
	opts.Output = Output{Dir: t.TempDir()}

	res, err := Regression(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{
		metrics.NameMAE, metrics.NameMSE, metrics.NameR2, metrics.NameRMSE, metrics.NameMAPE,
	}, res.Metrics.Names())
	r2, _ := res.Metrics.Value(metrics.NameR2)
	assert.Greater(t, r2, 0.99)
	assert.Len(t, res.Predictions, 24)
	assert.Equal(t, []string{"linear_regression_model.gob"}, res.Artifacts)
}

func TestRunMetrics(t *testing.T) {
	success := runsTotal.WithLabelValues("clustering", "kmeans", StatusSuccess)
	failure := runsTotal.WithLabelValues("clustering", "kmeans", StatusFailure)
	before, beforeFailure := testutil.ToFloat64(success), testutil.ToFloat64(failure)

	opts := DefaultClusteringOptions()
	opts.Data = Source{Frame: features(t, blobs(t, 3, 10))}
	opts.Output = Output{Dir: t.TempDir()}
	_, err := Clustering(context.Background(), opts)
	require.NoError(t, err)

	opts.Data = Source{}
	_, err = Clustering(context.Background(), opts)
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeFailure+1, testutil.ToFloat64(failure))
}

func TestStageLogging(t *testing.T) {
	provider, buf := log.NewTestLoggerProvider(log.LevelInfo)
	log.SetProvider(provider)
	defer log.SetProvider(nil)

	opts := DefaultClassificationOptions()
	opts.Data = Source{Frame: blobs(t, 2, 20)}
	opts.Stratify = true
	opts.Target = "label"
	opts.Model = "tree_classifier"
	opts.Output = Output{Dir: t.TempDir()}
	res, err := Classification(context.Background(), opts)
	require.NoError(t, err)

	var stages []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry[log.RunIDKey] != res.RunID {
			continue
		}
		assert.Equal(t, "classification", entry[log.FamilyKey])
		assert.Equal(t, "tree_classifier", entry[log.ModelNameKey])
		stages = append(stages, entry[log.StageKey].(string))
	}
	assert.Equal(t, []string{
		StageLoad, StageSeparate, StageScale, StageConstruct,
		StageFit, StagePredict, StageEvaluate, StagePersist,
	}, stages)
}

func TestResultRender(t *testing.T) {
	report := &metrics.Report{}
	report.Add(metrics.NameAccuracy, 0.75)
	res := &Result{
		RunID:     "run-1",
		Family:    "classification",
		ModelName: "random_forest",
		Metrics:   report,
		Artifacts: []string{"random_forest_model.gob"},
	}
	var buf bytes.Buffer
	require.NoError(t, res.Render(&buf))
	out := buf.String()
	for _, want := range []string{"run-1", "random_forest_model.gob", "Accuracy", "0.75"} {
		assert.Contains(t, out, want)
	}
}
