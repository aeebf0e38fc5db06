package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

func TestAvailable(t *testing.T) {
	assert.Equal(t, []string{
		"catboost", "lightgbm", "logistic_regression", "random_forest",
		"svm_classifier", "tree_classifier", "xgboost",
	}, Available(Classification))
	assert.Equal(t, []string{
		"catboost", "extra_trees", "gradient_boosting", "lightgbm",
		"linear_regression", "random_forest", "xgboost",
	}, Available(Regression))
	assert.Equal(t, []string{"dbscan", "gaussian_mixture", "kmeans"}, Available(Clustering))
	assert.Empty(t, Available(Family("ranking")))
}

func TestGetConfig(t *testing.T) {
	def, err := GetConfig(Classification, "random_forest")
	require.NoError(t, err)
	assert.Equal(t, "ensemble.RandomForestClassifier", def.TypeRef)
	assert.Equal(t, 100, def.Defaults["n_estimators"])
	assert.Equal(t, 0, def.Defaults["max_depth"])
	assert.Equal(t, true, def.Defaults["bootstrap"])
	assert.Equal(t, 42, def.Defaults["random_state"])

	def, err = GetConfig(Regression, "random_forest")
	require.NoError(t, err)
	assert.Equal(t, "ensemble.RandomForestRegressor", def.TypeRef)
	assert.Equal(t, 1.0, def.Defaults["max_features"])
}

func TestGetConfig_DefaultsAreCopies(t *testing.T) {
	def, err := GetConfig(Clustering, "kmeans")
	require.NoError(t, err)
	def.Defaults["n_clusters"] = 99

	again, err := GetConfig(Clustering, "kmeans")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Defaults["n_clusters"])
}

func TestGetConfig_Unknown(t *testing.T) {
	_, err := GetConfig(Classification, "nonexistent")
	require.Error(t, err)

	var unknown *errors.UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "classification", unknown.Family)
	assert.Equal(t, "nonexistent", unknown.Name)
	assert.Equal(t, Available(Classification), unknown.Available)
	for _, name := range Available(Classification) {
		assert.Contains(t, err.Error(), name)
	}

	_, err = GetConfig(Family("ranking"), "random_forest")
	assert.True(t, errors.As(err, &unknown))
}

func TestDefinitionsAreConsistent(t *testing.T) {
	for _, family := range Families() {
		for _, name := range Available(family) {
			def, err := GetConfig(family, name)
			require.NoError(t, err)
			assert.Equal(t, family, def.Family, name)
			assert.Equal(t, name, def.Name)
			assert.NotEmpty(t, def.TypeRef, name)
			assert.NotEmpty(t, def.Defaults, name)
		}
	}
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("clustering")
	require.NoError(t, err)
	assert.Equal(t, Clustering, f)

	_, err = ParseFamily("ranking")
	assert.Error(t, err)
}
