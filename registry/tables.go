package registry

import "github.com/YuminosukeSato/mlkit/core/model"

// Defaults follow the upstream library defaults of each model with a fixed
// random_state. max_depth 0 means unlimited, max_features nil means all
// features and class_weight "" means uniform weights.

var classificationModels = map[string]ModelDefinition{
	"logistic_regression": {
		Family:  Classification,
		Name:    "logistic_regression",
		TypeRef: "linear_model.LogisticRegression",
		Defaults: model.Params{
			"random_state": 42,
			"max_iter":     1000,
			"solver":       "liblinear",
			"C":            1.0,
			"penalty":      "l2",
		},
	},
	"random_forest": {
		Family:  Classification,
		Name:    "random_forest",
		TypeRef: "ensemble.RandomForestClassifier",
		Defaults: model.Params{
			"random_state":      42,
			"n_estimators":      100,
			"max_depth":         0,
			"min_samples_split": 2,
			"min_samples_leaf":  1,
			"max_features":      "sqrt",
			"bootstrap":         true,
			"n_jobs":            -1,
		},
	},
	"xgboost": {
		Family:  Classification,
		Name:    "xgboost",
		TypeRef: "ensemble.XGBoostClassifier",
		Defaults: model.Params{
			"random_state":     42,
			"n_estimators":     100,
			"learning_rate":    0.1,
			"max_depth":        6,
			"min_child_weight": 1,
			"gamma":            0,
			"subsample":        1.0,
			"colsample_bytree": 1.0,
			"reg_alpha":        0,
			"reg_lambda":       1,
			"n_jobs":           -1,
		},
	},
	"lightgbm": {
		Family:   Classification,
		Name:     "lightgbm",
		TypeRef:  "ensemble.LightGBMClassifier",
		Defaults: lightgbmDefaults(),
	},
	"catboost": {
		Family:  Classification,
		Name:    "catboost",
		TypeRef: "ensemble.CatBoostClassifier",
		Defaults: model.Params{
			"random_state":  42,
			"iterations":    100,
			"learning_rate": 0.1,
			"depth":         6,
			"l2_leaf_reg":   3,
			"verbose":       false,
		},
	},
	"tree_classifier": {
		Family:  Classification,
		Name:    "tree_classifier",
		TypeRef: "tree.DecisionTreeClassifier",
		Defaults: model.Params{
			"random_state":      42,
			"max_depth":         0,
			"min_samples_split": 2,
			"min_samples_leaf":  1,
			"max_features":      nil,
		},
	},
	"svm_classifier": {
		Family:  Classification,
		Name:    "svm_classifier",
		TypeRef: "svm.SVC",
		Defaults: model.Params{
			"C":                       1.0,
			"kernel":                  "rbf",
			"degree":                  3,
			"gamma":                   "scale",
			"coef0":                   0.0,
			"shrinking":               true,
			"probability":             false,
			"tol":                     1e-3,
			"cache_size":              200,
			"class_weight":            "",
			"verbose":                 true,
			"max_iter":                -1,
			"decision_function_shape": "ovr",
			"break_ties":              false,
			"random_state":            42,
		},
	},
}

var regressionModels = map[string]ModelDefinition{
	"linear_regression": {
		Family:   Regression,
		Name:     "linear_regression",
		TypeRef:  "linear_model.LinearRegression",
		Defaults: model.Params{"n_jobs": -1},
	},
	"random_forest": {
		Family:  Regression,
		Name:    "random_forest",
		TypeRef: "ensemble.RandomForestRegressor",
		Defaults: model.Params{
			"random_state":      42,
			"n_estimators":      100,
			"max_depth":         0,
			"min_samples_split": 2,
			"min_samples_leaf":  1,
			"max_features":      1.0,
			"bootstrap":         true,
			"n_jobs":            -1,
		},
	},
	"xgboost": {
		Family:  Regression,
		Name:    "xgboost",
		TypeRef: "ensemble.XGBoostRegressor",
		Defaults: model.Params{
			"random_state":     42,
			"n_estimators":     100,
			"learning_rate":    0.1,
			"max_depth":        6,
			"min_child_weight": 1,
			"gamma":            0,
			"subsample":        1.0,
			"colsample_bytree": 1.0,
			"reg_alpha":        0,
			"reg_lambda":       1,
			"n_jobs":           -1,
		},
	},
	"lightgbm": {
		Family:   Regression,
		Name:     "lightgbm",
		TypeRef:  "ensemble.LightGBMRegressor",
		Defaults: lightgbmDefaults(),
	},
	"gradient_boosting": {
		Family:  Regression,
		Name:    "gradient_boosting",
		TypeRef: "ensemble.GradientBoostingRegressor",
		Defaults: model.Params{
			"random_state":      42,
			"n_estimators":      100,
			"learning_rate":     0.1,
			"max_depth":         3,
			"min_samples_split": 2,
			"min_samples_leaf":  1,
			"subsample":         1.0,
			"max_features":      nil,
			"verbose":           0,
		},
	},
	"catboost": {
		Family:  Regression,
		Name:    "catboost",
		TypeRef: "ensemble.CatBoostRegressor",
		Defaults: model.Params{
			"random_state":  42,
			"iterations":    100,
			"learning_rate": 0.1,
			"depth":         6,
			"l2_leaf_reg":   3,
			"loss_function": "RMSE",
			"verbose":       0,
			"thread_count":  -1,
		},
	},
	"extra_trees": {
		Family:  Regression,
		Name:    "extra_trees",
		TypeRef: "ensemble.ExtraTreesRegressor",
		Defaults: model.Params{
			"random_state":      42,
			"n_estimators":      100,
			"max_depth":         0,
			"min_samples_split": 2,
			"min_samples_leaf":  1,
			"max_features":      1.0,
			"bootstrap":         false,
			"n_jobs":            -1,
			"verbose":           0,
		},
	},
}

var clusteringModels = map[string]ModelDefinition{
	"kmeans": {
		Family:  Clustering,
		Name:    "kmeans",
		TypeRef: "cluster.KMeans",
		Defaults: model.Params{
			"random_state": 42,
			"n_clusters":   3,
			"init":         "k-means++",
			"max_iter":     300,
			"tol":          1e-4,
			"algorithm":    "lloyd",
			"n_init":       10,
		},
	},
	"dbscan": {
		Family:  Clustering,
		Name:    "dbscan",
		TypeRef: "cluster.DBSCAN",
		Defaults: model.Params{
			"eps":         0.5,
			"min_samples": 5,
			"metric":      "euclidean",
			"algorithm":   "auto",
			"leaf_size":   30,
			"n_jobs":      -1,
		},
	},
	"gaussian_mixture": {
		Family:  Clustering,
		Name:    "gaussian_mixture",
		TypeRef: "mixture.GaussianMixture",
		Defaults: model.Params{
			"random_state":    42,
			"n_components":    3,
			"covariance_type": "full",
			"tol":             1e-3,
			"reg_covar":       1e-6,
			"max_iter":        100,
			"n_init":          1,
			"init_params":     "kmeans",
		},
	},
}

func lightgbmDefaults() model.Params {
	return model.Params{
		"random_state":      42,
		"n_estimators":      100,
		"learning_rate":     0.1,
		"max_depth":         -1,
		"num_leaves":        31,
		"min_child_samples": 20,
		"subsample":         1.0,
		"colsample_bytree":  1.0,
		"reg_alpha":         0.0,
		"reg_lambda":        0.0,
		"n_jobs":            -1,
		"verbose":           -1,
	}
}
