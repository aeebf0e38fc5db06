// Package mlkit is a model registry, factory and pipeline toolkit for
// tabular machine learning in Go.
//
// Models are looked up by family and name in a static registry, built by the
// factory with right-biased parameter overrides, and run through linear
// pipelines that load a table, scale it, fit, evaluate and persist the result.
//
// # Quick Start
//
// Train a random forest on a CSV file and print its metrics:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//	    "os"
//
//	    "github.com/YuminosukeSato/mlkit/core/model"
//	    "github.com/YuminosukeSato/mlkit/pipeline"
//	)
//
//	func main() {
//	    opts := pipeline.DefaultClassificationOptions()
//	    opts.Data = pipeline.Source{Path: "iris.csv"}
//	    opts.Target = "species"
//	    opts.Params = model.Params{"n_estimators": 50}
//
//	    res, err := pipeline.Classification(context.Background(), opts)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = res.Render(os.Stdout)
//	}
//
// Build a single estimator without a pipeline:
//
//	est, err := factory.CreateClusteringModel("kmeans", model.Params{"n_clusters": 4})
//
// # Packages
//
//   - registry: model definitions per family (classification, regression, clustering)
//   - factory: name to estimator resolution with parameter overrides
//   - pipeline: classification, clustering and regression runs
//   - modeling: train, predict and evaluate adapters
//   - dataset: named-column frames and the CSV loader
//   - preprocessing: StandardScaler and MinMaxScaler
//   - metrics: classification, regression and clustering metrics
//   - sklearn/...: estimators (linear_model, tree, ensemble, svm, cluster, mixture)
//     and model_selection (splits, cross-validation, randomized search)
//   - storage: POSIX and S3 artifact stores
//   - config: file and MLKIT_ environment settings
//   - core/model: estimator contracts, parameters, type table and persistence
//   - core/parallel: bounded worker fan-out
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Adding a Model
//
// Register a constructor under a type reference from the estimator package's
// init function, then add one entry to the registry table of its family. The
// factory needs no change.
//
// # Performance
//
// Forest trees, k-means restarts and cross-validation folds fan
// out over n_jobs workers (-1 uses every CPU).
package mlkit
