package pipeline_test

import (
	"context"
	"fmt"
	"os"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pipeline"
	"github.com/YuminosukeSato/mlkit/preprocessing"
	"github.com/YuminosukeSato/mlkit/storage"
)

func ExampleClassification() {
	opts := pipeline.DefaultClassificationOptions()
	opts.Data = pipeline.Source{Path: "iris.csv"}
	opts.Target = "species"
	opts.Average = "weighted"
	opts.Scale = preprocessing.ScaleStandard
	opts.Params = model.Params{"n_estimators": 50}
	opts.Output = pipeline.Output{Dir: "models_storage", Versioned: true}

	res, err := pipeline.Classification(context.Background(), opts)
	if err != nil {
		fmt.Println(err)
		return
	}
	_ = res.Render(os.Stdout)
}

func ExampleClustering() {
	store := storage.NewPOSIX("models_storage")
	opts := pipeline.DefaultClusteringOptions()
	opts.Data = pipeline.Source{Path: "customers.csv"}
	opts.NClusters = 4
	opts.Output = pipeline.Output{Store: store}

	res, err := pipeline.Clustering(context.Background(), opts)
	if err != nil {
		fmt.Println(err)
		return
	}

	km, err := pipeline.LoadModel(store, res.Artifacts[0])
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(km.GetParams()["n_clusters"])
}
