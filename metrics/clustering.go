package metrics

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/parallel"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// checkClusters は X と labels の長さと、クラスタ数が 2 以上 n-1 以下であることを検証する
func checkClusters(op string, X mat.Matrix, labels []int) ([][]float64, map[int][]int, error) {
	if X == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	n, _ := X.Dims()
	if n != len(labels) {
		return nil, nil, errors.NewDimensionError(op, n, len(labels), 0)
	}
	groups := lo.GroupBy(lo.Range(n), func(i int) int { return labels[i] })
	if k := len(groups); k < 2 || k > n-1 {
		return nil, nil, errors.NewValueError(op,
			fmt.Sprintf("number of labels is %d. Valid values are 2 to n_samples - 1 (inclusive)", k))
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
	}
	return rows, groups, nil
}

// SilhouetteScore は全サンプルのシルエット係数の平均を計算する。
// 所属クラスタのサイズが 1 のサンプルの係数は 0 とする。
func SilhouetteScore(X mat.Matrix, labels []int) (float64, error) {
	rows, groups, err := checkClusters("SilhouetteScore", X, labels)
	if err != nil {
		return 0, err
	}
	n := len(rows)
	sil := make([]float64, n)

	parallel.Parallelize(n, -1, func(start, end int) {
		for i := start; i < end; i++ {
			own := groups[labels[i]]
			if len(own) == 1 {
				continue
			}
			var a float64
			b := math.Inf(1)
			for label, members := range groups {
				var sum float64
				for _, j := range members {
					sum += floats.Distance(rows[i], rows[j], 2)
				}
				if label == labels[i] {
					a = sum / float64(len(members)-1)
				} else if mean := sum / float64(len(members)); mean < b {
					b = mean
				}
			}
			if m := math.Max(a, b); m > 0 {
				sil[i] = (b - a) / m
			}
		}
	})
	return floats.Sum(sil) / float64(n), nil
}

// DaviesBouldinScore はDavies-Bouldin指標を計算する（小さいほど良い）
func DaviesBouldinScore(X mat.Matrix, labels []int) (float64, error) {
	rows, groups, err := checkClusters("DaviesBouldinScore", X, labels)
	if err != nil {
		return 0, err
	}
	_, d := X.Dims()

	keys := lo.Keys(groups)
	centroids := make([][]float64, len(keys))
	scatter := make([]float64, len(keys))
	for ci, label := range keys {
		c := make([]float64, d)
		for _, i := range groups[label] {
			floats.Add(c, rows[i])
		}
		floats.Scale(1/float64(len(groups[label])), c)
		centroids[ci] = c

		var s float64
		for _, i := range groups[label] {
			s += floats.Distance(rows[i], c, 2)
		}
		scatter[ci] = s / float64(len(groups[label]))
	}

	var total float64
	for i := range keys {
		var worst float64
		for j := range keys {
			if i == j {
				continue
			}
			dist := floats.Distance(centroids[i], centroids[j], 2)
			if dist == 0 {
				continue
			}
			if r := (scatter[i] + scatter[j]) / dist; r > worst {
				worst = r
			}
		}
		total += worst
	}
	return total / float64(len(keys)), nil
}
