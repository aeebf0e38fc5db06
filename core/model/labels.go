package model

import (
	"math/rand"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// EncodeLabels はラベル列をソート済みのクラス一覧とクラス番号に変換する
func EncodeLabels(y []float64) (classes []float64, encoded []int) {
	classes = lo.Uniq(y)
	slices.Sort(classes)
	index := make(map[float64]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	encoded = make([]int, len(y))
	for i, v := range y {
		encoded[i] = index[v]
	}
	return classes, encoded
}

// ClassWeights は class_weight 指定からサンプルごとの重みを作る。
// "balanced" は n_samples / (n_classes * count(c)) 、空文字は全て1。
func ClassWeights(classWeight string, encoded []int, nClasses int) ([]float64, error) {
	w := make([]float64, len(encoded))
	switch classWeight {
	case "", "none":
		for i := range w {
			w[i] = 1
		}
	case "balanced":
		counts := make([]int, nClasses)
		for _, c := range encoded {
			counts[c]++
		}
		for i, c := range encoded {
			w[i] = float64(len(encoded)) / (float64(nClasses) * float64(counts[c]))
		}
	default:
		return nil, errors.NewValidationError("class_weight", "must be \"balanced\" or empty", classWeight)
	}
	return w, nil
}

// RequireClasses は分類に必要な2クラス以上が存在することを検証する
func RequireClasses(op string, classes []float64) error {
	if len(classes) < 2 {
		return errors.NewValueError(op, "the number of classes has to be greater than one; got 1 class")
	}
	return nil
}

// NewRand は random_state から乱数生成器を作る
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// DecodeClasses はクラス番号の列を元のラベルの列ベクトルに戻す
func DecodeClasses(classes []float64, idx []int) *mat.Dense {
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = classes[k]
	}
	return ColumnVector(out)
}

// ArgmaxRows は各行で最大値をとる列番号を返す。同値の場合は先頭を選ぶ
func ArgmaxRows(m mat.Matrix) []int {
	r, c := m.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if m.At(i, j) > m.At(i, best) {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// AccuracyScore は分類器の Score で使う正解率
func AccuracyScore(p Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	truth := Column(y)
	if len(truth) == 0 {
		return 0, errors.NewValueError("Score", "empty target")
	}
	got := Column(pred)
	if len(got) != len(truth) {
		return 0, errors.NewDimensionError("Score", len(truth), len(got), 0)
	}
	correct := 0
	for i := range truth {
		if truth[i] == got[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth)), nil
}

// R2 は回帰器の Score で使う決定係数
func R2(p Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	truth, got := Column(y), Column(pred)
	if len(got) != len(truth) {
		return 0, errors.NewDimensionError("Score", len(truth), len(got), 0)
	}
	mean := lo.Sum(truth) / float64(len(truth))
	var rss, tss float64
	for i := range truth {
		rss += (truth[i] - got[i]) * (truth[i] - got[i])
		tss += (truth[i] - mean) * (truth[i] - mean)
	}
	if tss == 0 {
		return 0, errors.NewValueError("Score", "R^2 is not well-defined for a constant target")
	}
	return 1 - rss/tss, nil
}

// ProbabilityGate は確率出力の可否がハイパーパラメータで決まる推定器が実装する
type ProbabilityGate interface {
	ProbabilityEnabled() bool
}

// ProbaOf は推定器が確率を出力できる場合にその ProbabilityPredictor を返す
func ProbaOf(est Estimator) (ProbabilityPredictor, bool) {
	pp, ok := est.(ProbabilityPredictor)
	if !ok {
		return nil, false
	}
	if gate, ok := est.(ProbabilityGate); ok && !gate.ProbabilityEnabled() {
		return nil, false
	}
	return pp, true
}
