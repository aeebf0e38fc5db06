package metrics

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Average は多クラス問題での適合率・再現率・F1の平均方法
type Average string

const (
	// AverageBinary は陽性ラベル (1) のスコアのみを返す
	AverageBinary Average = "binary"
	// AverageMacro はクラスごとのスコアの単純平均
	AverageMacro Average = "macro"
	// AverageMicro は全クラスの TP/FP/FN を合算して計算する
	AverageMicro Average = "micro"
	// AverageWeighted はサポート数で重み付けした平均
	AverageWeighted Average = "weighted"
)

// PositiveLabel は binary 平均で陽性とみなすラベル
const PositiveLabel = 1.0

// ParseAverage は文字列を Average に変換する
func ParseAverage(s string) (Average, error) {
	switch a := Average(s); a {
	case AverageBinary, AverageMacro, AverageMicro, AverageWeighted:
		return a, nil
	default:
		return "", errors.NewValidationError("average", "must be one of binary, macro, micro, weighted", s)
	}
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Labels は与えられたラベル列に現れる値をソートして重複なく返す
func Labels(columns ...*mat.VecDense) []float64 {
	var all []float64
	for _, c := range columns {
		if c == nil {
			continue
		}
		for i := 0; i < c.Len(); i++ {
			all = append(all, c.AtVec(i))
		}
	}
	labels := lo.Uniq(all)
	slices.Sort(labels)
	return labels
}

// ConfusionMatrix は混同行列を計算する。
// 行が正解ラベル、列が予測ラベルで、順序は返されるラベル列に従う。
func ConfusionMatrix(yTrue, yPred *mat.VecDense) ([][]int, []float64, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}
	labels := Labels(yTrue, yPred)
	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := 0; i < n; i++ {
		cm[index[yTrue.AtVec(i)]][index[yPred.AtVec(i)]]++
	}
	return cm, labels, nil
}

type classCounts struct {
	tp, fp, fn, support int
}

// PrecisionRecallFScore は適合率・再現率・F1 を指定の平均方法で計算する。
// 分母が 0 になる場合は UndefinedMetricWarning を出して 0 を返す（zero_division=0 と同じ扱い）。
func PrecisionRecallFScore(yTrue, yPred *mat.VecDense, average Average) (precision, recall, f1 float64, err error) {
	n, err := checkPair("PrecisionRecallFScore", yTrue, yPred)
	if err != nil {
		return 0, 0, 0, err
	}
	labels := Labels(yTrue, yPred)

	counts := make(map[float64]*classCounts, len(labels))
	for _, l := range labels {
		counts[l] = &classCounts{}
	}
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		counts[t].support++
		if t == p {
			counts[t].tp++
		} else {
			counts[p].fp++
			counts[t].fn++
		}
	}

	switch average {
	case AverageBinary:
		if len(labels) > 2 {
			return 0, 0, 0, errors.NewValueError("PrecisionRecallFScore",
				fmt.Sprintf("target is multiclass (%d labels) but average='binary'; choose macro, micro or weighted", len(labels)))
		}
		c, ok := counts[PositiveLabel]
		if !ok {
			if len(labels) == 2 {
				return 0, 0, 0, errors.NewValueError("PrecisionRecallFScore",
					fmt.Sprintf("pos_label=%v is not a valid label: %v", PositiveLabel, labels))
			}
			return 0, 0, 0, nil
		}
		precision, recall, f1 = scores(*c)
		return precision, recall, f1, nil

	case AverageMicro:
		var total classCounts
		for _, c := range counts {
			total.tp += c.tp
			total.fp += c.fp
			total.fn += c.fn
		}
		precision, recall, f1 = scores(total)
		return precision, recall, f1, nil

	case AverageMacro, AverageWeighted:
		var weightSum float64
		for _, l := range labels {
			c := counts[l]
			p, r, f := scores(*c)
			w := 1.0
			if average == AverageWeighted {
				w = float64(c.support)
			}
			precision += w * p
			recall += w * r
			f1 += w * f
			weightSum += w
		}
		if weightSum == 0 {
			return 0, 0, 0, nil
		}
		return precision / weightSum, recall / weightSum, f1 / weightSum, nil

	default:
		return 0, 0, 0, errors.NewValidationError("average", "unsupported averaging", string(average))
	}
}

func scores(c classCounts) (precision, recall, f1 float64) {
	if c.tp+c.fp == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
	}
	if c.tp+c.fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
	}
	precision = errors.SafeDivide(float64(c.tp), float64(c.tp+c.fp))
	recall = errors.SafeDivide(float64(c.tp), float64(c.tp+c.fn))
	f1 = errors.SafeDivide(2*precision*recall, precision+recall)
	return precision, recall, f1
}

// Precision は適合率を計算する
func Precision(yTrue, yPred *mat.VecDense, average Average) (float64, error) {
	p, _, _, err := PrecisionRecallFScore(yTrue, yPred, average)
	return p, err
}

// Recall は再現率を計算する
func Recall(yTrue, yPred *mat.VecDense, average Average) (float64, error) {
	_, r, _, err := PrecisionRecallFScore(yTrue, yPred, average)
	return r, err
}

// F1Score はF1スコアを計算する
func F1Score(yTrue, yPred *mat.VecDense, average Average) (float64, error) {
	_, _, f, err := PrecisionRecallFScore(yTrue, yPred, average)
	return f, err
}

// AUC はROC曲線下面積を順位統計量（Mann-Whitney U）から計算する。
// 同順位のスコアには平均順位を割り当てる。
// yTrue は 0/1 でなければならない。片方のクラスしか無い場合は AUC が定義されないため ValueError を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}

	var nPos, nNeg int
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			nPos++
		case 0:
			nNeg++
		default:
			return 0, errors.NewValueError("AUC", fmt.Sprintf("labels must be 0 or 1, got %v", yTrue.AtVec(i)))
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, errors.NewValueError("AUC", "only one class present in y_true; ROC AUC is not defined in that case")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return yScore.AtVec(order[a]) < yScore.AtVec(order[b])
	})

	var rankSumPos float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore.AtVec(order[j+1]) == yScore.AtVec(order[i]) {
			j++
		}
		// 1始まりの平均順位
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue.AtVec(order[k]) == 1 {
				rankSumPos += avgRank
			}
		}
		i = j + 1
	}

	u := rankSumPos - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix は行列形式の入力の第1列に対してAUCを計算する
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	rt, ct := yTrue.Dims()
	rs, cs := yScore.Dims()
	if rt == 0 || ct == 0 || rs == 0 || cs == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	return AUC(firstColumn(yTrue), firstColumn(yScore))
}

func firstColumn(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

// BinaryLogLoss は二値分類の対数損失を計算する。確率は [eps, 1-eps] に丸める。
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	const eps = 1e-15
	var loss float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		if t != 0 && t != 1 {
			return 0, errors.NewValueError("BinaryLogLoss", fmt.Sprintf("labels must be 0 or 1, got %v", t))
		}
		p := errors.ClipValue(yProb.AtVec(i), eps, 1-eps)
		loss -= t*math.Log(p) + (1-t)*math.Log(1-p)
	}
	return loss / float64(n), nil
}
