package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全てのモデルの基底となる構造体
//
// フィールドはgobでエンコードされるため公開されています。
type BaseEstimator struct {
	State EstimatorState

	// 学習時に観測したデータの形状
	NFeatures int
	NSamples  int
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
	e.NFeatures = 0
	e.NSamples = 0
}

// SetDimensions は学習時の特徴量数とサンプル数を記録する
func (e *BaseEstimator) SetDimensions(nFeatures, nSamples int) {
	e.NFeatures = nFeatures
	e.NSamples = nSamples
}

// RequireFitted は未学習の場合に NotFittedError を返す
func (e *BaseEstimator) RequireFitted(modelName, method string) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckFeatures は予測時の入力の列数が学習時と一致するか検証する
func (e *BaseEstimator) CheckFeatures(op string, X mat.Matrix) error {
	_, c := X.Dims()
	if c != e.NFeatures {
		return errors.NewDimensionError(op, e.NFeatures, c, 1)
	}
	return nil
}

// CheckXY は学習データ X と目的変数 y の形状を検証する
//
// y は列ベクトルでなければならず、行数は X と一致する必要があります。
func CheckXY(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	if X == nil {
		return 0, 0, errors.NewValueError(op, "X must not be nil")
	}
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, errors.NewValueError(op, "empty training data")
	}
	if y == nil {
		return 0, 0, errors.NewValueError(op, "y must not be nil for supervised estimators")
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return 0, 0, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	return nSamples, nFeatures, nil
}

// Column は列ベクトル y を []float64 として取り出す
func Column(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out
}

// ColumnVector は []float64 を n×1 の行列に変換する
func ColumnVector(values []float64) *mat.Dense {
	if len(values) == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(len(values), 1, values)
}

// Rows は行列の各行をスライスのスライスとして取り出す
func Rows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		out[i] = row
	}
	return out
}
