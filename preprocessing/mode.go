package preprocessing

import (
	"strings"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// ScaleMode はパイプラインで特徴量に適用するスケーリング方法
type ScaleMode string

const (
	// ScaleNone はスケーリングしない
	ScaleNone ScaleMode = ""
	// ScaleStandard は StandardScaler を使う
	ScaleStandard ScaleMode = "standard"
	// ScaleMinMax は MinMaxScaler を使う
	ScaleMinMax ScaleMode = "minmax"
)

// ParseScaleMode は設定値を ScaleMode に変換する。"none" と空文字はスケーリングなし。
func ParseScaleMode(s string) (ScaleMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return ScaleNone, nil
	case "standard", "standardize":
		return ScaleStandard, nil
	case "minmax", "min-max":
		return ScaleMinMax, nil
	default:
		return ScaleNone, errors.NewValidationError("scale_type", "must be one of none, standard, minmax", s)
	}
}

// NewScaler はモードに対応する未学習のスケーラーを返す。ScaleNone の場合は nil。
func NewScaler(mode ScaleMode) (model.InverseTransformer, error) {
	switch mode {
	case ScaleNone:
		return nil, nil
	case ScaleStandard:
		return NewStandardScalerDefault(), nil
	case ScaleMinMax:
		return NewMinMaxScalerDefault(), nil
	default:
		return nil, errors.NewValidationError("scale_type", "unsupported scaling mode", string(mode))
	}
}
