package model

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/samber/lo"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

var validate = validator.New()

// Params はハイパーパラメータの名前と値の対応です。
//
// レジストリのデフォルト値と呼び出し側の上書き値の両方をこの型で表します。
type Params map[string]interface{}

// Copy は浅いコピーを返す。nil に対しては空の Params を返す
func (p Params) Copy() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge は overrides の全てのキーを p に書き込み、p を返す。
// 後から与えた値が優先され、p に存在しないキーもそのまま追加される。
func (p Params) Merge(overrides Params) Params {
	if p == nil {
		p = Params{}
	}
	for k, v := range overrides {
		p[k] = v
	}
	return p
}

// Has はキーが存在するかどうかを返す
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Keys はソート済みのキー一覧を返す
func (p Params) Keys() []string {
	keys := lo.Keys(p)
	slices.Sort(keys)
	return keys
}

// String はキー順に並べた表現を返す
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Decode は p を型付きのパラメータ構造体に展開する。
//
// 構造体に存在しないキーと型の合わない値はエラーになる。
// 数値の種類（int と float64 など）や bool/int の違いは弱い型付けで吸収する。
// 展開後、構造体の validate タグで値の範囲を検証する。
func (p Params) Decode(op string, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(rejectFractionalInts),
		Result:           target,
	})
	if err != nil {
		return errors.Wrap(err, "failed to build params decoder")
	}
	if err := decoder.Decode(map[string]interface{}(p)); err != nil {
		return errors.NewValidationError(op, err.Error(), p.String())
	}
	if err := validate.Struct(target); err != nil {
		return errors.NewValidationError(op, err.Error(), p.String())
	}
	return nil
}

// rejectFractionalInts は小数部を持つ浮動小数点数を整数フィールドへ変換しない。
// WeaklyTypedInput だけでは 50.7 が 50 に切り捨てられてしまう
func rejectFractionalInts(from, to reflect.Type, data interface{}) (interface{}, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	var f float64
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		f = reflect.ValueOf(data).Float()
	default:
		return data, nil
	}
	if f != math.Trunc(f) {
		return nil, errors.Newf("cannot use %v as an integer", data)
	}
	return data, nil
}

// ParamsOf は mapstructure タグ付きの構造体を Params に変換する
func ParamsOf(v interface{}) Params {
	out := map[string]interface{}{}
	if err := mapstructure.Decode(v, &out); err != nil {
		panic(errors.Wrapf(err, "params struct %T cannot be flattened", v))
	}
	return out
}
