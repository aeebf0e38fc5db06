package model

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Constructor はマージ済みのパラメータから未学習の推定器を生成する関数
type Constructor func(params Params) (Estimator, error)

var (
	typesMu sync.RWMutex
	types   = make(map[string]Constructor)
)

// RegisterType は型参照名とコンストラクタを対応付ける。
//
// 推定器パッケージは init で自身の型を登録する。そのため型参照は
// パッケージがバイナリにリンクされている場合にのみ解決できる。
// 同じ名前の二重登録や nil のコンストラクタは panic する。
func RegisterType(typeRef string, ctor Constructor) {
	typesMu.Lock()
	defer typesMu.Unlock()
	if ctor == nil {
		panic("model: RegisterType constructor is nil for " + typeRef)
	}
	if _, dup := types[typeRef]; dup {
		panic(fmt.Sprintf("model: RegisterType called twice for %q", typeRef))
	}
	types[typeRef] = ctor
}

// ResolveType は型参照名からコンストラクタを取り出す。
// 未登録の場合は TypeResolutionError を返す。
func ResolveType(typeRef string) (Constructor, error) {
	typesMu.RLock()
	ctor, ok := types[typeRef]
	typesMu.RUnlock()
	if !ok {
		return nil, errors.NewTypeResolutionError(typeRef, RegisteredTypes())
	}
	return ctor, nil
}

// RegisteredTypes は登録済みの型参照名をソートして返す
func RegisteredTypes() []string {
	typesMu.RLock()
	defer typesMu.RUnlock()
	refs := lo.Keys(types)
	slices.Sort(refs)
	return refs
}

// UnregisterType は登録を取り消し、取り消したコンストラクタを返す。
// 未登録の場合は nil。RegisterType で元に戻せる。
func UnregisterType(typeRef string) Constructor {
	typesMu.Lock()
	defer typesMu.Unlock()
	ctor := types[typeRef]
	delete(types, typeRef)
	return ctor
}
