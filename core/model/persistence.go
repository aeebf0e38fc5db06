package model

import (
	"encoding/gob"
	"io"
	"time"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// ArtifactExt は保存される成果物の拡張子
const ArtifactExt = ".gob"

// VersionLayout はバージョン付き保存で使うタイムスタンプの書式
const VersionLayout = "20060102_150405"

// ArtifactStore は成果物を名前で読み書きする保存先
type ArtifactStore interface {
	Create(name string) (io.WriteCloser, error)
	Open(name string) (io.ReadCloser, error)
}

// SaveModel はモデルを保存先に書き込む
//
// パラメータ:
//   - store: 保存先
//   - name: 成果物の名前（例: "random_forest_model.gob"）
//   - model: 保存するモデル（公開フィールドを持つ構造体のポインタ）
//
// 使用例:
//
//	store := storage.NewPOSIX("models_storage")
//	err := model.SaveModel(store, "scaler.gob", scaler)
func SaveModel(store ArtifactStore, name string, model interface{}) error {
	w, err := store.Create(name)
	if err != nil {
		return errors.Wrapf(err, "failed to create artifact %s", name)
	}
	if err := SaveModelToWriter(model, w); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "failed to save artifact %s", name)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "failed to close artifact %s", name)
	}
	return nil
}

// LoadModel は保存先からモデルを読み込む
//
// パラメータ:
//   - store: 保存先
//   - name: 成果物の名前
//   - model: 読み込み先のポインタ
func LoadModel(store ArtifactStore, name string, model interface{}) error {
	r, err := store.Open(name)
	if err != nil {
		return errors.Wrapf(err, "failed to open artifact %s", name)
	}
	defer r.Close()
	if err := LoadModelFromReader(model, r); err != nil {
		return errors.Wrapf(err, "failed to load artifact %s", name)
	}
	return nil
}

// SaveEstimator は推定器をインターフェース値として保存する。
// 具象型は各推定器パッケージで gob.Register されている必要がある。
func SaveEstimator(store ArtifactStore, name string, est Estimator) error {
	return SaveModel(store, name, &est)
}

// LoadEstimator は SaveEstimator で保存された推定器を具象型を知らずに読み込む
func LoadEstimator(store ArtifactStore, name string) (Estimator, error) {
	var est Estimator
	if err := LoadModel(store, name, &est); err != nil {
		return nil, err
	}
	return est, nil
}

// VersionedName は "{prefix}_{YYYYMMDD_HHMMSS}.gob" を返す
func VersionedName(prefix string, now time.Time) string {
	return prefix + "_" + now.Format(VersionLayout) + ArtifactExt
}

// SaveModelVersioned はタイムスタンプ付きの名前でモデルを保存し、その名前を返す
func SaveModelVersioned(store ArtifactStore, prefix string, model interface{}, now time.Time) (string, error) {
	name := VersionedName(prefix, now)
	if err := SaveModel(store, name, model); err != nil {
		return "", err
	}
	return name, nil
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
