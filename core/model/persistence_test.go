package model

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"
)

type memStore map[string]*bytes.Buffer

type memWriter struct {
	bytes.Buffer
	store memStore
	name  string
}

func (w *memWriter) Close() error {
	w.store[w.name] = &w.Buffer
	return nil
}

func (s memStore) Create(name string) (io.WriteCloser, error) {
	return &memWriter{store: s, name: name}, nil
}

func (s memStore) Open(name string) (io.ReadCloser, error) {
	b, ok := s[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b.Bytes())), nil
}

func init() {
	gob.Register(&constantModel{})
}

func TestSaveLoadModel(t *testing.T) {
	store := memStore{}
	m := &constantModel{Value: 2.5}
	_ = m.Fit(nil, nil)
	m.SetDimensions(1, 4)

	if err := SaveModel(store, "constant_model.gob", m); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}

	var loaded constantModel
	if err := LoadModel(store, "constant_model.gob", &loaded); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	if !loaded.IsFitted() || loaded.Value != 2.5 || loaded.NSamples != 4 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestSaveLoadEstimatorInterface(t *testing.T) {
	store := memStore{}
	m := &constantModel{Value: -1}
	_ = m.Fit(nil, nil)

	if err := SaveEstimator(store, "est.gob", m); err != nil {
		t.Fatalf("SaveEstimator() error = %v", err)
	}
	est, err := LoadEstimator(store, "est.gob")
	if err != nil {
		t.Fatalf("LoadEstimator() error = %v", err)
	}

	X := mat.NewDense(3, 1, nil)
	want, _ := m.Predict(X)
	got, err := est.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if !mat.Equal(want, got) {
		t.Errorf("loaded predictions differ: %v vs %v", mat.Formatted(got), mat.Formatted(want))
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	if _, err := LoadEstimator(memStore{}, "missing.gob"); err == nil {
		t.Error("expected error for missing artifact")
	}
}

func TestVersionedName(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	if got := VersionedName("kmeans_model", now); got != "kmeans_model_20240309_140507.gob" {
		t.Errorf("VersionedName() = %s", got)
	}

	store := memStore{}
	name, err := SaveModelVersioned(store, "kmeans_model", &constantModel{}, now)
	if err != nil {
		t.Fatalf("SaveModelVersioned() error = %v", err)
	}
	if _, ok := store[name]; !ok {
		t.Errorf("artifact %s not written", name)
	}
}
