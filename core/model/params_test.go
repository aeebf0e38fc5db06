package model

import (
	"testing"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

type forestParams struct {
	NEstimators int         `mapstructure:"n_estimators"`
	MaxDepth    int         `mapstructure:"max_depth" validate:"gte=0"`
	Bootstrap   bool        `mapstructure:"bootstrap"`
	MaxFeatures interface{} `mapstructure:"max_features"`
	Criterion   string      `mapstructure:"criterion"`
}

func TestParamsMergeIsRightBiased(t *testing.T) {
	defaults := Params{"n_estimators": 100, "max_depth": 0, "bootstrap": true}
	merged := defaults.Copy().Merge(Params{"n_estimators": 50, "criterion": "entropy"})

	if merged["n_estimators"] != 50 {
		t.Errorf("n_estimators = %v, want 50", merged["n_estimators"])
	}
	// キーがデフォルトに無くても追加される
	if merged["criterion"] != "entropy" {
		t.Errorf("criterion = %v, want entropy", merged["criterion"])
	}
	if defaults["n_estimators"] != 100 {
		t.Errorf("defaults mutated: n_estimators = %v", defaults["n_estimators"])
	}
	if defaults.Has("criterion") {
		t.Error("defaults should not gain override keys")
	}
}

func TestParamsMergeNil(t *testing.T) {
	var p Params
	merged := p.Merge(nil)
	if merged == nil || len(merged) != 0 {
		t.Errorf("Merge(nil) on nil params = %v, want empty", merged)
	}

	merged = Params{"a": 1}.Copy().Merge(nil)
	if merged["a"] != 1 {
		t.Errorf("Merge(nil) dropped keys: %v", merged)
	}
}

func TestParamsKeysSorted(t *testing.T) {
	p := Params{"tol": 1e-4, "C": 1.0, "max_iter": 100}
	keys := p.Keys()
	want := []string{"C", "max_iter", "tol"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
	if got := p.String(); got != "{C=1, max_iter=100, tol=0.0001}" {
		t.Errorf("String() = %s", got)
	}
}

func TestParamsDecode(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		want    forestParams
		wantErr bool
	}{
		{
			name:   "weakly typed numbers",
			params: Params{"n_estimators": 50.0, "max_depth": int64(3), "bootstrap": true},
			want:   forestParams{NEstimators: 50, MaxDepth: 3, Bootstrap: true},
		},
		{
			name:   "interface field keeps its value",
			params: Params{"max_features": "sqrt"},
			want:   forestParams{MaxFeatures: "sqrt"},
		},
		{
			name:    "unknown key is rejected",
			params:  Params{"n_estimatorz": 10},
			wantErr: true,
		},
		{
			name:    "ill-typed value is rejected",
			params:  Params{"n_estimators": "many"},
			wantErr: true,
		},
		{
			name:    "fractional value for an integer is rejected",
			params:  Params{"n_estimators": 50.7},
			wantErr: true,
		},
		{
			name:    "fractional float32 for an integer is rejected",
			params:  Params{"max_depth": float32(2.5)},
			wantErr: true,
		},
		{
			name:    "out of range value is rejected",
			params:  Params{"max_depth": -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got forestParams
			err := tt.params.Decode("RandomForest", &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				var verr *errors.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error should be *ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParamsOf(t *testing.T) {
	p := ParamsOf(forestParams{NEstimators: 10, Criterion: "gini"})
	if p["n_estimators"] != 10 {
		t.Errorf("n_estimators = %v, want 10", p["n_estimators"])
	}
	if p["criterion"] != "gini" {
		t.Errorf("criterion = %v, want gini", p["criterion"])
	}
	if !p.Has("max_features") {
		t.Error("nil interface fields should still be reported")
	}
}
