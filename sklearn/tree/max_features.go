package tree

import (
	"math"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// ResolveMaxFeatures converts a max_features setting into a feature count.
//
// Accepted values: nil (all features), "sqrt", "log2", an integer count, or a
// float fraction in (0, 1].
func ResolveMaxFeatures(v interface{}, nFeatures int) (int, error) {
	clamp := func(k int) int {
		if k < 1 {
			return 1
		}
		if k > nFeatures {
			return nFeatures
		}
		return k
	}
	switch x := v.(type) {
	case nil:
		return nFeatures, nil
	case string:
		switch x {
		case "sqrt", "auto":
			return clamp(int(math.Sqrt(float64(nFeatures)))), nil
		case "log2":
			return clamp(int(math.Log2(float64(nFeatures)))), nil
		case "", "none", "None":
			return nFeatures, nil
		}
	case int:
		if x >= 1 {
			return clamp(x), nil
		}
	case int64:
		if x >= 1 {
			return clamp(int(x)), nil
		}
	case int32:
		if x >= 1 {
			return clamp(int(x)), nil
		}
	case float64:
		if x > 0 && x <= 1 {
			return clamp(int(x * float64(nFeatures))), nil
		}
	case float32:
		if x > 0 && x <= 1 {
			return clamp(int(float64(x) * float64(nFeatures))), nil
		}
	}
	return 0, errors.NewValidationError("max_features",
		"must be nil, \"sqrt\", \"log2\", a positive int or a float in (0, 1]", v)
}

// CheckMaxFeatures validates a max_features setting without knowing the data width.
func CheckMaxFeatures(v interface{}) error {
	_, err := ResolveMaxFeatures(v, 1)
	return err
}
