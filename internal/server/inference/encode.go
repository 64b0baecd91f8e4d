package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encoder maps category names to the integer codes the model was trained on.
type Encoder struct {
	Classes []string `json:"classes"`

	index map[string]int
}

func (e *Encoder) init() {
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		if _, dup := e.index[c]; !dup {
			e.index[c] = i
		}
	}
}

// Encode returns the code of category. Unknown categories encode to 0.
func (e *Encoder) Encode(category string) int {
	if e.index == nil {
		for i, c := range e.Classes {
			if c == category {
				return i
			}
		}
		return 0
	}
	return e.index[category]
}

// Vectorize orders features by the bundle's feature_names. Categorical
// features go through their encoder, missing features become 0, numeric
// strings are parsed and booleans become 0 or 1.
func (b *Bundle) Vectorize(features map[string]any) ([]float64, error) {
	x := make([]float64, len(b.FeatureNames))

	for i, name := range b.FeatureNames {
		raw, ok := features[name]
		if !ok || raw == nil {
			continue
		}

		if enc, categorical := b.LabelEncoders[name]; categorical {
			x[i] = float64(enc.Encode(categoryString(raw)))
			continue
		}

		v, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", name, err)
		}
		x[i] = v
	}

	return x, nil
}

func categoryString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", t)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported value of type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	return f, nil
}
