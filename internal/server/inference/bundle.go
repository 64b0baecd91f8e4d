// Package inference loads a trained traffic classifier and runs it against
// feature records.
//
// A model bundle is a JSON document:
//
//	{
//	  "version": "2024.1",
//	  "feature_names": ["duration", "protocol_type", ...],
//	  "label_encoders": {"protocol_type": {"classes": ["icmp", "tcp", "udp"]}},
//	  "attack_classes": ["normal", "neptune", ...],
//	  "model": {"type": "random_forest", "trees": [...]}
//	}
//
// Trees use the flat array layout exported by common decision tree
// libraries: node i splits on feature[i] at threshold[i], going to
// children_left[i] when x <= threshold and children_right[i] otherwise. A node
// whose children_left is -1 is a leaf and value[i] holds its class weights.
package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// Model types understood by the bundle decoder.
const (
	ModelRandomForest = "random_forest"
	ModelDecisionTree = "decision_tree"
)

const leaf = -1

// Bundle is a decoded, validated model artifact. It is immutable and safe for
// concurrent use.
type Bundle struct {
	Version       string              `json:"version"`
	FeatureNames  []string            `json:"feature_names"`
	LabelEncoders map[string]*Encoder `json:"label_encoders"`
	AttackClasses []string            `json:"attack_classes"`
	Model         Model               `json:"model"`
}

// Model is the tree ensemble inside a bundle.
type Model struct {
	Type  string  `json:"type"`
	Trees []*Tree `json:"trees"`
}

// Tree is a single binary decision tree in flat array form.
type Tree struct {
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Value         [][]float64 `json:"value"`
}

// Decode reads and validates a bundle.
func Decode(r io.Reader) (*Bundle, error) {
	b := &Bundle{}
	if err := json.NewDecoder(r).Decode(b); err != nil {
		return nil, fmt.Errorf("decode model bundle: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) validate() error {
	if len(b.FeatureNames) == 0 {
		return errors.New("model bundle has no feature_names")
	}
	if len(b.AttackClasses) == 0 {
		return errors.New("model bundle has no attack_classes")
	}

	switch b.Model.Type {
	case ModelRandomForest:
		if len(b.Model.Trees) == 0 {
			return errors.New("random_forest model has no trees")
		}
	case ModelDecisionTree:
		if len(b.Model.Trees) != 1 {
			return fmt.Errorf("decision_tree model must have exactly one tree, got %d", len(b.Model.Trees))
		}
	default:
		return fmt.Errorf("unsupported model type %q", b.Model.Type)
	}

	for i, t := range b.Model.Trees {
		if t == nil {
			return fmt.Errorf("tree %d is null", i)
		}
		if err := t.validate(len(b.FeatureNames), len(b.AttackClasses)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}

	for name, enc := range b.LabelEncoders {
		if enc == nil || len(enc.Classes) == 0 {
			return fmt.Errorf("label encoder %q has no classes", name)
		}
		enc.init()
	}

	return nil
}

func (t *Tree) validate(features, classes int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("node arrays differ in length")
	}

	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf {
			if len(t.Value[i]) != classes {
				return fmt.Errorf("leaf %d has %d class weights, want %d", i, len(t.Value[i]), classes)
			}
			continue
		}
		// children always come after their parent, which also rules out cycles
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("node %d has invalid children %d/%d", i, l, r)
		}
		if f := t.Feature[i]; f < 0 || f >= features {
			return fmt.Errorf("node %d splits on unknown feature %d", i, f)
		}
	}
	return nil
}

// predict returns the normalized class distribution of the leaf x falls into.
func (t *Tree) predict(x []float64) []float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}

	weights := t.Value[node]
	out := make([]float64, len(weights))
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		uniform := 1 / float64(len(weights))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i, w := range weights {
		out[i] = w / sum
	}
	return out
}

// PredictProba averages the class distributions of every tree.
func (m *Model) PredictProba(x []float64, classes int) []float64 {
	proba := make([]float64, classes)
	for _, t := range m.Trees {
		for i, p := range t.predict(x) {
			proba[i] += p
		}
	}
	for i := range proba {
		proba[i] /= float64(len(m.Trees))
	}
	return proba
}

// Prediction is the classifier's verdict for one feature record.
type Prediction struct {
	Label         string
	Confidence    float64
	Probabilities map[string]float64
}

// Predict encodes, vectorizes and classifies features. Ties between classes
// resolve to the one listed first in attack_classes.
func (b *Bundle) Predict(features map[string]any) (*Prediction, error) {
	x, err := b.Vectorize(features)
	if err != nil {
		return nil, err
	}

	proba := b.Model.PredictProba(x, len(b.AttackClasses))

	best := 0
	probabilities := make(map[string]float64, len(proba))
	for i, p := range proba {
		if math.IsNaN(p) {
			return nil, errors.New("model produced NaN probability")
		}
		probabilities[b.AttackClasses[i]] = p
		if p > proba[best] {
			best = i
		}
	}

	return &Prediction{
		Label:         b.AttackClasses[best],
		Confidence:    math.Min(1, math.Max(0, proba[best])),
		Probabilities: probabilities,
	}, nil
}

// Info summarizes a bundle for display.
type Info struct {
	Version             string   `json:"version"`
	ModelType           string   `json:"model_type"`
	Trees               int      `json:"trees"`
	FeatureNames        []string `json:"feature_names"`
	CategoricalFeatures []string `json:"categorical_features"`
	AttackClasses       []string `json:"attack_classes"`
}

func (b *Bundle) Describe() Info {
	categorical := make([]string, 0, len(b.LabelEncoders))
	for name := range b.LabelEncoders {
		categorical = append(categorical, name)
	}
	sort.Strings(categorical)

	return Info{
		Version:             b.Version,
		ModelType:           b.Model.Type,
		Trees:               len(b.Model.Trees),
		FeatureNames:        append([]string(nil), b.FeatureNames...),
		CategoricalFeatures: categorical,
		AttackClasses:       append([]string(nil), b.AttackClasses...),
	}
}
