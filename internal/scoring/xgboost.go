package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrUnsupportedModel is returned for model files this evaluator cannot score.
var ErrUnsupportedModel = errors.New("unsupported model")

// link maps the summed tree margin to a prediction.
type link int

const (
	linkIdentity link = iota
	linkExp
)

var objectiveLinks = map[string]link{
	"reg:squarederror":     linkIdentity,
	"reg:linear":           linkIdentity,
	"reg:absoluteerror":    linkIdentity,
	"reg:pseudohubererror": linkIdentity,
	"reg:squaredlogerror":  linkIdentity,
	"reg:quantileerror":    linkIdentity,
	"reg:gamma":            linkExp,
	"reg:tweedie":          linkExp,
	"count:poisson":        linkExp,
}

// XGBoost is a gradient-boosted tree regressor loaded from XGBoost's JSON model format.
type XGBoost struct {
	features  []string
	baseScore float64 // margin space
	link      link
	trees     []tree
}

var _ Model = (*XGBoost)(nil)

type tree struct {
	left        []int
	right       []int
	feature     []int
	condition   []float64
	defaultLeft []bool
}

// LoadXGBoost reads a model saved with Booster.save_model("*.json").
// fallback names the input columns when the model file carries no feature names.
func LoadXGBoost(path string, fallback []string) (*XGBoost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	m, err := ParseXGBoost(data, fallback)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return m, nil
}

// ParseXGBoost decodes an XGBoost JSON model.
func ParseXGBoost(data []byte, fallback []string) (*XGBoost, error) {
	var doc xgbDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	learner := doc.Learner
	if name := learner.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("booster %q: %w", name, ErrUnsupportedModel)
	}

	objective := learner.Objective.Name
	lk, ok := objectiveLinks[objective]
	if !ok {
		return nil, fmt.Errorf("objective %q: %w", objective, ErrUnsupportedModel)
	}

	base, err := parseBaseScore(learner.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}
	if lk == linkExp {
		if base <= 0 {
			return nil, fmt.Errorf("base_score %v for log-link objective: %w", base, ErrUnsupportedModel)
		}
		base = math.Log(base)
	}

	names := learner.FeatureNames
	if len(names) == 0 {
		names = fallback
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("model has no feature names and none configured: %w", ErrUnsupportedModel)
	}
	if n, err := strconv.Atoi(learner.LearnerModelParam.NumFeature); err == nil && n != len(names) {
		return nil, fmt.Errorf("model has %d features, %d names: %w", n, len(names), ErrModelInputMismatch)
	}

	m := &XGBoost{
		features:  append([]string(nil), names...),
		baseScore: base,
		link:      lk,
	}
	for i, raw := range learner.GradientBooster.Model.Trees {
		t, err := raw.compile(len(names))
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.trees = append(m.trees, t)
	}
	return m, nil
}

// Features returns the model's input columns.
func (m *XGBoost) Features() []string {
	return append([]string(nil), m.features...)
}

// NumTrees returns the number of boosted trees.
func (m *XGBoost) NumTrees() int {
	return len(m.trees)
}

// Predict scores each matrix row. NaN values follow each split's default direction.
func (m *XGBoost) Predict(columns []string, matrix [][]float64) ([]float64, error) {
	if err := CheckColumns(m.features, columns); err != nil {
		return nil, err
	}
	out := make([]float64, len(matrix))
	for i, x := range matrix {
		if len(x) != len(m.features) {
			return nil, fmt.Errorf("row %d has %d values, model expects %d: %w", i, len(x), len(m.features), ErrModelInputMismatch)
		}
		margin := m.baseScore
		for j := range m.trees {
			margin += m.trees[j].eval(x)
		}
		if m.link == linkExp {
			margin = math.Exp(margin)
		}
		out[i] = margin
	}
	return out, nil
}

func (t *tree) eval(x []float64) float64 {
	n := 0
	for t.left[n] != -1 {
		v := x[t.feature[n]]
		switch {
		case math.IsNaN(v):
			if t.defaultLeft[n] {
				n = t.left[n]
			} else {
				n = t.right[n]
			}
		case v < t.condition[n]:
			n = t.left[n]
		default:
			n = t.right[n]
		}
	}
	return t.condition[n]
}

type xgbDocument struct {
	Learner struct {
		FeatureNames      []string `json:"feature_names"`
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	DefaultLeft     []flag    `json:"default_left"`
	SplitType       []int     `json:"split_type"`
}

// flag decodes default_left entries written either as 0/1 or as booleans.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "true", "1":
		*f = true
	case "false", "0":
		*f = false
	default:
		return fmt.Errorf("invalid default_left value %s", b)
	}
	return nil
}

func (raw xgbTree) compile(numFeatures int) (tree, error) {
	n := len(raw.LeftChildren)
	if n == 0 {
		return tree{}, fmt.Errorf("empty tree: %w", ErrUnsupportedModel)
	}
	if len(raw.RightChildren) != n || len(raw.SplitIndices) != n ||
		len(raw.SplitConditions) != n || len(raw.DefaultLeft) != n {
		return tree{}, fmt.Errorf("node arrays differ in length: %w", ErrUnsupportedModel)
	}

	t := tree{
		left:        raw.LeftChildren,
		right:       raw.RightChildren,
		feature:     raw.SplitIndices,
		condition:   raw.SplitConditions,
		defaultLeft: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		t.defaultLeft[i] = bool(raw.DefaultLeft[i])
		if t.left[i] == -1 {
			continue
		}
		if i < len(raw.SplitType) && raw.SplitType[i] != 0 {
			return tree{}, fmt.Errorf("node %d: categorical split: %w", i, ErrUnsupportedModel)
		}
		if t.left[i] <= i || t.left[i] >= n || t.right[i] <= i || t.right[i] >= n {
			return tree{}, fmt.Errorf("node %d: child index out of range: %w", i, ErrUnsupportedModel)
		}
		if t.feature[i] < 0 || t.feature[i] >= numFeatures {
			return tree{}, fmt.Errorf("node %d: feature %d out of range: %w", i, t.feature[i], ErrModelInputMismatch)
		}
	}
	return t, nil
}

// parseBaseScore accepts "5E-1" as well as the bracketed vector form "[5E-1]".
func parseBaseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if s == "" {
		return 0.5, nil
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return 0, fmt.Errorf("multi-target base_score %q: %w", s, ErrUnsupportedModel)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse base_score %q: %w", s, err)
	}
	return v, nil
}
