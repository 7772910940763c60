package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

const defaultThreshold = 0.5

// Scorer is the trained classifier as the HTTP layer sees it.
type Scorer interface {
	// Predict returns the class label (0 or 1) of every record.
	Predict(records []Record) ([]int, error)
	// PredictProba returns p(y=1) for every record.
	PredictProba(records []Record) ([]float64, error)
}

// NumericCoef standardizes a numeric feature and weights it.
type NumericCoef struct {
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
	Weight float64 `json:"weight"`
}

// Artifact is the serialized form of a LogisticModel.
type Artifact struct {
	ModelType   string                        `json:"model_type"`
	Intercept   float64                       `json:"intercept"`
	Threshold   float64                       `json:"threshold"`
	Numeric     map[string]NumericCoef        `json:"numeric"`
	Categorical map[string]map[string]float64 `json:"categorical"`
}

// LogisticModel is a binary logistic regression over standardized numeric
// features and one-hot encoded categorical features.
type LogisticModel struct {
	intercept   float64
	threshold   float64
	numeric     []numericTerm
	categorical []categoricalTerm
}

type numericTerm struct {
	name string
	NumericCoef
}

type categoricalTerm struct {
	name   string
	levels map[string]float64
}

// LoadLogistic reads a model artifact and checks it against the schema.
func LoadLogistic(path string, schema *Schema) (*LogisticModel, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("unmarshal model: %w", err)
	}
	return NewLogistic(artifact, schema)
}

// NewLogistic builds a model from an artifact. Every feature the artifact
// references must be declared by the schema with the same kind.
func NewLogistic(a Artifact, schema *Schema) (*LogisticModel, error) {
	if a.ModelType != "" && a.ModelType != "logistic_regression" {
		return nil, fmt.Errorf("unsupported model type %q", a.ModelType)
	}
	if schema == nil {
		return nil, errors.New("schema is required")
	}
	if len(a.Numeric) == 0 && len(a.Categorical) == 0 {
		return nil, errors.New("model has no coefficients")
	}

	m := &LogisticModel{intercept: a.Intercept, threshold: a.Threshold}
	if m.threshold <= 0 || m.threshold >= 1 {
		m.threshold = defaultThreshold
	}

	for name, coef := range a.Numeric {
		if !schema.IsNumeric(name) {
			return nil, fmt.Errorf("model feature %q is not a numeric feature of the schema", name)
		}
		if coef.Scale == 0 {
			coef.Scale = 1
		}
		m.numeric = append(m.numeric, numericTerm{name: name, NumericCoef: coef})
	}
	for name, levels := range a.Categorical {
		if !schema.IsCategorical(name) {
			return nil, fmt.Errorf("model feature %q is not a categorical feature of the schema", name)
		}
		normalized := make(map[string]float64, len(levels))
		for level, w := range levels {
			normalized[normalizeLevel(level)] = w
		}
		m.categorical = append(m.categorical, categoricalTerm{name: name, levels: normalized})
	}

	// map iteration order is random; keep the dot product deterministic
	sort.Slice(m.numeric, func(i, j int) bool { return m.numeric[i].name < m.numeric[j].name })
	sort.Slice(m.categorical, func(i, j int) bool { return m.categorical[i].name < m.categorical[j].name })
	return m, nil
}

// PredictProba returns the probability of the positive class for each record.
func (m *LogisticModel) PredictProba(records []Record) ([]float64, error) {
	out := make([]float64, len(records))
	for i, rec := range records {
		p, err := m.score(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Predict thresholds PredictProba into class labels.
func (m *LogisticModel) Predict(records []Record) ([]int, error) {
	proba, err := m.PredictProba(records)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= m.threshold {
			out[i] = 1
		}
	}
	return out, nil
}

func (m *LogisticModel) score(rec Record) (float64, error) {
	sum := m.intercept
	for _, term := range m.numeric {
		x, err := numericValue(rec, term.name)
		if err != nil {
			return 0, err
		}
		sum += term.Weight * (x - term.Mean) / term.Scale
	}
	for _, term := range m.categorical {
		level, err := categoricalValue(rec, term.name)
		if err != nil {
			return 0, err
		}
		// unseen levels encode to an all-zero one-hot vector
		sum += term.levels[level]
	}
	p := sigmoid(sum)
	if math.IsNaN(p) {
		return 0, errors.New("probability is not a number")
	}
	return p, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
