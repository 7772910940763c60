package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Schema lists the features a record must carry, as learned at training time.
type Schema struct {
	NumericFeatures     []string `json:"numeric_features"`
	CategoricalFeatures []string `json:"categorical_features"`
}

// LoadSchema reads the preprocessing descriptor produced alongside the model.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	if err := schema.validate(); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (s *Schema) validate() error {
	seen := make(map[string]struct{})
	for _, name := range append(append([]string{}, s.NumericFeatures...), s.CategoricalFeatures...) {
		if strings.TrimSpace(name) == "" {
			return errors.New("schema contains an empty feature name")
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("feature %q declared more than once", name)
		}
		seen[name] = struct{}{}
	}
	if len(seen) == 0 {
		return errors.New("schema declares no features")
	}
	return nil
}

// Required returns numeric features followed by categorical features.
func (s *Schema) Required() []string {
	out := make([]string, 0, len(s.NumericFeatures)+len(s.CategoricalFeatures))
	out = append(out, s.NumericFeatures...)
	out = append(out, s.CategoricalFeatures...)
	return out
}

// IsNumeric reports whether name is declared as a numeric feature.
func (s *Schema) IsNumeric(name string) bool {
	for _, n := range s.NumericFeatures {
		if n == name {
			return true
		}
	}
	return false
}

// IsCategorical reports whether name is declared as a categorical feature.
func (s *Schema) IsCategorical(name string) bool {
	for _, n := range s.CategoricalFeatures {
		if n == name {
			return true
		}
	}
	return false
}
