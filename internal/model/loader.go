package model

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Bundle is the load-once pair of scorer and schema shared by all requests.
type Bundle struct {
	Scorer Scorer
	Schema *Schema
}

// Load reads the schema descriptor and the scorer artifact.
func Load(modelPath, schemaPath string) (*Bundle, error) {
	start := time.Now()
	schema, err := LoadSchema(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", schemaPath, err)
	}
	scorer, err := LoadLogistic(modelPath, schema)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}
	logrus.WithFields(logrus.Fields{
		"model":                modelPath,
		"schema":               schemaPath,
		"numeric_features":     len(schema.NumericFeatures),
		"categorical_features": len(schema.CategoricalFeatures),
		"duration":             time.Since(start),
	}).Info("model loaded")
	return &Bundle{Scorer: scorer, Schema: schema}, nil
}
