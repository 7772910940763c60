package predict

import (
	"fmt"

	"prediction-service/internal/model"
)

// Service validates input against the feature schema and delegates to the scorer.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	scorer model.Scorer
	schema *model.Schema
}

// NewService wraps a loaded scorer and its schema.
func NewService(scorer model.Scorer, schema *model.Schema) *Service {
	return &Service{scorer: scorer, schema: schema}
}

// Schema returns the feature schema the service validates against.
func (s *Service) Schema() *model.Schema {
	return s.schema
}

// PredictBatch scores every row of the table. Rows keep their order and
// the index of a row is its position in the table.
func (s *Service) PredictBatch(table *Table) (*BatchResult, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, BadRequest("uploaded file contains no rows")
	}
	required := s.schema.Required()
	if missing := MissingFields(required, table.Columns); len(missing) > 0 {
		return nil, MissingFieldsError(required, missing)
	}
	for _, name := range table.Duplicates {
		if s.schema.IsNumeric(name) || s.schema.IsCategorical(name) {
			e := BadRequest(fmt.Sprintf("required column %q appears more than once", name))
			e.Required = required
			return nil, e
		}
	}

	results, err := s.score(table.Rows)
	if err != nil {
		return nil, Internal("error processing file", err)
	}
	return &BatchResult{Results: results, Statistics: Summarize(results)}, nil
}

// PredictSingle scores one record. Field completeness is checked the same
// way as for batch uploads.
func (s *Service) PredictSingle(record model.Record) (*Result, error) {
	if len(record) == 0 {
		return nil, BadRequest("no data provided")
	}
	required := s.schema.Required()
	if missing := MissingFields(required, record.Keys()); len(missing) > 0 {
		return nil, MissingFieldsError(required, missing)
	}

	results, err := s.score([]model.Record{record})
	if err != nil {
		return nil, Internal("error making prediction", err)
	}
	return &results[0], nil
}

func (s *Service) score(records []model.Record) ([]Result, error) {
	labels, err := s.scorer.Predict(records)
	if err != nil {
		return nil, err
	}
	proba, err := s.scorer.PredictProba(records)
	if err != nil {
		return nil, err
	}
	if len(labels) != len(records) || len(proba) != len(records) {
		return nil, fmt.Errorf("scorer returned %d labels and %d probabilities for %d records", len(labels), len(proba), len(records))
	}

	results := make([]Result, len(records))
	for i := range records {
		results[i] = Result{
			Prediction:  labels[i],
			Probability: proba[i],
			Confidence:  ConfidenceFor(proba[i]),
		}
	}
	return results, nil
}
