package api

import (
	"prediction-service/internal/model"
	"prediction-service/internal/predict"
)

// HealthResponse reports liveness and whether the model is available.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// PredictionDTO is one scored row of a batch upload.
type PredictionDTO struct {
	ID          int     `json:"id"`
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
	Confidence  string  `json:"confidence"`
}

// StatisticsDTO aggregates a batch.
type StatisticsDTO struct {
	TotalPredictions    int     `json:"total_predictions"`
	PositivePredictions int     `json:"positive_predictions"`
	NegativePredictions int     `json:"negative_predictions"`
	AverageProbability  float64 `json:"average_probability"`
}

// BatchResponse is returned by POST /predict.
type BatchResponse struct {
	Predictions []PredictionDTO `json:"predictions"`
	Statistics  StatisticsDTO   `json:"statistics"`
	Success     bool            `json:"success"`
}

// SingleResponse is returned by POST /predict_single.
type SingleResponse struct {
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
	Confidence  string  `json:"confidence"`
}

// SchemaResponse lists the features an upload must provide.
type SchemaResponse struct {
	NumericFeatures     []string `json:"numeric_features"`
	CategoricalFeatures []string `json:"categorical_features"`
	RequiredColumns     []string `json:"required_columns"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error           string   `json:"error"`
	RequiredColumns []string `json:"required_columns,omitempty"`
	MissingColumns  []string `json:"missing_columns,omitempty"`
}

// BatchFromResult converts a scored batch into its response.
func BatchFromResult(out *predict.BatchResult) BatchResponse {
	items := make([]PredictionDTO, 0, len(out.Results))
	for i, r := range out.Results {
		items = append(items, PredictionDTO{
			ID:          i,
			Prediction:  r.Prediction,
			Probability: r.Probability,
			Confidence:  r.Confidence,
		})
	}
	return BatchResponse{
		Predictions: items,
		Statistics: StatisticsDTO{
			TotalPredictions:    out.Statistics.TotalPredictions,
			PositivePredictions: out.Statistics.PositivePredictions,
			NegativePredictions: out.Statistics.NegativePredictions,
			AverageProbability:  out.Statistics.AverageProbability,
		},
		Success: true,
	}
}

// SingleFromResult converts one result into its response.
func SingleFromResult(r predict.Result) SingleResponse {
	return SingleResponse{
		Prediction:  r.Prediction,
		Probability: r.Probability,
		Confidence:  r.Confidence,
	}
}

// SchemaFromModel describes the feature schema.
func SchemaFromModel(s *model.Schema) SchemaResponse {
	return SchemaResponse{
		NumericFeatures:     nonNil(s.NumericFeatures),
		CategoricalFeatures: nonNil(s.CategoricalFeatures),
		RequiredColumns:     s.Required(),
	}
}

// ErrorFromError builds the error envelope.
func ErrorFromError(e *predict.Error) ErrorResponse {
	return ErrorResponse{
		Error:           e.Message,
		RequiredColumns: e.Required,
		MissingColumns:  e.Missing,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
