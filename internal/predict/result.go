package predict

// Confidence tags. There is no "low" tag.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// Result is the outcome for one record.
type Result struct {
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
	Confidence  string  `json:"confidence"`
}

// Statistics aggregates a batch of results.
type Statistics struct {
	TotalPredictions    int     `json:"total_predictions"`
	PositivePredictions int     `json:"positive_predictions"`
	NegativePredictions int     `json:"negative_predictions"`
	AverageProbability  float64 `json:"average_probability"`
}

// BatchResult holds per-row results in row order and their statistics.
type BatchResult struct {
	Results    []Result
	Statistics Statistics
}

// ConfidenceFor tags probabilities far from the decision boundary as high.
func ConfidenceFor(probability float64) string {
	if probability > 0.7 || probability < 0.3 {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

// Summarize computes batch statistics.
func Summarize(results []Result) Statistics {
	stats := Statistics{TotalPredictions: len(results)}
	if len(results) == 0 {
		return stats
	}
	sum := 0.0
	for _, r := range results {
		if r.Prediction == 1 {
			stats.PositivePredictions++
		} else {
			stats.NegativePredictions++
		}
		sum += r.Probability
	}
	stats.AverageProbability = sum / float64(len(results))
	return stats
}
