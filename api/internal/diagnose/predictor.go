//go:generate go run go.uber.org/mock/mockgen -source=predictor.go -destination=../mocks/mock_predictor.go -package=mocks
package diagnose

import "context"

// Predictor performs the single round trip to the prediction service.
// Every error it returns wraps ErrAnalysisFailed.
type Predictor interface {
	Predict(ctx context.Context, sub Submission) (Result, error)
}
