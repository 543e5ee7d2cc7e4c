package diagnose

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

type Prediction struct {
	Condition  string   `json:"condition" validate:"required"`
	Confidence float64  `json:"confidence" validate:"gte=0,lte=1"`
	Severity   Severity `json:"severity" validate:"oneof=mild moderate severe"`
}

// Result is the body of a successful POST /api/v1/predict.
type Result struct {
	Prediction      Prediction `json:"prediction"`
	Recommendations []string   `json:"recommendations"`
}

// Validate reports whether the payload matches the documented schema.
func (r Result) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("result schema: %w", err)
	}
	return nil
}

// ConfidencePercent is the value the progress bar is drawn with.
func (r Result) ConfidencePercent() float64 {
	return r.Prediction.Confidence * 100
}

// ConfidenceText renders e.g. "95.0% confidence".
func (r Result) ConfidenceText() string {
	return fmt.Sprintf("%.1f%% confidence", r.ConfidencePercent())
}

// Image is a user-selected file together with its display preview.
type Image struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	Preview     string `json:"preview,omitempty"` // data URL
}

func (i Image) Size() int { return len(i.Data) }

// Submission is what one outbound prediction request carries.
type Submission struct {
	Category CategoryID
	Image    Image
}
