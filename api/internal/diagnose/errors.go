package diagnose

import "errors"

// FailureMessage is the only failure text a user ever sees for a submission.
const FailureMessage = "Failed to analyze image. Please try again."

var (
	ErrUnknownCategory  = errors.New("unknown category")
	ErrCategoryDisabled = errors.New("category is not available")
	ErrNoCategory       = errors.New("no category selected")
	ErrNoImage          = errors.New("no image selected")
	ErrBusy             = errors.New("analysis already in progress")
	ErrUnknownTab       = errors.New("unknown tab")

	// ErrAnalysisFailed wraps every transport, status and schema failure of a prediction.
	ErrAnalysisFailed = errors.New("analysis failed")
)
