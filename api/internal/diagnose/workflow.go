package diagnose

import (
	"fmt"
	"time"
)

type State string

const (
	StateIdle             State = "idle-no-category"
	StateCategorySelected State = "category-selected"
	StateImageSelected    State = "image-selected"
	StateSubmitting       State = "submitting"
	StateResultReady      State = "result-ready"
	StateError            State = "error"
)

type Tab string

const (
	TabUpload  Tab = "upload"
	TabResults Tab = "results"
)

func ParseTab(s string) (Tab, error) {
	switch Tab(s) {
	case TabUpload, TabResults:
		return Tab(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
	}
}

// Workflow is the transient state of one diagnose view. It holds at most one
// live result, always paired with the category and image that produced it.
// The zero value is an idle workflow on the upload tab.
type Workflow struct {
	Category    CategoryID `json:"category,omitempty"`
	Image       *Image     `json:"image,omitempty"`
	Submitting  bool       `json:"submitting,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	UploadError string     `json:"upload_error,omitempty"`
	Result      *Result    `json:"result,omitempty"`
	Tab         Tab        `json:"tab,omitempty"`
}

func New() *Workflow { return &Workflow{Tab: TabUpload} }

func (w *Workflow) State() State {
	switch {
	case w.Submitting:
		return StateSubmitting
	case w.Result != nil:
		return StateResultReady
	case w.Error != "":
		return StateError
	case w.Image != nil:
		return StateImageSelected
	case w.Category != "":
		return StateCategorySelected
	default:
		return StateIdle
	}
}

func (w *Workflow) ActiveTab() Tab {
	if w.Tab == "" {
		return TabUpload
	}
	return w.Tab
}

// Loading is true while the single outbound request is pending.
func (w *Workflow) Loading() bool { return w.Submitting }

// CanSubmit is false whenever category or image is unset or a request is pending.
func (w *Workflow) CanSubmit() bool {
	return !w.Submitting && w.Category != "" && w.Image != nil
}

// SelectCategory leaves the selection untouched for unknown or disabled ids.
func (w *Workflow) SelectCategory(raw string) error {
	if w.Submitting {
		return ErrBusy
	}
	c, err := ParseCategory(raw)
	if err != nil {
		return err
	}
	if c.ID != w.Category {
		w.Result = nil
	}
	w.Category = c.ID
	return nil
}

// SelectImage is only reachable once a category is chosen.
func (w *Workflow) SelectImage(img Image) error {
	if w.Submitting {
		return ErrBusy
	}
	if w.Category == "" {
		return ErrNoCategory
	}
	w.Image = &img
	w.Result = nil
	w.Error = ""
	w.UploadError = ""
	return nil
}

// RejectUpload records a boundary validation failure without touching the selection.
func (w *Workflow) RejectUpload(msg string) {
	w.UploadError = msg
}

// BeginSubmit moves to submitting and returns the request to issue.
func (w *Workflow) BeginSubmit(now time.Time) (Submission, error) {
	switch {
	case w.Submitting:
		return Submission{}, ErrBusy
	case w.Category == "":
		return Submission{}, ErrNoCategory
	case w.Image == nil:
		return Submission{}, ErrNoImage
	}
	w.Submitting = true
	w.SubmittedAt = now
	w.Error = ""
	w.UploadError = ""
	w.Result = nil
	return Submission{Category: w.Category, Image: *w.Image}, nil
}

// Complete stores the result and switches to the results tab.
func (w *Workflow) Complete(res Result) {
	w.Submitting = false
	w.SubmittedAt = time.Time{}
	w.Error = ""
	w.Result = &res
	w.Tab = TabResults
}

// Fail shows the fixed error on the upload tab; category and image stay selected.
func (w *Workflow) Fail() {
	w.Submitting = false
	w.SubmittedAt = time.Time{}
	w.Error = FailureMessage
	w.Result = nil
	w.Tab = TabUpload
}

// Expire fails a submission that has been pending longer than after.
// It covers a process that died between BeginSubmit and Complete.
func (w *Workflow) Expire(now time.Time, after time.Duration) bool {
	if !w.Submitting || after <= 0 || now.Sub(w.SubmittedAt) < after {
		return false
	}
	w.Fail()
	return true
}

// Reset is "New Analysis": image, preview and result are cleared, the category stays.
func (w *Workflow) Reset() error {
	if w.Submitting {
		return ErrBusy
	}
	w.Image = nil
	w.Result = nil
	w.Error = ""
	w.UploadError = ""
	w.Tab = TabUpload
	return nil
}

func (w *Workflow) SwitchTab(raw string) error {
	t, err := ParseTab(raw)
	if err != nil {
		return err
	}
	w.Tab = t
	return nil
}

// SelectedCategory returns the catalog entry of the current selection.
func (w *Workflow) SelectedCategory() (Category, bool) {
	if w.Category == "" {
		return Category{}, false
	}
	return Lookup(w.Category)
}
