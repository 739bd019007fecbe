package capture

import "fmt"

// Failure codes carried by pipeline errors.
const (
	CodeCaptureError = "CAPTURE_ERROR"
	CodeCropError    = "CROP_ERROR"
	CodeTabError     = "TAB_ERROR"
	CodeUploadError  = "UPLOAD_ERROR"
	CodeBusy         = "CAPTURE_IN_FLIGHT"
)

// PipelineError is a typed failure from one stage of the capture pipeline.
type PipelineError struct {
	Code    string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewCaptureError marks a failure of the privileged viewport capture.
func NewCaptureError(message string, err error) *PipelineError {
	return &PipelineError{Code: CodeCaptureError, Message: message, Err: err}
}

// NewCropError marks a failure while cropping the capture.
func NewCropError(message string, err error) *PipelineError {
	return &PipelineError{Code: CodeCropError, Message: message, Err: err}
}

// NewTabError marks a page context that could not be reached at all.
// Screen and Page implementations return it when their target is gone.
func NewTabError(message string, err error) *PipelineError {
	return &PipelineError{Code: CodeTabError, Message: message, Err: err}
}
