package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode classifies failures that happen around a single image.
type ErrorCode string

const (
	ErrorDecodeFailed      ErrorCode = "DECODE_FAILED"
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorOCRFailed         ErrorCode = "OCR_FAILED"
	ErrorDetectorFailed    ErrorCode = "DETECTOR_FAILED"
	ErrorInvalidGeometry   ErrorCode = "INVALID_GEOMETRY"
	ErrorReportFailed      ErrorCode = "REPORT_FAILED"
)

// ProcessingError is a structured error for one input.
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	Input     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

func NewDecodeError(input string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorDecodeFailed,
		Message:   "Failed to decode image",
		Input:     input,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewUnsupportedFormatError(input string, format string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorUnsupportedFormat,
		Message:   fmt.Sprintf("Unsupported file format: %s", format),
		Input:     input,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"format": format,
		},
	}
}

func NewOCRFailedError(input string, backend string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed on backend: %s", backend),
		Input:     input,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"backend": backend,
		},
		Cause: cause,
	}
}

func NewDetectorFailedError(input string, detector string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorDetectorFailed,
		Message:   fmt.Sprintf("Bubble detection failed: %s", detector),
		Input:     input,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"detector": detector,
		},
		Cause: cause,
	}
}

func NewInvalidGeometryError(input string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidGeometry,
		Message:   "OCR returned invalid geometry",
		Input:     input,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewReportError(path string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorReportFailed,
		Message:   "Failed to write report",
		Input:     path,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"path": path,
		},
		Cause: cause,
	}
}

// CodeOf returns the code of the first ProcessingError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// ToMap flattens the error for reports and HTTP responses.
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"input":      e.Input,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
