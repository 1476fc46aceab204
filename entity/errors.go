package entity

import "fmt"

// ErrorKind classifies a failed conversion.
type ErrorKind string

const (
	KindMissingUpload        ErrorKind = "MissingUpload"
	KindUnsupportedFormat    ErrorKind = "UnsupportedFormat"
	KindInvalidInputFormat   ErrorKind = "InvalidInputFormat"
	KindUploadPersistFailure ErrorKind = "UploadPersistFailure"
	KindInputNotFound        ErrorKind = "InputNotFound"
	KindNoAudioTrack         ErrorKind = "NoAudioTrack"
	KindExtractionFailed     ErrorKind = "ExtractionFailed"
)

// ConversionError is the only error type returned to callers of a conversion.
type ConversionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewConversionError(kind ErrorKind, err error, format string, args ...interface{}) *ConversionError {
	return &ConversionError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the request itself was unusable.
func (e *ConversionError) IsClientError() bool {
	switch e.Kind {
	case KindMissingUpload, KindUnsupportedFormat, KindInvalidInputFormat:
		return true
	}
	return false
}
